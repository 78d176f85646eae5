package render

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAlreadyUploaded is returned when vertex data is uploaded twice.
	ErrAlreadyUploaded = errors.New("vertex data already uploaded")
	// ErrNotReady is returned when drawing before a program and vertices exist.
	ErrNotReady = errors.New("pipeline has no linked program or vertex data")
	// ErrPipelineReleased is returned for any use after Release.
	ErrPipelineReleased = errors.New("pipeline released")
)

// Uniform names consumed by the flashlight fragment shader.
const (
	UniformScreenshot = "uScreenshot"
	UniformResolution = "uResolution"
	UniformCursor     = "uCursor"
	UniformEnabled    = "uFlashlightEnabled"
	UniformShadow     = "uShadow"
	UniformRadius     = "uRadius"
)

// Stage is a compiled shader stage.
type Stage struct {
	Kind   StageKind
	Path   string
	handle uint32
}

// Program is a linked pair of stages.
type Program struct {
	handle uint32
}

// VertexResource is vertex data resident in GPU memory.
type VertexResource struct {
	vao   uint32
	vbo   uint32
	count int
}

// Count returns the number of vertices in the resource.
func (v *VertexResource) Count() int { return v.count }

// Frame holds everything one draw call needs besides GPU resources.
type Frame struct {
	Width      int
	Height     int
	CursorX    float32
	CursorY    float32
	Flashlight Flashlight
}

// Pipeline owns the compiled stages, the linked program, the vertex data and
// the screenshot texture. Shader files are read once; there is no reload.
type Pipeline struct {
	driver   Driver
	stages   []*Stage
	program  *Program
	vertices *VertexResource
	texture  uint32
	released bool
}

// NewPipeline creates an empty pipeline on top of driver.
func NewPipeline(driver Driver) *Pipeline {
	return &Pipeline{driver: driver}
}

// LoadShader reads the whole file at path and compiles it as kind.
func (p *Pipeline) LoadShader(path string, kind StageKind) (*Stage, error) {
	if p.released {
		return nil, ErrPipelineReleased
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ShaderIOError{Path: path, Err: err}
	}
	return p.compile(path, kind, string(src))
}

func (p *Pipeline) compile(path string, kind StageKind, src string) (*Stage, error) {
	shader := p.driver.CreateShader(kind)
	if ok, log := p.driver.CompileShader(shader, src); !ok {
		p.driver.DeleteShader(shader)
		return nil, &CompileError{Stage: kind, Path: path, Log: log}
	}

	stage := &Stage{Kind: kind, Path: path, handle: shader}
	p.stages = append(p.stages, stage)
	return stage, nil
}

// Link links a vertex and a fragment stage into the pipeline's program.
func (p *Pipeline) Link(vertex, fragment *Stage) (*Program, error) {
	if p.released {
		return nil, ErrPipelineReleased
	}
	if vertex == nil || vertex.Kind != VertexStage {
		return nil, fmt.Errorf("link: first stage must be a vertex stage")
	}
	if fragment == nil || fragment.Kind != FragmentStage {
		return nil, fmt.Errorf("link: second stage must be a fragment stage")
	}

	program := p.driver.CreateProgram()
	if ok, log := p.driver.LinkProgram(program, vertex.handle, fragment.handle); !ok {
		p.driver.DeleteProgram(program)
		return nil, &LinkError{Log: log}
	}

	if p.program != nil {
		p.driver.DeleteProgram(p.program.handle)
	}
	p.program = &Program{handle: program}
	return p.program, nil
}

// Upload transfers the interleaved quad vertices to the GPU. It may be called
// once per pipeline.
func (p *Pipeline) Upload(vertices []float32) (*VertexResource, error) {
	if p.released {
		return nil, ErrPipelineReleased
	}
	if p.vertices != nil {
		return nil, ErrAlreadyUploaded
	}
	if len(vertices) == 0 || len(vertices)%QuadStride != 0 {
		return nil, fmt.Errorf("vertex data length %d is not a multiple of %d", len(vertices), QuadStride)
	}

	vao, vbo := p.driver.UploadVertices(vertices, QuadStride, QuadLayout)
	p.vertices = &VertexResource{vao: vao, vbo: vbo, count: len(vertices) / QuadStride}
	return p.vertices, nil
}

// UploadScreenshot replaces the sampled texture with a captured frame.
func (p *Pipeline) UploadScreenshot(width, height, stride int, pix []byte) error {
	if p.released {
		return ErrPipelineReleased
	}
	if width <= 0 || height <= 0 || stride < width*4 || len(pix) < stride*(height-1)+width*4 {
		return fmt.Errorf("screenshot %dx%d (stride %d) does not fit %d bytes", width, height, stride, len(pix))
	}
	if p.texture != 0 {
		p.driver.DeleteTexture(p.texture)
	}
	p.texture = p.driver.UploadTexture(width, height, stride, pix)
	return nil
}

// Build loads both stage files, links them and uploads the full-screen quad.
func (p *Pipeline) Build(vertexPath, fragmentPath string) error {
	vs, err := p.LoadShader(vertexPath, VertexStage)
	if err != nil {
		return err
	}
	fs, err := p.LoadShader(fragmentPath, FragmentStage)
	if err != nil {
		return err
	}
	if _, err := p.Link(vs, fs); err != nil {
		return err
	}
	_, err = p.Upload(FullScreenQuad)
	return err
}

// Draw activates the program, binds the vertices, clears and draws one frame.
// Presenting the frame is the caller's job.
func (p *Pipeline) Draw(f Frame) error {
	if p.released {
		return ErrPipelineReleased
	}
	if p.program == nil || p.vertices == nil {
		return ErrNotReady
	}

	d := p.driver
	prog := p.program.handle

	d.Viewport(f.Width, f.Height)
	d.Clear(0, 0, 0, 1)

	d.UseProgram(prog)
	d.BindVertices(p.vertices.vao)
	if p.texture != 0 {
		d.BindTexture(0, p.texture)
		d.Uniform1i(prog, UniformScreenshot, 0)
	}

	d.Uniform2f(prog, UniformResolution, float32(f.Width), float32(f.Height))
	d.Uniform2f(prog, UniformCursor, f.CursorX, f.CursorY)
	enabled := int32(0)
	if f.Flashlight.Enabled {
		enabled = 1
	}
	d.Uniform1i(prog, UniformEnabled, enabled)
	d.Uniform1f(prog, UniformShadow, f.Flashlight.ShadowPercentage)
	d.Uniform1f(prog, UniformRadius, f.Flashlight.Radius)

	d.DrawTriangles(0, p.vertices.count)
	return nil
}

// Release deletes every GPU object the pipeline owns. Calling it again is a
// no-op.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	p.released = true

	d := p.driver
	for _, s := range p.stages {
		d.DeleteShader(s.handle)
	}
	p.stages = nil
	if p.program != nil {
		d.DeleteProgram(p.program.handle)
		p.program = nil
	}
	if p.vertices != nil {
		d.DeleteVertices(p.vertices.vao, p.vertices.vbo)
		p.vertices = nil
	}
	if p.texture != 0 {
		d.DeleteTexture(p.texture)
		p.texture = 0
	}
}
