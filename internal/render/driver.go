package render

// StageKind identifies a programmable pipeline stage.
type StageKind int

const (
	VertexStage StageKind = iota
	FragmentStage
)

func (k StageKind) String() string {
	switch k {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// Attrib describes one float vertex attribute inside an interleaved vertex.
type Attrib struct {
	Index  uint32
	Size   int32 // number of float components
	Offset int   // in floats
}

// Driver is the slice of the graphics API the pipeline needs. Handles are
// driver-owned names; zero is never a valid handle.
type Driver interface {
	CreateShader(kind StageKind) uint32
	// CompileShader submits source and reports success plus the info log.
	CompileShader(shader uint32, source string) (bool, string)
	DeleteShader(shader uint32)

	CreateProgram() uint32
	LinkProgram(program uint32, shaders ...uint32) (bool, string)
	UseProgram(program uint32)
	DeleteProgram(program uint32)

	// UploadVertices copies data to GPU memory with a static usage hint and
	// returns the vertex array and buffer names.
	UploadVertices(data []float32, stride int, attribs []Attrib) (vao, vbo uint32)
	BindVertices(vao uint32)
	DeleteVertices(vao, vbo uint32)

	// UploadTexture creates a 2D texture from 32-bit BGRX rows.
	UploadTexture(width, height, stride int, pix []byte) uint32
	BindTexture(unit int, texture uint32)
	DeleteTexture(texture uint32)

	Uniform1i(program uint32, name string, v int32)
	Uniform1f(program uint32, name string, v float32)
	Uniform2f(program uint32, name string, x, y float32)

	Viewport(width, height int)
	Clear(r, g, b, a float32)
	DrawTriangles(first, count int)
}
