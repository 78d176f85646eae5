package gpu

import (
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/1broseidon/coomer/internal/render"
)

const floatSize = 4

type uniformKey struct {
	program uint32
	name    string
}

// Driver implements render.Driver with OpenGL 3.3 core calls. It must only
// be used on the thread holding the context.
type Driver struct {
	locations map[uniformKey]int32
}

var _ render.Driver = (*Driver)(nil)

func newDriver() *Driver {
	return &Driver{locations: make(map[uniformKey]int32)}
}

func (d *Driver) CreateShader(kind render.StageKind) uint32 {
	switch kind {
	case render.VertexStage:
		return gl.CreateShader(gl.VERTEX_SHADER)
	case render.FragmentStage:
		return gl.CreateShader(gl.FRAGMENT_SHADER)
	default:
		return 0
	}
}

func (d *Driver) CompileShader(shader uint32, source string) (bool, string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)

	var logLength int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
	log := ""
	if logLength > 0 {
		buf := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(buf))
		log = strings.TrimRight(buf, "\x00")
	}
	return status == gl.TRUE, log
}

func (d *Driver) DeleteShader(shader uint32) {
	gl.DeleteShader(shader)
}

func (d *Driver) CreateProgram() uint32 {
	return gl.CreateProgram()
}

func (d *Driver) LinkProgram(program uint32, shaders ...uint32) (bool, string) {
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)

	var logLength int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
	log := ""
	if logLength > 0 {
		buf := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(buf))
		log = strings.TrimRight(buf, "\x00")
	}

	for _, s := range shaders {
		gl.DetachShader(program, s)
	}
	return status == gl.TRUE, log
}

func (d *Driver) UseProgram(program uint32) {
	gl.UseProgram(program)
}

func (d *Driver) DeleteProgram(program uint32) {
	for k := range d.locations {
		if k.program == program {
			delete(d.locations, k)
		}
	}
	gl.DeleteProgram(program)
}

func (d *Driver) UploadVertices(data []float32, stride int, attribs []render.Attrib) (uint32, uint32) {
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.GenBuffers(1, &vbo)

	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*floatSize, gl.Ptr(data), gl.STATIC_DRAW)

	for _, a := range attribs {
		gl.VertexAttribPointer(a.Index, a.Size, gl.FLOAT, false, int32(stride*floatSize), gl.PtrOffset(a.Offset*floatSize))
		gl.EnableVertexAttribArray(a.Index)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vao, vbo
}

func (d *Driver) BindVertices(vao uint32) {
	gl.BindVertexArray(vao)
}

func (d *Driver) DeleteVertices(vao, vbo uint32) {
	gl.DeleteVertexArrays(1, &vao)
	gl.DeleteBuffers(1, &vbo)
}

func (d *Driver) UploadTexture(width, height, stride int, pix []byte) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	// Rows may be padded; the row length is given in pixels.
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.BGRA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func (d *Driver) BindTexture(unit int, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, texture)
}

func (d *Driver) DeleteTexture(texture uint32) {
	gl.DeleteTextures(1, &texture)
}

// location returns -1 for uniforms the linker optimized away; GL ignores
// uploads to -1.
func (d *Driver) location(program uint32, name string) int32 {
	key := uniformKey{program: program, name: name}
	if loc, ok := d.locations[key]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	d.locations[key] = loc
	return loc
}

func (d *Driver) Uniform1i(program uint32, name string, v int32) {
	gl.Uniform1i(d.location(program, name), v)
}

func (d *Driver) Uniform1f(program uint32, name string, v float32) {
	gl.Uniform1f(d.location(program, name), v)
}

func (d *Driver) Uniform2f(program uint32, name string, x, y float32) {
	gl.Uniform2f(d.location(program, name), x, y)
}

func (d *Driver) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *Driver) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Driver) DrawTriangles(first, count int) {
	gl.DrawArrays(gl.TRIANGLES, int32(first), int32(count))
}
