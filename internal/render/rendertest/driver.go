// Package rendertest provides an in-memory render.Driver for tests.
package rendertest

import (
	"fmt"
	"strings"

	"github.com/1broseidon/coomer/internal/render"
)

// Driver is a deterministic fake. A shader source containing "#error" fails
// to compile; a program whose stages contain "// link-fail" fails to link.
type Driver struct {
	next    uint32
	sources map[uint32]string
	live    map[uint32]string // handle -> object kind

	Calls     []string
	Draws     int
	Uniforms  map[string]float32
	Textures  int
	Uploads   int
	LastClear [4]float32
}

// NewDriver returns an empty fake driver.
func NewDriver() *Driver {
	return &Driver{
		sources:  make(map[uint32]string),
		live:     make(map[uint32]string),
		Uniforms: make(map[string]float32),
	}
}

var _ render.Driver = (*Driver)(nil)

func (d *Driver) alloc(kind string) uint32 {
	d.next++
	d.live[d.next] = kind
	return d.next
}

func (d *Driver) free(h uint32) {
	delete(d.live, h)
}

// Live returns the number of GPU objects not yet deleted.
func (d *Driver) Live() int { return len(d.live) }

func (d *Driver) CreateShader(kind render.StageKind) uint32 {
	d.Calls = append(d.Calls, "CreateShader")
	return d.alloc("shader:" + kind.String())
}

func (d *Driver) CompileShader(shader uint32, source string) (bool, string) {
	d.Calls = append(d.Calls, "CompileShader")
	d.sources[shader] = source
	for i, line := range strings.Split(source, "\n") {
		if strings.Contains(line, "#error") {
			return false, fmt.Sprintf("0:%d(1): error: %s", i+1, strings.TrimSpace(line))
		}
	}
	return true, ""
}

func (d *Driver) DeleteShader(shader uint32) {
	d.Calls = append(d.Calls, "DeleteShader")
	d.free(shader)
}

func (d *Driver) CreateProgram() uint32 {
	d.Calls = append(d.Calls, "CreateProgram")
	return d.alloc("program")
}

func (d *Driver) LinkProgram(program uint32, shaders ...uint32) (bool, string) {
	d.Calls = append(d.Calls, "LinkProgram")
	for _, s := range shaders {
		if strings.Contains(d.sources[s], "// link-fail") {
			return false, "error: linking failed: unresolved varying"
		}
	}
	return true, ""
}

func (d *Driver) UseProgram(program uint32) {
	d.Calls = append(d.Calls, "UseProgram")
}

func (d *Driver) DeleteProgram(program uint32) {
	d.Calls = append(d.Calls, "DeleteProgram")
	d.free(program)
}

func (d *Driver) UploadVertices(data []float32, stride int, attribs []render.Attrib) (uint32, uint32) {
	d.Calls = append(d.Calls, "UploadVertices")
	d.Uploads++
	return d.alloc("vao"), d.alloc("vbo")
}

func (d *Driver) BindVertices(vao uint32) {
	d.Calls = append(d.Calls, "BindVertices")
}

func (d *Driver) DeleteVertices(vao, vbo uint32) {
	d.Calls = append(d.Calls, "DeleteVertices")
	d.free(vao)
	d.free(vbo)
}

func (d *Driver) UploadTexture(width, height, stride int, pix []byte) uint32 {
	d.Calls = append(d.Calls, "UploadTexture")
	d.Textures++
	return d.alloc("texture")
}

func (d *Driver) BindTexture(unit int, texture uint32) {
	d.Calls = append(d.Calls, "BindTexture")
}

func (d *Driver) DeleteTexture(texture uint32) {
	d.Calls = append(d.Calls, "DeleteTexture")
	d.free(texture)
}

func (d *Driver) Uniform1i(program uint32, name string, v int32) {
	d.Uniforms[name] = float32(v)
}

func (d *Driver) Uniform1f(program uint32, name string, v float32) {
	d.Uniforms[name] = v
}

func (d *Driver) Uniform2f(program uint32, name string, x, y float32) {
	d.Uniforms[name+".x"] = x
	d.Uniforms[name+".y"] = y
}

func (d *Driver) Viewport(width, height int) {
	d.Calls = append(d.Calls, "Viewport")
}

func (d *Driver) Clear(r, g, b, a float32) {
	d.Calls = append(d.Calls, "Clear")
	d.LastClear = [4]float32{r, g, b, a}
}

func (d *Driver) DrawTriangles(first, count int) {
	d.Calls = append(d.Calls, "DrawTriangles")
	d.Draws++
}
