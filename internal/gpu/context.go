// Package gpu creates the OpenGL context and drawable for the overlay and
// implements the render driver on top of it.
package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/1broseidon/coomer/internal/render"
	"github.com/1broseidon/coomer/internal/x11"
)

// Options describes the drawable the context is created with.
type Options struct {
	Windowed     bool
	Width        int
	Height       int
	Title        string
	DepthBits    int
	DoubleBuffer bool
}

// Context is a current GL 3.3 core context bound to a hidden window. The
// window is handed to the X session for configuration and mapping.
type Context struct {
	window      *glfw.Window
	driver      *Driver
	deactivated bool
	destroyed   bool
}

func boolHint(v bool) int {
	if v {
		return glfw.True
	}
	return glfw.False
}

// New initializes GLFW, creates the window and makes its context current on
// the calling thread. The caller must hold the thread locked.
func New(opts Options) (*Context, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Decorated, boolHint(opts.Windowed))
	glfw.WindowHint(glfw.Resizable, boolHint(opts.Windowed))
	glfw.WindowHint(glfw.FocusOnShow, glfw.False)
	glfw.WindowHint(glfw.DepthBits, opts.DepthBits)
	glfw.WindowHint(glfw.DoubleBuffer, boolHint(opts.DoubleBuffer))
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		var gerr *glfw.Error
		if errors.As(err, &gerr) && gerr.Code == glfw.FormatUnavailable {
			return nil, fmt.Errorf("%w: %v", x11.ErrNoVisual, err)
		}
		return nil, fmt.Errorf("failed to create GL window: %w", err)
	}

	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to load GL functions: %w", err)
	}
	gl.Disable(gl.DEPTH_TEST)

	return &Context{window: win, driver: newDriver()}, nil
}

// WindowID returns the X11 id of the context's window.
func (c *Context) WindowID() uint32 {
	return uint32(c.window.GetX11Window())
}

// Version returns the GL version string reported by the driver.
func (c *Context) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// Driver returns the render driver bound to this context.
func (c *Context) Driver() render.Driver {
	return c.driver
}

// Framebuffer reports the default framebuffer GLFW picked for the hints.
func (c *Context) Framebuffer() x11.VisualConfig {
	var double bool
	gl.GetBooleanv(gl.DOUBLEBUFFER, &double)
	fb := x11.VisualConfig{RGBA: true, DoubleBuffer: double}

	color := uint32(gl.FRONT_LEFT)
	if double {
		color = gl.BACK_LEFT
	}
	for _, a := range []struct {
		attachment uint32
		pname      uint32
		size       *int
	}{
		{color, gl.FRAMEBUFFER_ATTACHMENT_RED_SIZE, &fb.RedSize},
		{color, gl.FRAMEBUFFER_ATTACHMENT_GREEN_SIZE, &fb.GreenSize},
		{color, gl.FRAMEBUFFER_ATTACHMENT_BLUE_SIZE, &fb.BlueSize},
		{color, gl.FRAMEBUFFER_ATTACHMENT_ALPHA_SIZE, &fb.AlphaSize},
		{gl.DEPTH, gl.FRAMEBUFFER_ATTACHMENT_DEPTH_SIZE, &fb.DepthSize},
		{gl.STENCIL, gl.FRAMEBUFFER_ATTACHMENT_STENCIL_SIZE, &fb.StencilSize},
	} {
		var v int32
		gl.GetFramebufferAttachmentParameteriv(gl.FRAMEBUFFER, a.attachment, a.pname, &v)
		// A missing attachment raises an error and leaves the size at 0.
		gl.GetError()
		*a.size = int(v)
	}
	fb.BufferSize = fb.RedSize + fb.GreenSize + fb.BlueSize + fb.AlphaSize
	return fb
}

// Present swaps the frame and blocks until the driver has finished it.
func (c *Context) Present() error {
	if c.deactivated {
		return errors.New("present on inactive context")
	}
	c.window.SwapBuffers()
	gl.Finish()
	glfw.PollEvents()
	return nil
}

// CloseRequested drains GLFW's connection and reports whether the window
// manager sent WM_DELETE_WINDOW. Only GLFW's connection receives it.
func (c *Context) CloseRequested() bool {
	if c.destroyed {
		return false
	}
	glfw.PollEvents()
	return c.window.ShouldClose()
}

// Deactivate releases the context from the current thread.
func (c *Context) Deactivate() {
	if c.deactivated {
		return
	}
	c.deactivated = true
	glfw.DetachCurrentContext()
}

// Destroy destroys the window together with its context and terminates
// GLFW. Only the first call has an effect.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.Deactivate()
	c.destroyed = true
	c.window.Destroy()
	glfw.Terminate()
}
