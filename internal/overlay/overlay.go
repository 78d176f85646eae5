// Package overlay runs the full-screen overlay: it builds the display
// session, GL context, shader pipeline and surface in order, drives the
// render/event loop and tears everything down at a single point.
package overlay

import (
	"image"
	"time"

	"github.com/1broseidon/coomer/internal/config"
	"github.com/1broseidon/coomer/internal/input"
	"github.com/1broseidon/coomer/internal/render"
	"github.com/1broseidon/coomer/internal/x11"
)

// Window identity set on the overlay surface.
const (
	WindowName  = "coomer"
	WindowClass = "coomer"
)

// Session is the display connection as the overlay uses it.
type Session interface {
	NegotiateGLX(floor x11.Version) (x11.Version, error)
	ChooseVisual(req x11.VisualRequirements) (x11.VisualConfig, error)
	UseCaptureStrategy(strategy string) (string, error)
	Capture(region image.Rectangle) (*x11.PixelBuffer, error)
	Bounds() image.Rectangle
	Keysym(keycode byte, column int) uint32
	AttachSurface(window uint32, opts x11.SurfaceOptions) (Surface, error)
	Close() error
}

// Surface is the mapped overlay window.
type Surface interface {
	Map() error
	CaptureFocus() (*x11.Focus, error)
	ReassertFocus()
	RestoreFocus(f *x11.Focus) error
	// NextEvent blocks until an event arrives or the connection closes.
	NextEvent() (input.Event, error)
	Close() error
}

// Graphics is a GL context bound to an unmapped window.
type Graphics interface {
	WindowID() uint32
	Version() string
	Driver() render.Driver
	// Framebuffer describes the drawable the context actually got.
	Framebuffer() x11.VisualConfig
	Present() error
	// CloseRequested processes the context's own window events and reports
	// whether the window manager asked to close the window. Client messages
	// sent to the window reach the connection that created it, not the
	// session.
	CloseRequested() bool
	Deactivate()
	Destroy()
}

// GraphicsOptions describes the drawable a Graphics is created with.
type GraphicsOptions struct {
	Windowed     bool
	Width        int
	Height       int
	Title        string
	DepthBits    int
	DoubleBuffer bool
}

// Backend opens the platform resources. Production wiring lives in the
// command; tests substitute fakes.
type Backend struct {
	OpenSession func(display string) (Session, error)
	NewGraphics func(opts GraphicsOptions) (Graphics, error)
}

// Options is everything the overlay needs from configuration.
type Options struct {
	Windowed        bool
	Display         string
	VertexShader    string
	FragmentShader  string
	GLXFloor        x11.Version
	Visual          x11.VisualRequirements
	Flashlight      render.Flashlight
	TickInterval    time.Duration
	CaptureStrategy string
}

// OptionsFromConfig maps the loaded configuration to overlay options.
func OptionsFromConfig(cfg *config.Config) Options {
	fl := cfg.Flashlight
	return Options{
		Windowed:       cfg.Windowed,
		Display:        cfg.Display,
		VertexShader:   cfg.Shaders.Vertex,
		FragmentShader: cfg.Shaders.Fragment,
		GLXFloor:       x11.Version{Major: cfg.GLX.MinMajor, Minor: cfg.GLX.MinMinor},
		Visual: x11.VisualRequirements{
			DepthSize:    cfg.Visual.DepthSize,
			DoubleBuffer: cfg.Visual.DoubleBuffer,
		},
		Flashlight: render.Flashlight{
			Enabled:          fl.Enabled,
			ShadowPercentage: fl.ShadowPercentage,
			Radius:           fl.Radius,
			DeltaRadius:      fl.DeltaRadius,
			MinRadius:        fl.MinRadius,
			MaxRadius:        fl.MaxRadius,
		},
		TickInterval:    cfg.TickInterval,
		CaptureStrategy: cfg.Capture.Strategy,
	}
}
