package overlay

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/coomer/internal/input"
	"github.com/1broseidon/coomer/internal/render"
	"github.com/1broseidon/coomer/internal/render/rendertest"
	"github.com/1broseidon/coomer/internal/x11"
)

const (
	keycodeQ = 24
	keycodeF = 41
	keycodeA = 38

	previousFocus = 0x1a00007
	overlayWindow = 0x3c00002
)

// recorder is the ordered log of calls across all fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.snapshot() {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) index(call string) int {
	for i, c := range r.snapshot() {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeSession struct {
	rec        *recorder
	glx        x11.Version
	visualErr  error
	captureErr error
	surface    *fakeSurface
	closed     bool
}

func (s *fakeSession) NegotiateGLX(floor x11.Version) (x11.Version, error) {
	s.rec.add("negotiate")
	if err := x11.CheckVersion(s.glx, floor); err != nil {
		return s.glx, err
	}
	return s.glx, nil
}

func (s *fakeSession) ChooseVisual(req x11.VisualRequirements) (x11.VisualConfig, error) {
	s.rec.add("visual")
	if s.visualErr != nil {
		return x11.VisualConfig{}, s.visualErr
	}
	return x11.VisualConfig{ID: 0x21, DepthSize: req.DepthSize, DoubleBuffer: req.DoubleBuffer}, nil
}

func (s *fakeSession) UseCaptureStrategy(strategy string) (string, error) {
	return x11.CapturePlain, nil
}

func (s *fakeSession) Capture(region image.Rectangle) (*x11.PixelBuffer, error) {
	s.rec.add("capture")
	if s.captureErr != nil {
		return nil, &x11.CaptureError{Region: region, Err: s.captureErr}
	}
	b := s.Bounds()
	pix := make([]byte, b.Dx()*b.Dy()*4)
	return x11.NewPixelBuffer(b.Dx(), b.Dy(), b.Dx()*4, pix, func() error {
		s.rec.add("release screenshot")
		return nil
	}), nil
}

func (s *fakeSession) Bounds() image.Rectangle { return image.Rect(0, 0, 64, 48) }

func (s *fakeSession) Keysym(keycode byte, column int) uint32 {
	switch keycode {
	case keycodeQ:
		if column == 1 {
			return 0x51 // Q
		}
		return 0x71 // q
	case keycodeF:
		if column == 1 {
			return 0x46 // F
		}
		return 0x66 // f
	case keycodeA:
		return 0x61 // a
	}
	return 0
}

func (s *fakeSession) AttachSurface(window uint32, opts x11.SurfaceOptions) (Surface, error) {
	s.rec.add("attach")
	s.surface.window = window
	s.surface.opts = opts
	return s.surface, nil
}

func (s *fakeSession) Close() error {
	s.rec.add("close session")
	s.closed = true
	return nil
}

// fakeSurface replays a scripted event list and then blocks until closed.
type fakeSurface struct {
	rec      *recorder
	window   uint32
	opts     x11.SurfaceOptions
	events   chan input.Event
	eventErr error
	done     chan struct{}
	once     sync.Once

	mu        sync.Mutex
	focused   uint32
	reasserts int
	restored  map[*x11.Focus]bool
	mapped    bool
}

func newFakeSurface(rec *recorder, events ...input.Event) *fakeSurface {
	ch := make(chan input.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	return &fakeSurface{rec: rec, events: ch, done: make(chan struct{}), focused: previousFocus}
}

func (sf *fakeSurface) Map() error {
	sf.rec.add("map")
	sf.mapped = true
	return nil
}

func (sf *fakeSurface) CaptureFocus() (*x11.Focus, error) {
	sf.rec.add("capture focus")
	sf.mu.Lock()
	defer sf.mu.Unlock()
	f := &x11.Focus{Window: xproto.Window(sf.focused)}
	sf.focused = sf.window
	return f, nil
}

func (sf *fakeSurface) ReassertFocus() {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.reasserts++
	sf.focused = sf.window
}

func (sf *fakeSurface) RestoreFocus(f *x11.Focus) error {
	sf.rec.add("restore focus")
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.restored[f] {
		return x11.ErrFocusRestored
	}
	if sf.restored == nil {
		sf.restored = make(map[*x11.Focus]bool)
	}
	sf.restored[f] = true
	sf.focused = uint32(f.Window)
	return nil
}

func (sf *fakeSurface) NextEvent() (input.Event, error) {
	select {
	case ev := <-sf.events:
		return ev, nil
	default:
	}
	if sf.eventErr != nil {
		return nil, sf.eventErr
	}
	<-sf.done
	return nil, x11.ErrConnectionClosed
}

func (sf *fakeSurface) Close() error {
	sf.rec.add("close surface")
	sf.once.Do(func() { close(sf.done) })
	sf.mapped = false
	return nil
}

func (sf *fakeSurface) Focused() uint32 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.focused
}

func (sf *fakeSurface) Reasserts() int {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.reasserts
}

type fakeGraphics struct {
	rec         *recorder
	driver      *rendertest.Driver
	framebuffer x11.VisualConfig
	presents    int
	presentErr  error
	onPresent   func(n int)
	closing     bool // set once the window manager asks to close
	closePolls  int
	destroyed   bool
}

func (g *fakeGraphics) WindowID() uint32      { return overlayWindow }
func (g *fakeGraphics) Version() string       { return "3.3 (Core Profile) fake" }
func (g *fakeGraphics) Driver() render.Driver { return g.driver }

func (g *fakeGraphics) Framebuffer() x11.VisualConfig { return g.framebuffer }

func (g *fakeGraphics) CloseRequested() bool {
	g.closePolls++
	return g.closing
}

func (g *fakeGraphics) Present() error {
	if g.presentErr != nil {
		return g.presentErr
	}
	g.presents++
	if g.onPresent != nil {
		g.onPresent(g.presents)
	}
	return nil
}

func (g *fakeGraphics) Deactivate() { g.rec.add("deactivate") }

func (g *fakeGraphics) Destroy() {
	g.rec.add("destroy graphics")
	g.destroyed = true
}

// harness wires the fakes together with shader files in a temp dir.
type harness struct {
	rec      *recorder
	session  *fakeSession
	surface  *fakeSurface
	graphics *fakeGraphics
	opts     Options
}

const (
	validVertex   = "#version 330 core\nlayout (location = 0) in vec3 aPos;\nvoid main() { gl_Position = vec4(aPos, 1.0); }\n"
	validFragment = "#version 330 core\nout vec4 color;\nvoid main() { color = vec4(1.0); }\n"
)

func newHarness(t *testing.T, events ...input.Event) *harness {
	t.Helper()
	dir := t.TempDir()
	vs := filepath.Join(dir, "vertex.glsl")
	fs := filepath.Join(dir, "fragment.glsl")
	if err := os.WriteFile(vs, []byte(validVertex), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(fs, []byte(validFragment), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rec := &recorder{}
	surface := newFakeSurface(rec, events...)
	return &harness{
		rec:      rec,
		session:  &fakeSession{rec: rec, glx: x11.Version{Major: 1, Minor: 4}, surface: surface},
		surface:  surface,
		graphics: &fakeGraphics{
			rec:         rec,
			driver:      rendertest.NewDriver(),
			framebuffer: x11.VisualConfig{RGBA: true, DepthSize: 24, DoubleBuffer: true},
		},
		opts: Options{
			VertexShader:    vs,
			FragmentShader:  fs,
			GLXFloor:        x11.Version{Major: 1, Minor: 3},
			Visual:          x11.VisualRequirements{DepthSize: 24, DoubleBuffer: true},
			Flashlight:      render.DefaultFlashlight(),
			CaptureStrategy: x11.CapturePlain,
		},
	}
}

func (h *harness) app() *App {
	return New(h.opts, Backend{
		OpenSession: func(string) (Session, error) {
			h.rec.add("open session")
			return h.session, nil
		},
		NewGraphics: func(GraphicsOptions) (Graphics, error) {
			h.rec.add("new graphics")
			return h.graphics, nil
		},
	}, nil)
}

func keyPress(keycode byte, shift bool) input.KeyPress {
	ev := input.KeyPress{Keycode: keycode}
	if shift {
		ev.State = input.ShiftMask
	}
	return ev
}

var errBoom = errors.New("boom")
