package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/1broseidon/coomer/internal/input"
	"github.com/1broseidon/coomer/internal/render"
	"github.com/1broseidon/coomer/internal/x11"
)

var errNotStarted = errors.New("overlay not started")

// closePollInterval is how often a windowed overlay checks for a window
// manager close request.
const closePollInterval = 50 * time.Millisecond

// App owns every resource of one overlay run. Resources are created in
// Start and released in Shutdown, nowhere else.
type App struct {
	opts    Options
	backend Backend
	logger  *slog.Logger

	session  Session
	graphics Graphics
	pipeline *render.Pipeline
	surface  Surface
	focus    *x11.Focus
	loop     *Loop

	shutdown bool
}

// New creates an App; nothing is opened until Start.
func New(opts Options, backend Backend, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{opts: opts, backend: backend, logger: logger}
}

// Loop returns the render loop, nil before a successful Start.
func (a *App) Loop() *Loop { return a.loop }

// Start brings the overlay up: session, GLX check, visual, screenshot, GL
// context, shader pipeline, surface, map, focus. Shaders are loaded before
// the surface is mapped. On failure everything created so far is released
// and the returned error carries the cause.
func (a *App) Start() error {
	if err := a.start(); err != nil {
		if terr := a.Shutdown(); terr != nil {
			return errors.Join(err, terr)
		}
		return err
	}
	return nil
}

func (a *App) start() error {
	log := a.logger

	session, err := a.backend.OpenSession(a.opts.Display)
	if err != nil {
		return err
	}
	a.session = session
	bounds := session.Bounds()
	log.Info("display session opened", "display", a.opts.Display, "width", bounds.Dx(), "height", bounds.Dy())

	have, err := session.NegotiateGLX(a.opts.GLXFloor)
	if err != nil {
		return err
	}
	log.Info("glx negotiated", "version", have.String(), "floor", a.opts.GLXFloor.String())

	visual, err := session.ChooseVisual(a.opts.Visual)
	if err != nil {
		return err
	}
	log.Debug("visual selected", "id", fmt.Sprintf("0x%x", visual.ID), "depth", visual.DepthSize, "double_buffer", visual.DoubleBuffer)

	strategy, err := session.UseCaptureStrategy(a.opts.CaptureStrategy)
	if err != nil {
		return err
	}
	// The screen is captured before anything of ours is mapped.
	shot, err := session.Capture(image.Rectangle{})
	if err != nil {
		return err
	}
	log.Debug("screenshot captured", "strategy", strategy, "width", shot.Width(), "height", shot.Height())

	graphics, err := a.backend.NewGraphics(GraphicsOptions{
		Windowed:     a.opts.Windowed,
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		Title:        WindowName,
		DepthBits:    a.opts.Visual.DepthSize,
		DoubleBuffer: a.opts.Visual.DoubleBuffer,
	})
	if err != nil {
		shot.Release()
		return err
	}
	a.graphics = graphics
	fb := graphics.Framebuffer()
	if err := a.opts.Visual.Check(fb); err != nil {
		shot.Release()
		return fmt.Errorf("gl framebuffer: %w", err)
	}
	log.Info("gl context created", "version", graphics.Version(), "depth", fb.DepthSize, "double_buffer", fb.DoubleBuffer)

	a.pipeline = render.NewPipeline(graphics.Driver())
	if err := a.pipeline.Build(a.opts.VertexShader, a.opts.FragmentShader); err != nil {
		shot.Release()
		return err
	}
	if err := a.uploadScreenshot(shot); err != nil {
		return err
	}

	surface, err := session.AttachSurface(graphics.WindowID(), x11.SurfaceOptions{
		Windowed: a.opts.Windowed,
		Name:     WindowName,
		Class:    WindowClass,
	})
	if err != nil {
		return err
	}
	a.surface = surface

	if err := surface.Map(); err != nil {
		return err
	}
	focus, err := surface.CaptureFocus()
	a.focus = focus
	if err != nil {
		return err
	}
	log.Info("overlay mapped", "windowed", a.opts.Windowed, "previous_focus", fmt.Sprintf("0x%x", focus.Window))

	loopCfg := LoopConfig{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		ReassertFocus: !a.opts.Windowed,
		TickInterval:  a.opts.TickInterval,
		Flashlight:    a.opts.Flashlight,
		Logger:        log,
	}
	if a.opts.Windowed {
		loopCfg.ClosePollInterval = closePollInterval
	}
	a.loop = NewLoop(loopCfg, a.pipeline, graphics, surface, input.NewDispatcher(session.Keysym))
	return nil
}

// uploadScreenshot hands the capture to the GPU and releases it either way.
func (a *App) uploadScreenshot(shot *x11.PixelBuffer) error {
	pix, err := shot.Pix()
	if err == nil {
		err = a.pipeline.UploadScreenshot(shot.Width(), shot.Height(), shot.Stride(), pix)
	}
	if rerr := shot.Release(); err == nil {
		err = rerr
	}
	return err
}

// Run drives the loop and then tears everything down. A nil return means
// the user quit and every resource was released.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errNotStarted
	}
	err := a.loop.Run(ctx)
	if terr := a.Shutdown(); terr != nil {
		err = errors.Join(err, terr)
	}
	return err
}

// Shutdown restores focus, releases the pipeline, deactivates the context,
// closes the surface, destroys the context and closes the session, in that
// order. Every step runs even if an earlier one fails. Only the first call
// has an effect.
func (a *App) Shutdown() error {
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			a.logger.Warn("teardown step failed", "step", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if a.surface != nil && a.focus != nil {
		step("restore focus", a.surface.RestoreFocus(a.focus))
	}
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	if a.graphics != nil {
		a.graphics.Deactivate()
	}
	if a.surface != nil {
		step("close surface", a.surface.Close())
	}
	if a.graphics != nil {
		a.graphics.Destroy()
	}
	if a.session != nil {
		step("close session", a.session.Close())
	}
	if a.loop != nil {
		a.loop.stop()
	}

	a.logger.Info("overlay shut down")
	return errors.Join(errs...)
}
