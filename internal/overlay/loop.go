package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/coomer/internal/input"
	"github.com/1broseidon/coomer/internal/render"
)

// State is the render loop state.
type State int

const (
	Running State = iota
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// LoopConfig holds configuration for the render loop.
type LoopConfig struct {
	Width  int
	Height int
	// ReassertFocus re-focuses the surface before every event wait. Only
	// overlay mode needs it.
	ReassertFocus bool
	// TickInterval bounds the event wait; zero waits indefinitely.
	TickInterval time.Duration
	// ClosePollInterval is how often the graphics window is checked for a
	// window manager close request while waiting; zero never checks.
	ClosePollInterval time.Duration
	Flashlight        render.Flashlight
	Logger            *slog.Logger
}

// Loop draws a frame, presents it, then waits for exactly one event and
// dispatches it, until the dispatcher asks to quit.
type Loop struct {
	pipeline   *render.Pipeline
	graphics   Graphics
	surface    Surface
	dispatcher *input.Dispatcher
	logger     *slog.Logger

	width             int
	height            int
	reassertFocus     bool
	tickInterval      time.Duration
	closePollInterval time.Duration

	flashlight render.Flashlight
	cursorX    float32
	cursorY    float32

	state  State
	frames int
}

// NewLoop creates a loop in the Running state.
func NewLoop(cfg LoopConfig, pipeline *render.Pipeline, graphics Graphics, surface Surface, dispatcher *input.Dispatcher) *Loop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		pipeline:          pipeline,
		graphics:          graphics,
		surface:           surface,
		dispatcher:        dispatcher,
		logger:            logger,
		width:             cfg.Width,
		height:            cfg.Height,
		reassertFocus:     cfg.ReassertFocus,
		tickInterval:      cfg.TickInterval,
		closePollInterval: cfg.ClosePollInterval,
		flashlight:        cfg.Flashlight,
		cursorX:           float32(cfg.Width) / 2,
		cursorY:           float32(cfg.Height) / 2,
		state:             Running,
	}
}

// State returns the current loop state.
func (l *Loop) State() State { return l.state }

// Frames returns the number of frames presented.
func (l *Loop) Frames() int { return l.frames }

// Flashlight returns the current effect state.
func (l *Loop) Flashlight() render.Flashlight { return l.flashlight }

type eventResult struct {
	ev  input.Event
	err error
}

// pump forwards surface events until the surface fails or done closes.
func pump(surface Surface, out chan<- eventResult, done <-chan struct{}) {
	for {
		ev, err := surface.NextEvent()
		select {
		case out <- eventResult{ev: ev, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Run iterates until quit, context cancellation or a fatal error. It leaves
// the loop in ShuttingDown; teardown belongs to the owner of the resources.
// Cancelling ctx is treated as a quit request.
func (l *Loop) Run(ctx context.Context) error {
	if l.state != Running {
		return fmt.Errorf("loop is %s", l.state)
	}

	events := make(chan eventResult)
	done := make(chan struct{})
	defer close(done)
	go pump(l.surface, events, done)

	var tick <-chan time.Time
	if l.tickInterval > 0 {
		ticker := time.NewTicker(l.tickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	var poll <-chan time.Time
	if l.closePollInterval > 0 {
		ticker := time.NewTicker(l.closePollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	l.logger.Info("render loop started", "reassert_focus", l.reassertFocus, "tick_interval", l.tickInterval)

	for l.state == Running {
		if err := l.frame(); err != nil {
			l.state = ShuttingDown
			return fmt.Errorf("frame %d: %w", l.frames+1, err)
		}

		if l.reassertFocus {
			l.surface.ReassertFocus()
		}

		// Cancellation wins over events that are already pending.
		if ctx.Err() != nil {
			l.cancel(ctx)
			continue
		}

		ev, err := l.wait(ctx, events, tick, poll)
		if err != nil {
			l.state = ShuttingDown
			return fmt.Errorf("waiting for events: %w", err)
		}
		if ev == nil {
			l.cancel(ctx)
			continue
		}

		action := l.dispatcher.Dispatch(ev)
		l.logger.Debug("event dispatched", "event", fmt.Sprintf("%T", ev), "action", action)
		l.apply(action, ev)
	}

	l.logger.Info("render loop stopped", "frames", l.frames)
	return nil
}

// wait blocks until the next event. A nil event with a nil error means ctx
// was cancelled. Close polls that find nothing keep waiting without a redraw.
func (l *Loop) wait(ctx context.Context, events <-chan eventResult, tick, poll <-chan time.Time) (input.Event, error) {
	for {
		select {
		case r := <-events:
			return r.ev, r.err
		case <-tick:
			return input.Tick{}, nil
		case <-poll:
			if l.graphics.CloseRequested() {
				return input.CloseRequest{}, nil
			}
		case <-ctx.Done():
			return nil, nil
		}
	}
}

// frame advances the effect, draws and presents one frame.
func (l *Loop) frame() error {
	l.flashlight.Tick()
	err := l.pipeline.Draw(render.Frame{
		Width:      l.width,
		Height:     l.height,
		CursorX:    l.cursorX,
		CursorY:    l.cursorY,
		Flashlight: l.flashlight,
	})
	if err != nil {
		return err
	}
	if err := l.graphics.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	l.frames++
	return nil
}

func (l *Loop) cancel(ctx context.Context) {
	l.logger.Info("render loop cancelled", "reason", context.Cause(ctx))
	l.apply(input.Quit, nil)
}

func (l *Loop) apply(action input.Action, ev input.Event) {
	switch action {
	case input.Quit:
		if l.state == Running {
			l.state = ShuttingDown
		}
	case input.ToggleFlashlight:
		l.flashlight.Toggle()
		l.logger.Debug("flashlight toggled", "enabled", l.flashlight.Enabled)
	case input.MoveCursor:
		if m, ok := ev.(input.Motion); ok {
			l.cursorX, l.cursorY = float32(m.X), float32(m.Y)
		}
	}
}

// stop marks the loop terminal once teardown has run.
func (l *Loop) stop() {
	l.state = Stopped
}
