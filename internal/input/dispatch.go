package input

import "fmt"

// Keysyms recognized by the dispatcher.
const (
	keysymEscape = 0xff1b
	keysymQ      = 0x0051
	keysymq      = 0x0071
	keysymF      = 0x0046
	keysymf      = 0x0066
)

// Action is the semantic result of dispatching one event.
type Action int

const (
	NoOp Action = iota
	Quit
	ToggleFlashlight
	MoveCursor
)

func (a Action) String() string {
	switch a {
	case NoOp:
		return "noop"
	case Quit:
		return "quit"
	case ToggleFlashlight:
		return "toggle-flashlight"
	case MoveCursor:
		return "move-cursor"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// KeysymLookup resolves a keycode to a keysym in the given keyboard mapping
// column (0 unshifted, 1 shifted).
type KeysymLookup func(keycode byte, column int) uint32

// Dispatcher maps raw events to actions. It never touches run state or
// performs teardown; the render loop applies the returned action.
type Dispatcher struct {
	lookup KeysymLookup
}

// NewDispatcher creates a dispatcher using lookup for keysym resolution.
func NewDispatcher(lookup KeysymLookup) *Dispatcher {
	return &Dispatcher{lookup: lookup}
}

// Dispatch translates ev into an action. Unknown variants yield NoOp.
func (d *Dispatcher) Dispatch(ev Event) Action {
	switch e := ev.(type) {
	case KeyPress:
		return d.OnKeyPress(e)
	case Expose:
		return d.OnExpose(e)
	case Motion:
		return MoveCursor
	case CloseRequest:
		return Quit
	default:
		return NoOp
	}
}

// OnKeyPress returns Quit for q or Escape, in either the unshifted column or
// the column selected by the Shift modifier.
func (d *Dispatcher) OnKeyPress(ev KeyPress) Action {
	if d.lookup == nil {
		return NoOp
	}

	column := 0
	if ev.State&ShiftMask != 0 {
		column = 1
	}

	syms := []uint32{d.lookup(ev.Keycode, column)}
	if column != 0 {
		syms = append(syms, d.lookup(ev.Keycode, 0))
	}

	for _, sym := range syms {
		switch sym {
		case keysymq, keysymQ, keysymEscape:
			return Quit
		}
	}
	for _, sym := range syms {
		switch sym {
		case keysymf, keysymF:
			return ToggleFlashlight
		}
	}
	return NoOp
}

// OnExpose is a no-op: every loop iteration redraws unconditionally.
func (d *Dispatcher) OnExpose(Expose) Action {
	return NoOp
}
