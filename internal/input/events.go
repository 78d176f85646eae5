package input

// Event is one input event delivered to the overlay. The set of variants is
// closed: KeyPress, Expose, Motion, CloseRequest, Tick and Other.
type Event interface {
	isEvent()
}

// ShiftMask is the modifier bit for Shift in KeyPress.State.
const ShiftMask = 1 << 0

// KeyPress is a raw key event: hardware keycode plus modifier state.
type KeyPress struct {
	Keycode byte
	State   uint16
}

// Expose reports that part of the surface needs repainting.
type Expose struct {
	Count int
}

// Motion reports the pointer position relative to the surface.
type Motion struct {
	X int
	Y int
}

// CloseRequest is an external cooperative close request (WM_DELETE_WINDOW).
type CloseRequest struct{}

// Tick is emitted when a bounded event wait expires without input.
type Tick struct{}

// Other carries any event kind the overlay does not act on.
type Other struct {
	Kind string
}

func (KeyPress) isEvent()     {}
func (Expose) isEvent()       {}
func (Motion) isEvent()       {}
func (CloseRequest) isEvent() {}
func (Tick) isEvent()         {}
func (Other) isEvent()        {}
