package input

import "testing"

// US layout fragment: keycode -> {unshifted, shifted}.
var testKeymap = map[byte][2]uint32{
	9:  {keysymEscape, keysymEscape},
	24: {keysymq, keysymQ},
	38: {0x0061, 0x0041}, // a, A
	41: {keysymf, keysymF},
}

func testLookup(keycode byte, column int) uint32 {
	syms, ok := testKeymap[keycode]
	if !ok || column < 0 || column > 1 {
		return 0
	}
	return syms[column]
}

func TestOnKeyPressQuitKeys(t *testing.T) {
	d := NewDispatcher(testLookup)

	tests := []struct {
		name string
		ev   KeyPress
		want Action
	}{
		{"q", KeyPress{Keycode: 24}, Quit},
		{"shift+q", KeyPress{Keycode: 24, State: ShiftMask}, Quit},
		{"escape", KeyPress{Keycode: 9}, Quit},
		{"shift+escape", KeyPress{Keycode: 9, State: ShiftMask}, Quit},
		{"a", KeyPress{Keycode: 38}, NoOp},
		{"shift+a", KeyPress{Keycode: 38, State: ShiftMask}, NoOp},
		{"unmapped", KeyPress{Keycode: 200}, NoOp},
		{"f", KeyPress{Keycode: 41}, ToggleFlashlight},
		{"shift+f", KeyPress{Keycode: 41, State: ShiftMask}, ToggleFlashlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Dispatch(tt.ev); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOnKeyPressChecksUnshiftedColumnWhenShifted(t *testing.T) {
	// A layout whose shifted column for the q key carries no symbol.
	lookup := func(keycode byte, column int) uint32 {
		if keycode == 24 && column == 0 {
			return keysymq
		}
		return 0
	}
	d := NewDispatcher(lookup)
	if got := d.OnKeyPress(KeyPress{Keycode: 24, State: ShiftMask}); got != Quit {
		t.Fatalf("expected quit from unshifted column, got %s", got)
	}
}

func TestDispatchNonKeyEvents(t *testing.T) {
	d := NewDispatcher(testLookup)

	tests := []struct {
		ev   Event
		want Action
	}{
		{Expose{Count: 0}, NoOp},
		{Tick{}, NoOp},
		{Other{Kind: "ConfigureNotify"}, NoOp},
		{Motion{X: 10, Y: 20}, MoveCursor},
		{CloseRequest{}, Quit},
		{nil, NoOp},
	}
	for _, tt := range tests {
		if got := d.Dispatch(tt.ev); got != tt.want {
			t.Fatalf("dispatch %#v: expected %s, got %s", tt.ev, tt.want, got)
		}
	}
}

func TestNilLookupNeverQuits(t *testing.T) {
	d := NewDispatcher(nil)
	if got := d.Dispatch(KeyPress{Keycode: 24}); got != NoOp {
		t.Fatalf("expected noop without keymap, got %s", got)
	}
}
