package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/coomer/internal/input"
)

// ProtocolError wraps an asynchronous X protocol error read from the event
// stream.
type ProtocolError struct {
	Err xgb.Error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("X protocol error: %s", e.Err.Error())
}

// wmAtoms are the interned atoms of the WM_DELETE_WINDOW protocol.
type wmAtoms struct {
	protocols    xproto.Atom
	deleteWindow xproto.Atom
}

// isDeleteWindow reports whether e is a WM_PROTOCOLS message carrying
// WM_DELETE_WINDOW.
func (a wmAtoms) isDeleteWindow(e xproto.ClientMessageEvent) bool {
	return e.Type == a.protocols &&
		e.Format == 32 &&
		len(e.Data.Data32) > 0 &&
		xproto.Atom(e.Data.Data32[0]) == a.deleteWindow
}

func translateEvent(ev xgb.Event, atoms wmAtoms) input.Event {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		return input.KeyPress{Keycode: byte(e.Detail), State: e.State}
	case xproto.ExposeEvent:
		return input.Expose{Count: int(e.Count)}
	case xproto.MotionNotifyEvent:
		return input.Motion{X: int(e.EventX), Y: int(e.EventY)}
	case xproto.ClientMessageEvent:
		if atoms.isDeleteWindow(e) {
			return input.CloseRequest{}
		}
		return input.Other{Kind: "ClientMessage"}
	default:
		return input.Other{Kind: eventKind(ev)}
	}
}

// eventKind turns "xproto.ConfigureNotifyEvent" into "ConfigureNotify".
func eventKind(ev xgb.Event) string {
	name := fmt.Sprintf("%T", ev)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "Event")
}
