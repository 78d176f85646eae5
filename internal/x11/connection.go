package x11

import (
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// ErrConnection is returned when no X display server is reachable.
var ErrConnection = errors.New("cannot connect to the X display server")

// ErrConnectionClosed is returned by event waits once the connection is gone.
var ErrConnectionClosed = errors.New("X connection closed")

// Session owns the X11 connection and the selected screen's geometry.
type Session struct {
	XUtil  *xgbutil.XUtil
	Root   xproto.Window
	Screen int
	Width  int
	Height int

	capturer Capturer
	closed   bool
}

// Open connects to display (empty means $DISPLAY) and caches the geometry
// of the default screen's root window.
func Open(display string) (*Session, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	// Required for keysym lookups on key events.
	keybind.Initialize(xu)

	s := &Session{
		XUtil:  xu,
		Root:   xu.RootWin(),
		Screen: xu.Conn().DefaultScreen,
	}

	screen := xu.Screen()
	s.Width, s.Height = int(screen.WidthInPixels), int(screen.HeightInPixels)
	if geom, err := xproto.GetGeometry(xu.Conn(), xproto.Drawable(s.Root)).Reply(); err == nil {
		s.Width, s.Height = int(geom.Width), int(geom.Height)
	}

	s.capturer = newPlainCapturer(s)
	return s, nil
}

// Bounds returns the screen rectangle at offset (0,0).
func (s *Session) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Keysym resolves keycode in the given keyboard mapping column.
func (s *Session) Keysym(keycode byte, column int) uint32 {
	return uint32(keybind.KeysymGet(s.XUtil, xproto.Keycode(keycode), byte(column)))
}

// Close disconnects from the X server. Only the first call has an effect.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.capturer != nil {
		err = s.capturer.Close()
	}
	s.XUtil.Conn().Close()
	return err
}
