package overlay

import (
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/coomer/internal/x11"
)

type x11Session struct {
	*x11.Session
}

// OpenX11 opens the X display and adapts it to Session.
func OpenX11(display string) (Session, error) {
	s, err := x11.Open(display)
	if err != nil {
		return nil, err
	}
	return x11Session{s}, nil
}

func (s x11Session) AttachSurface(window uint32, opts x11.SurfaceOptions) (Surface, error) {
	sf, err := s.Session.AttachSurface(xproto.Window(window), opts)
	if err != nil {
		return nil, err
	}
	return sf, nil
}
