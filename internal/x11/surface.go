package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/1broseidon/coomer/internal/input"
)

// ErrFocusRestored is returned when a focus token is restored twice.
var ErrFocusRestored = errors.New("focus already restored")

// Events the overlay listens to. ButtonPress is left out: only one client
// may select it and the GL window's own connection already does.
const surfaceEventMask = xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskExposure |
	xproto.EventMaskStructureNotify

// SurfaceOptions controls how the overlay window is presented.
type SurfaceOptions struct {
	Windowed bool
	Name     string
	Class    string
}

// Surface is the overlay window as seen from the session's connection.
type Surface struct {
	session *Session
	Window  xproto.Window
	opts    SurfaceOptions
	atoms   wmAtoms
	mapped  bool
	closed  bool
}

// Focus is the input focus held before the overlay took it. It can be
// restored exactly once.
type Focus struct {
	Window   xproto.Window
	RevertTo byte
	// Active is the EWMH active window at capture time, 0 if unknown.
	Active   xproto.Window
	restored bool
}

// surfaceAttributes returns the CreateWindow/ChangeWindowAttributes mask and
// values for opts. Values follow mask bit order.
func surfaceAttributes(opts SurfaceOptions) (uint32, []uint32) {
	if opts.Windowed {
		return xproto.CwEventMask, []uint32{surfaceEventMask}
	}
	return xproto.CwOverrideRedirect | xproto.CwSaveUnder | xproto.CwEventMask,
		[]uint32{1, 1, surfaceEventMask}
}

// AttachSurface configures an existing, unmapped window as the overlay
// surface: attributes for the mode in opts, full-screen geometry, WM
// name/class hints and the WM_DELETE_WINDOW protocol.
func (s *Session) AttachSurface(win xproto.Window, opts SurfaceOptions) (*Surface, error) {
	xu := s.XUtil
	conn := xu.Conn()

	mask, values := surfaceAttributes(opts)
	if err := xproto.ChangeWindowAttributesChecked(conn, win, mask, values).Check(); err != nil {
		return nil, fmt.Errorf("failed to set overlay attributes: %w", err)
	}

	err := xproto.ConfigureWindowChecked(
		conn,
		win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{0, 0, uint32(s.Width), uint32(s.Height)},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to size overlay window: %w", err)
	}

	if opts.Name != "" {
		if err := icccm.WmNameSet(xu, win, opts.Name); err != nil {
			return nil, fmt.Errorf("failed to set WM_NAME: %w", err)
		}
		// Not every WM reads WM_NAME; ignore failures on the EWMH name.
		_ = ewmh.WmNameSet(xu, win, opts.Name)
	}
	if opts.Class != "" {
		class := &icccm.WmClass{Instance: opts.Name, Class: opts.Class}
		if err := icccm.WmClassSet(xu, win, class); err != nil {
			return nil, fmt.Errorf("failed to set WM_CLASS: %w", err)
		}
	}

	var atoms wmAtoms
	if atoms.protocols, err = xprop.Atm(xu, "WM_PROTOCOLS"); err != nil {
		return nil, fmt.Errorf("failed to intern WM_PROTOCOLS: %w", err)
	}
	if atoms.deleteWindow, err = xprop.Atm(xu, "WM_DELETE_WINDOW"); err != nil {
		return nil, fmt.Errorf("failed to intern WM_DELETE_WINDOW: %w", err)
	}
	if err := icccm.WmProtocolsSet(xu, win, []string{"WM_DELETE_WINDOW"}); err != nil {
		return nil, fmt.Errorf("failed to set WM_PROTOCOLS: %w", err)
	}

	return &Surface{
		session: s,
		Window:  win,
		opts:    opts,
		atoms:   atoms,
	}, nil
}

// Map maps the window and waits until the server reports it mapped, so focus
// can be set on it right away.
func (sf *Surface) Map() error {
	conn := sf.session.XUtil.Conn()
	if err := xproto.MapWindowChecked(conn, sf.Window).Check(); err != nil {
		return fmt.Errorf("failed to map overlay window: %w", err)
	}

	for {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return ErrConnectionClosed
		}
		if xerr != nil {
			return &ProtocolError{Err: xerr}
		}
		if mn, ok := ev.(xproto.MapNotifyEvent); ok && mn.Window == sf.Window {
			sf.mapped = true
			return nil
		}
	}
}

// CaptureFocus records the current focus holder and gives focus to the
// overlay.
func (sf *Surface) CaptureFocus() (*Focus, error) {
	xu := sf.session.XUtil
	reply, err := xproto.GetInputFocus(xu.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to query input focus: %w", err)
	}

	focus := &Focus{Window: reply.Focus, RevertTo: reply.RevertTo}
	if active, err := ewmh.ActiveWindowGet(xu); err == nil {
		focus.Active = active
	}

	err = xproto.SetInputFocusChecked(
		xu.Conn(),
		xproto.InputFocusParent,
		sf.Window,
		xproto.TimeCurrentTime,
	).Check()
	if err != nil {
		return focus, fmt.Errorf("failed to focus overlay window: %w", err)
	}
	return focus, nil
}

// ReassertFocus gives focus back to the overlay without waiting for a
// reply. Override-redirect windows can lose focus to the WM at any time.
func (sf *Surface) ReassertFocus() {
	xproto.SetInputFocus(
		sf.session.XUtil.Conn(),
		xproto.InputFocusParent,
		sf.Window,
		xproto.TimeCurrentTime,
	)
}

// RestoreFocus hands focus back to the window recorded in f. In windowed
// mode the WM is also asked to re-activate its previously active window.
func (sf *Surface) RestoreFocus(f *Focus) error {
	if f == nil {
		return nil
	}
	if f.restored {
		return ErrFocusRestored
	}
	f.restored = true

	xu := sf.session.XUtil
	err := xproto.SetInputFocusChecked(
		xu.Conn(),
		xproto.InputFocusParent,
		f.Window,
		xproto.TimeCurrentTime,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to restore input focus to 0x%x: %w", f.Window, err)
	}

	if sf.opts.Windowed && f.Active != 0 {
		if err := ewmh.ActiveWindowReq(xu, f.Active); err != nil {
			return fmt.Errorf("failed to re-activate window 0x%x: %w", f.Active, err)
		}
	}
	return nil
}

// NextEvent blocks until the next X event arrives and translates it.
func (sf *Surface) NextEvent() (input.Event, error) {
	ev, xerr := sf.session.XUtil.Conn().WaitForEvent()
	if ev == nil && xerr == nil {
		return nil, ErrConnectionClosed
	}
	if xerr != nil {
		return nil, &ProtocolError{Err: xerr}
	}
	return translateEvent(ev, sf.atoms), nil
}

// Close unmaps the overlay. The window itself belongs to the GL context and
// is destroyed with it.
func (sf *Surface) Close() error {
	if sf.closed {
		return nil
	}
	sf.closed = true
	if !sf.mapped {
		return nil
	}
	sf.mapped = false

	if err := xproto.UnmapWindowChecked(sf.session.XUtil.Conn(), sf.Window).Check(); err != nil {
		return fmt.Errorf("failed to unmap overlay window: %w", err)
	}
	return nil
}
