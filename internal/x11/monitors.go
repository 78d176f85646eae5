package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/randr"
)

// Monitor is one active CRTC output in root-window coordinates.
type Monitor struct {
	ID     int
	Name   string
	Bounds image.Rectangle
}

// Monitors lists active monitors using XRandR.
func (s *Session) Monitors() ([]Monitor, error) {
	conn := s.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(conn, s.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		x, y := int(info.X), int(info.Y)
		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			Bounds: image.Rect(x, y, x+int(info.Width), y+int(info.Height)),
		})
	}
	return monitors, nil
}

// FindMonitor returns the monitor whose name or numeric ID matches key.
func FindMonitor(monitors []Monitor, key string) (Monitor, bool) {
	for _, m := range monitors {
		if m.Name == key || fmt.Sprint(m.ID) == key {
			return m, true
		}
	}
	return Monitor{}, false
}
