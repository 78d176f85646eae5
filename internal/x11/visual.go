package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/glx"
	"github.com/BurntSushi/xgb/xproto"
)

// ErrNoVisual is returned when no visual satisfies the requirements.
var ErrNoVisual = errors.New("no appropriate visual found")

// Each GetVisualConfigs entry starts with these fixed properties, followed
// by (attribute, value) pairs.
const (
	propVisualID = iota
	propClass
	propRGBA
	propRedSize
	propGreenSize
	propBlueSize
	propAlphaSize
	propAccumRedSize
	propAccumGreenSize
	propAccumBlueSize
	propAccumAlphaSize
	propDoubleBuffer
	propStereo
	propBufferSize
	propDepthSize
	propStencilSize
	propAuxBuffers
	propLevel

	fixedVisualProps
)

// VisualConfig is one GLX-capable visual of the screen.
type VisualConfig struct {
	ID           xproto.Visualid
	Class        byte
	RGBA         bool
	RedSize      int
	GreenSize    int
	BlueSize     int
	AlphaSize    int
	DoubleBuffer bool
	BufferSize   int
	DepthSize    int
	StencilSize  int
}

// VisualRequirements is the minimum a visual must provide.
type VisualRequirements struct {
	DepthSize    int
	DoubleBuffer bool
}

func (r VisualRequirements) satisfiedBy(v VisualConfig) bool {
	if !v.RGBA || v.DepthSize < r.DepthSize {
		return false
	}
	return !r.DoubleBuffer || v.DoubleBuffer
}

// Check returns ErrNoVisual when v does not meet r.
func (r VisualRequirements) Check(v VisualConfig) error {
	if r.satisfiedBy(v) {
		return nil
	}
	return fmt.Errorf("%w: got depth %d, double buffer %t; need depth >= %d, double buffer %t",
		ErrNoVisual, v.DepthSize, v.DoubleBuffer, r.DepthSize, r.DoubleBuffer)
}

// ChooseVisual picks an RGBA visual meeting req from the server's GLX
// visual configurations.
func (s *Session) ChooseVisual(req VisualRequirements) (VisualConfig, error) {
	reply, err := glx.GetVisualConfigs(s.XUtil.Conn(), uint32(s.Screen)).Reply()
	if err != nil {
		return VisualConfig{}, fmt.Errorf("%w: %v", ErrNoVisual, err)
	}

	configs, err := parseVisualConfigs(reply.NumVisuals, reply.NumProperties, reply.PropertyList)
	if err != nil {
		return VisualConfig{}, fmt.Errorf("%w: %v", ErrNoVisual, err)
	}
	return selectVisual(configs, req)
}

func parseVisualConfigs(numVisuals, numProps uint32, props []uint32) ([]VisualConfig, error) {
	if numVisuals == 0 {
		return nil, nil
	}
	if numProps < fixedVisualProps {
		return nil, fmt.Errorf("visual config has %d properties, need at least %d", numProps, fixedVisualProps)
	}
	if uint64(len(props)) < uint64(numVisuals)*uint64(numProps) {
		return nil, fmt.Errorf("visual config list truncated: %d values for %d visuals", len(props), numVisuals)
	}

	configs := make([]VisualConfig, 0, numVisuals)
	for i := uint32(0); i < numVisuals; i++ {
		p := props[i*numProps : (i+1)*numProps]
		configs = append(configs, VisualConfig{
			ID:           xproto.Visualid(p[propVisualID]),
			Class:        byte(p[propClass]),
			RGBA:         p[propRGBA] != 0,
			RedSize:      int(p[propRedSize]),
			GreenSize:    int(p[propGreenSize]),
			BlueSize:     int(p[propBlueSize]),
			AlphaSize:    int(p[propAlphaSize]),
			DoubleBuffer: p[propDoubleBuffer] != 0,
			BufferSize:   int(p[propBufferSize]),
			DepthSize:    int(p[propDepthSize]),
			StencilSize:  int(p[propStencilSize]),
		})
	}
	return configs, nil
}

// selectVisual returns the first TrueColor match, or the first match of any
// class when no TrueColor visual qualifies.
func selectVisual(configs []VisualConfig, req VisualRequirements) (VisualConfig, error) {
	var fallback *VisualConfig
	for i := range configs {
		v := configs[i]
		if !req.satisfiedBy(v) {
			continue
		}
		if v.Class == xproto.VisualClassTrueColor {
			return v, nil
		}
		if fallback == nil {
			fallback = &configs[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return VisualConfig{}, ErrNoVisual
}
