package render

// Flashlight is the per-frame state of the spotlight mask.
type Flashlight struct {
	Enabled          bool
	ShadowPercentage float32
	Radius           float32
	DeltaRadius      float32
	MinRadius        float32
	MaxRadius        float32
}

// DefaultFlashlight returns the startup state.
func DefaultFlashlight() Flashlight {
	return Flashlight{
		Enabled:          false,
		ShadowPercentage: 0.1,
		Radius:           200,
		DeltaRadius:      0,
		MinRadius:        50,
		MaxRadius:        1000,
	}
}

// Tick advances the radius by one frame and clamps it to [MinRadius, MaxRadius].
// It is called once per rendered frame, so the animation speed follows the
// frame rate.
func (f *Flashlight) Tick() {
	f.Radius += f.DeltaRadius
	f.clamp()
}

// Toggle flips the effect on or off.
func (f *Flashlight) Toggle() {
	f.Enabled = !f.Enabled
}

func (f *Flashlight) clamp() {
	if f.MaxRadius > 0 && f.Radius > f.MaxRadius {
		f.Radius = f.MaxRadius
	}
	if f.Radius < f.MinRadius {
		f.Radius = f.MinRadius
	}
	if f.Radius < 0 {
		f.Radius = 0
	}
}
