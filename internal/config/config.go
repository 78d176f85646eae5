package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Shaders locates the two shader stage sources.
type Shaders struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// GLXVersion is the minimum GLX version the server must report.
type GLXVersion struct {
	MinMajor int `yaml:"min_major"`
	MinMinor int `yaml:"min_minor"`
}

// Visual holds the minimum visual requirements.
type Visual struct {
	DepthSize    int  `yaml:"depth_size"`
	DoubleBuffer bool `yaml:"double_buffer"`
}

// Flashlight holds the startup values of the spotlight effect.
type Flashlight struct {
	Enabled          bool    `yaml:"enabled"`
	ShadowPercentage float32 `yaml:"shadow_percentage"` // 0-1
	Radius           float32 `yaml:"radius"`            // pixels
	DeltaRadius      float32 `yaml:"delta_radius"`      // pixels per frame
	MinRadius        float32 `yaml:"min_radius"`
	MaxRadius        float32 `yaml:"max_radius"`
}

// Capture selects the screenshot strategy.
type Capture struct {
	// Strategy is one of: plain, shm, auto
	Strategy string `yaml:"strategy"`
}

// Config is the effective overlay configuration.
type Config struct {
	// Windowed makes the overlay an ordinary decorated, WM-managed window.
	Windowed bool `yaml:"windowed"`
	// Display overrides $DISPLAY when set.
	Display string `yaml:"display,omitempty"`
	// XAuthority overrides $XAUTHORITY when set.
	XAuthority string     `yaml:"xauthority,omitempty"`
	Shaders    Shaders    `yaml:"shaders"`
	GLX        GLXVersion `yaml:"glx"`
	Visual     Visual     `yaml:"visual"`
	Flashlight Flashlight `yaml:"flashlight"`
	// TickInterval bounds the event wait; 0 redraws only when an event arrives.
	TickInterval time.Duration `yaml:"tick_interval"`
	Capture      Capture       `yaml:"capture"`
	// LogLevel is one of: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

const (
	DefaultVertexShader   = "./shaders/vertex.glsl"
	DefaultFragmentShader = "./shaders/fragment.glsl"
	DefaultGLXMajor       = 1
	DefaultGLXMinor       = 3
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Windowed: false,
		Shaders: Shaders{
			Vertex:   DefaultVertexShader,
			Fragment: DefaultFragmentShader,
		},
		GLX: GLXVersion{
			MinMajor: DefaultGLXMajor,
			MinMinor: DefaultGLXMinor,
		},
		Visual: Visual{
			DepthSize:    24,
			DoubleBuffer: true,
		},
		Flashlight: Flashlight{
			Enabled:          false,
			ShadowPercentage: 0.1,
			Radius:           200,
			DeltaRadius:      0,
			MinRadius:        50,
			MaxRadius:        1000,
		},
		TickInterval: 0,
		Capture:      Capture{Strategy: "plain"},
		LogLevel:     "info",
	}
}

// ValidationError points at the offending config key and, when known, the
// file position it was set at.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks value ranges. The GLX floor is checked during capability
// negotiation, not here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Shaders.Vertex) == "" {
		return &ValidationError{Path: "shaders.vertex", Err: fmt.Errorf("vertex shader path is required")}
	}
	if strings.TrimSpace(c.Shaders.Fragment) == "" {
		return &ValidationError{Path: "shaders.fragment", Err: fmt.Errorf("fragment shader path is required")}
	}
	if c.GLX.MinMinor < 0 {
		return &ValidationError{Path: "glx.min_minor", Err: fmt.Errorf("min_minor must be >= 0")}
	}
	if c.Visual.DepthSize < 0 {
		return &ValidationError{Path: "visual.depth_size", Err: fmt.Errorf("depth_size must be >= 0")}
	}

	fl := c.Flashlight
	if fl.ShadowPercentage < 0 || fl.ShadowPercentage > 1 {
		return &ValidationError{Path: "flashlight.shadow_percentage", Err: fmt.Errorf("shadow_percentage must be between 0 and 1")}
	}
	if fl.MinRadius < 0 {
		return &ValidationError{Path: "flashlight.min_radius", Err: fmt.Errorf("min_radius must be >= 0")}
	}
	if fl.MaxRadius < fl.MinRadius {
		return &ValidationError{Path: "flashlight.max_radius", Err: fmt.Errorf("max_radius must be >= min_radius")}
	}
	if fl.Radius < fl.MinRadius || fl.Radius > fl.MaxRadius {
		return &ValidationError{Path: "flashlight.radius", Err: fmt.Errorf("radius must be between min_radius and max_radius")}
	}

	if c.TickInterval < 0 {
		return &ValidationError{Path: "tick_interval", Err: fmt.Errorf("tick_interval must be >= 0")}
	}

	switch c.Capture.Strategy {
	case "plain", "shm", "auto":
	default:
		return &ValidationError{Path: "capture.strategy", Err: fmt.Errorf("strategy must be one of: plain, shm, auto")}
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
