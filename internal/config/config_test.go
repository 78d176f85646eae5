package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Windowed {
		t.Fatalf("expected overlay mode by default")
	}
	if cfg.GLX.MinMajor != 1 || cfg.GLX.MinMinor != 3 {
		t.Fatalf("expected GLX floor 1.3, got %d.%d", cfg.GLX.MinMajor, cfg.GLX.MinMinor)
	}
	if cfg.Shaders.Vertex != DefaultVertexShader || cfg.Shaders.Fragment != DefaultFragmentShader {
		t.Fatalf("unexpected shader paths %+v", cfg.Shaders)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Flashlight.Radius != 200 {
		t.Fatalf("expected default radius, got %v", res.Config.Flashlight.Radius)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "# empty")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Capture.Strategy != "plain" {
		t.Fatalf("expected plain capture, got %q", res.Config.Capture.Strategy)
	}
}

func TestLoadFromPath_OverlaysOnDefaults(t *testing.T) {
	path := writeConfig(t,
		"windowed: true",
		"display: \":1\"",
		"flashlight:",
		"  enabled: true",
		"  radius: 300",
		"tick_interval: 16ms",
		"capture:",
		"  strategy: auto",
	)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if !cfg.Windowed || cfg.Display != ":1" {
		t.Fatalf("unexpected top-level values %+v", cfg)
	}
	if !cfg.Flashlight.Enabled || cfg.Flashlight.Radius != 300 {
		t.Fatalf("unexpected flashlight %+v", cfg.Flashlight)
	}
	// Unset keys keep their defaults.
	if cfg.Flashlight.ShadowPercentage != 0.1 || cfg.Flashlight.MaxRadius != 1000 {
		t.Fatalf("expected default flashlight limits, got %+v", cfg.Flashlight)
	}
	if cfg.TickInterval != 16*time.Millisecond {
		t.Fatalf("expected 16ms tick, got %v", cfg.TickInterval)
	}
	if cfg.Capture.Strategy != "auto" {
		t.Fatalf("expected auto capture, got %q", cfg.Capture.Strategy)
	}
	if src, ok := res.Sources["flashlight.radius"]; !ok || src.Line != 5 {
		t.Fatalf("expected source for flashlight.radius at line 5, got %+v", src)
	}
}

func TestLoadFromPath_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "flashlite:", "  enabled: true")
	if _, err := LoadFromPath(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	path := writeConfig(t,
		"flashlight:",
		"  shadow_percentage: 1.5",
	)

	_, err := LoadFromPath(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Path != "flashlight.shadow_percentage" {
		t.Fatalf("unexpected path %q", ve.Path)
	}
	if ve.Source.File != path || ve.Source.Line != 2 {
		t.Fatalf("expected source %s:2, got %+v", path, ve.Source)
	}
	if !strings.Contains(err.Error(), path+":2:") {
		t.Fatalf("expected file position in message, got %q", err.Error())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"empty vertex", func(c *Config) { c.Shaders.Vertex = " " }, "shaders.vertex"},
		{"empty fragment", func(c *Config) { c.Shaders.Fragment = "" }, "shaders.fragment"},
		{"negative minor", func(c *Config) { c.GLX.MinMinor = -1 }, "glx.min_minor"},
		{"negative depth", func(c *Config) { c.Visual.DepthSize = -8 }, "visual.depth_size"},
		{"shadow below zero", func(c *Config) { c.Flashlight.ShadowPercentage = -0.1 }, "flashlight.shadow_percentage"},
		{"negative min radius", func(c *Config) { c.Flashlight.MinRadius = -1 }, "flashlight.min_radius"},
		{"max below min", func(c *Config) { c.Flashlight.MaxRadius = 10 }, "flashlight.max_radius"},
		{"radius above max", func(c *Config) { c.Flashlight.Radius = 2000 }, "flashlight.radius"},
		{"negative tick", func(c *Config) { c.TickInterval = -time.Second }, "tick_interval"},
		{"bad strategy", func(c *Config) { c.Capture.Strategy = "xdamage" }, "capture.strategy"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, ve.Path)
			}
		})
	}
}

func TestValidateLeavesGLXFloorToNegotiation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GLX.MinMajor = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected floor to pass config validation, got %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info by default")
	}
	cfg.LogLevel = "DEBUG"
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", cfg.SlogLevel())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windowed = true
	cfg.TickInterval = 250 * time.Millisecond

	data, err := Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), "tick_interval: 250ms") {
		t.Fatalf("expected duration string in output:\n%s", data)
	}

	path := writeConfig(t, string(data))
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *res.Config != *cfg {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", res.Config, cfg)
	}
}
