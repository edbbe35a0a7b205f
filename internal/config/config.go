// Package config loads the host configuration from TOML and watches it
// for live reload.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/termpaint/internal/render/core"
)

// Config is the host configuration.
type Config struct {
	// Render controls the paint scheduler and head selection.
	Render RenderConfig `toml:"render"`
	// Screen sets the initial grid dimensions.
	Screen ScreenConfig `toml:"screen"`
	// Colors sets the ambient palette.
	Colors ColorConfig `toml:"colors"`
	// Cursor sets the initial cursor presentation.
	Cursor CursorConfig `toml:"cursor"`
}

// RenderConfig controls the paint scheduler and the attached heads.
type RenderConfig struct {
	// FrameIntervalMS is the minimum spacing between frames, in
	// milliseconds.
	FrameIntervalMS int `toml:"frame_interval_ms"`
	// Heads lists the output heads to attach: "terminal" and/or "vt".
	Heads []string `toml:"heads"`
	// VTOutput is the file the vt head streams to. Empty means stdout.
	VTOutput string `toml:"vt_output"`
	// GridLines permits box decorations.
	GridLines bool `toml:"grid_lines"`
}

// ScreenConfig sets the initial grid dimensions.
type ScreenConfig struct {
	Cols int `toml:"cols"`
	Rows int `toml:"rows"`
}

// ColorConfig names the default colors as hex strings ("#rrggbb"). Empty
// means the head's own default.
type ColorConfig struct {
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
}

// CursorConfig sets the initial cursor presentation.
type CursorConfig struct {
	// Shape is one of "legacy", "bar", "underscore", "empty_box",
	// "full_box".
	Shape string `toml:"shape"`
	// HeightPercent is the legacy cursor height, 1 to 100.
	HeightPercent int `toml:"height_percent"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Render: RenderConfig{
			FrameIntervalMS: 8,
			Heads:           []string{"terminal"},
		},
		Screen: ScreenConfig{Cols: 80, Rows: 24},
		Cursor: CursorConfig{Shape: "legacy", HeightPercent: 25},
	}
}

// Load reads the configuration at path, layered over the defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Render.FrameIntervalMS < 0 {
		return fmt.Errorf("render.frame_interval_ms must not be negative")
	}
	if c.Screen.Cols <= 0 || c.Screen.Rows <= 0 {
		return fmt.Errorf("screen dimensions must be positive")
	}
	for _, h := range c.Render.Heads {
		if h != "terminal" && h != "vt" {
			return fmt.Errorf("unknown head %q", h)
		}
	}
	if _, err := c.CursorShape(); err != nil {
		return err
	}
	if c.Cursor.HeightPercent < 0 || c.Cursor.HeightPercent > 100 {
		return fmt.Errorf("cursor.height_percent must be 0 to 100")
	}
	if _, _, err := c.DefaultColors(); err != nil {
		return err
	}
	return nil
}

// FrameInterval returns the scheduler interval.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.Render.FrameIntervalMS) * time.Millisecond
}

// CursorShape resolves the configured shape name.
func (c Config) CursorShape() (core.CursorShape, error) {
	switch c.Cursor.Shape {
	case "", "legacy":
		return core.CursorLegacy, nil
	case "bar":
		return core.CursorVerticalBar, nil
	case "underscore":
		return core.CursorUnderscore, nil
	case "empty_box":
		return core.CursorEmptyBox, nil
	case "full_box":
		return core.CursorFullBox, nil
	default:
		return core.CursorLegacy, fmt.Errorf("unknown cursor shape %q", c.Cursor.Shape)
	}
}

// DefaultColors resolves the configured hex colors. Unset entries resolve
// to the head default.
func (c Config) DefaultColors() (fg, bg core.Color, err error) {
	fg, err = parseColor(c.Colors.Foreground)
	if err != nil {
		return fg, bg, fmt.Errorf("colors.foreground: %w", err)
	}
	bg, err = parseColor(c.Colors.Background)
	if err != nil {
		return fg, bg, fmt.Errorf("colors.background: %w", err)
	}
	return fg, bg, nil
}

func parseColor(s string) (core.Color, error) {
	if s == "" {
		return core.ColorDefault, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return core.ColorDefault, err
	}
	r, g, b := c.RGB255()
	return core.RGB(r, g, b), nil
}
