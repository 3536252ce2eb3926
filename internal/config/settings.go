// Package config loads framekit settings from TOML and keeps the few values
// that change at runtime behind global accessors.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"framekit/internal/graphics/renderer"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidTickRate = errors.New("config: tick rate must be positive")

// Settings is the content of a settings file.
type Settings struct {
	Render RenderSettings `toml:"render"`
	Timing TimingSettings `toml:"timing"`
	Window WindowSettings `toml:"window"`
	Assets AssetSettings  `toml:"assets"`
}

type RenderSettings struct {
	Interpolate bool `toml:"interpolate"`
	Culling     bool `toml:"culling"`
	// Rotation is "nlerp" or "slerp".
	Rotation string `toml:"rotation"`
	// FPSLimit of zero renders as fast as possible.
	FPSLimit       int    `toml:"fps_limit"`
	CallbackMaxAge uint32 `toml:"callback_max_age"`
}

type TimingSettings struct {
	TickRate       int  `toml:"tick_rate"` // ticks per second
	MaxFrameTimeMs int  `toml:"max_frame_time_ms"`
	Threaded       bool `toml:"threaded"`
}

type WindowSettings struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
	VSync  bool   `toml:"vsync"`
}

// AssetSettings names files loaded by the windowed demo. Empty paths fall
// back to untextured drawing.
type AssetSettings struct {
	SpriteTexture string `toml:"sprite_texture"` // PNG, BMP or WebP
}

const (
	MinFPSLimit = 30
	MaxFPSLimit = 1000

	defaultMaxFrameTimeMs = 250
)

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		Render: RenderSettings{
			Culling:        true,
			Rotation:       renderer.RotationNlerp.String(),
			FPSLimit:       144,
			CallbackMaxAge: 1024,
		},
		Timing: TimingSettings{
			TickRate:       20,
			MaxFrameTimeMs: defaultMaxFrameTimeMs,
		},
		Window: WindowSettings{
			Width:  900,
			Height: 600,
			Title:  "framekit",
			VSync:  true,
		},
	}
}

// Validate clamps out-of-range values and rejects settings that cannot be
// repaired.
func (s *Settings) Validate() error {
	if s.Timing.TickRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTickRate, s.Timing.TickRate)
	}
	if _, err := renderer.ParseRotationMode(s.Render.Rotation); err != nil {
		return fmt.Errorf("config: render.rotation: %w", err)
	}
	s.Render.FPSLimit = clampFPS(s.Render.FPSLimit)
	if s.Timing.MaxFrameTimeMs <= 0 {
		s.Timing.MaxFrameTimeMs = defaultMaxFrameTimeMs
	}
	def := Default().Window
	if s.Window.Width <= 0 {
		s.Window.Width = def.Width
	}
	if s.Window.Height <= 0 {
		s.Window.Height = def.Height
	}
	return nil
}

// RotationMode returns the parsed rotation setting. Call after Validate.
func (s Settings) RotationMode() renderer.RotationMode {
	m, _ := renderer.ParseRotationMode(s.Render.Rotation)
	return m
}

// Parse decodes TOML over the defaults. Unknown keys are an error.
func Parse(r io.Reader) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Settings{}, fmt.Errorf("config: %s", strict.String())
		}
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads and validates the settings file at path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Encode writes s as TOML.
func Encode(w io.Writer, s Settings) error {
	enc := toml.NewEncoder(w)
	return enc.Encode(s)
}
