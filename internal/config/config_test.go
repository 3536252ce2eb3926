package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"framekit/internal/graphics/renderer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, s Settings)
		wantErr error
		errText string
	}{
		{
			name:  "empty keeps defaults",
			input: "",
			check: func(t *testing.T, s Settings) { assert.Equal(t, Default(), s) },
		},
		{
			name: "overrides",
			input: `
[render]
interpolate = true
rotation = "slerp"
fps_limit = 60

[timing]
tick_rate = 30
threaded = true

[window]
title = "demo"
`,
			check: func(t *testing.T, s Settings) {
				assert.True(t, s.Render.Interpolate)
				assert.True(t, s.Render.Culling, "untouched keys keep defaults")
				assert.Equal(t, renderer.RotationSlerp, s.RotationMode())
				assert.Equal(t, 60, s.Render.FPSLimit)
				assert.Equal(t, 30, s.Timing.TickRate)
				assert.True(t, s.Timing.Threaded)
				assert.Equal(t, "demo", s.Window.Title)
				assert.Equal(t, 900, s.Window.Width)
			},
		},
		{
			name:  "clamps",
			input: "[render]\nfps_limit = 5\n[timing]\nmax_frame_time_ms = -1\n[window]\nwidth = 0",
			check: func(t *testing.T, s Settings) {
				assert.Equal(t, MinFPSLimit, s.Render.FPSLimit)
				assert.Equal(t, defaultMaxFrameTimeMs, s.Timing.MaxFrameTimeMs)
				assert.Equal(t, 900, s.Window.Width)
			},
		},
		{
			name:  "negative fps means uncapped",
			input: "[render]\nfps_limit = -10",
			check: func(t *testing.T, s Settings) { assert.Zero(t, s.Render.FPSLimit) },
		},
		{
			name:  "assets",
			input: "[assets]\nsprite_texture = \"textures/star.png\"",
			check: func(t *testing.T, s Settings) { assert.Equal(t, "textures/star.png", s.Assets.SpriteTexture) },
		},
		{name: "zero tick rate", input: "[timing]\ntick_rate = 0", wantErr: ErrInvalidTickRate},
		{name: "bad rotation", input: "[render]\nrotation = \"euler\"", errText: "render.rotation"},
		{name: "unknown key", input: "[render]\nshadows = true", errText: "shadows"},
		{name: "syntax", input: "[render", errText: "config:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(strings.NewReader(tt.input))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				require.NoError(t, err)
				tt.check(t, s)
			}
		})
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	want := Default()
	want.Render.Interpolate = true
	want.Timing.TickRate = 50

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))
	got, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlobals(t *testing.T) {
	defer Apply(Default())

	SetFPSLimit(5000)
	assert.Equal(t, MaxFPSLimit, GetFPSLimit())
	SetFPSLimit(0)
	assert.Zero(t, GetFPSLimit())

	SetTickRate(-1)
	assert.Equal(t, 20, GetTickRate())

	s := Default()
	s.Render.Interpolate = true
	s.Render.FPSLimit = 75
	s.Timing.TickRate = 60
	Apply(s)
	assert.True(t, InterpolationEnabled())
	assert.Equal(t, 75, GetFPSLimit())
	assert.Equal(t, 60, GetTickRate())
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framekit.toml")
	require.NoError(t, os.WriteFile(path, []byte("[timing]\ntick_rate = 20\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	var rate atomic.Int64
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(s Settings) { rate.Store(int64(s.Timing.TickRate)) })
	}()

	// Writes before the watcher is registered are lost, so keep writing.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("[timing]\ntick_rate = 40\n"), 0o644)
		return rate.Load() == 40
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
