package main

import (
	"context"
	"testing"

	"framekit/internal/config"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderables/mesh"
	"framekit/internal/graphics/renderer"
	"framekit/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoScene(t *testing.T) {
	atlas, err := buildAtlas()
	require.NoError(t, err)
	w := scene.NewWorld()
	rec := backend.NewRecorder()
	s := renderer.New(w, rec, renderer.DefaultOptions())
	defer s.Shutdown()

	d, err := newDemo(w, s, assets{Cube: 1, Quad: 2, Atlas: atlas})
	require.NoError(t, err)
	assert.Len(t, d.cubes, gridSize*gridSize)
	assert.Len(t, s.Units(), 4)

	q := s.Queue()
	require.Len(t, q.Cameras, 1)
	assert.Len(t, q.Entities(0, mesh.NewUnit()), gridSize*gridSize)

	s.Update()
	st := s.Stats()
	assert.Equal(t, 1, st.Cameras)
	assert.Positive(t, st.DrawCalls)
	assert.NotEmpty(t, rec.DrawsForView(renderer.FirstCameraViewID))

	for i := 0; i < hudEvery; i++ {
		require.NoError(t, d.simulate(50_000_000))
	}
	assert.Contains(t, d.label.Text, "draws")
	assert.Len(t, d.hud.Rects(), 2)
	s.Update()
	assert.Len(t, rec.DrawsForView(renderer.OverlayViewID), 2)
}

func TestHeadless(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Settings)
		latency int
		frames  int
	}{
		{"standard", func(*config.Settings) {}, 0, 30},
		{"interpolated", func(s *config.Settings) { s.Render.Interpolate = true; s.Timing.TickRate = 200 }, 2, 30},
		{"threaded", func(s *config.Settings) { s.Timing.Threaded = true; s.Timing.TickRate = 200 }, 1, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Default()
			s.Render.FPSLimit = 0
			tt.mutate(&s)
			require.NoError(t, s.Validate())
			config.Apply(s)
			defer config.Apply(config.Default())

			rec := backend.NewRecorder()
			rec.Latency = tt.latency
			stats, err := headless(context.Background(), s, rec, tt.frames)
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Cameras)
			assert.Positive(t, stats.DrawCalls)
			assert.Equal(t, uint32(tt.frames), rec.Frame())
		})
	}
}
