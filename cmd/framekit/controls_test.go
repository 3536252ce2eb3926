package main

import (
	"testing"

	"framekit/internal/config"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/input"
	"framekit/internal/scene"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pressed map[input.Action]bool

func (p pressed) JustPressed(a input.Action) bool { return p[a] }

func TestControls(t *testing.T) {
	atlas, err := buildAtlas()
	require.NoError(t, err)
	w := scene.NewWorld()
	s := renderer.New(w, backend.NewRecorder(), renderer.DefaultOptions())
	defer s.Shutdown()
	d, err := newDemo(w, s, assets{Cube: 1, Quad: 2, Atlas: atlas})
	require.NoError(t, err)

	config.Apply(config.Default())
	defer config.Apply(config.Default())
	c := newControls(s, d, config.Default())
	c.apply(pressed{input.ActionToggleInterpolation: true, input.ActionToggleRotation: true})
	assert.True(t, s.Interpolating())
	assert.True(t, config.InterpolationEnabled())
	assert.Equal(t, renderer.RotationSlerp, c.rotation)

	c.apply(pressed{input.ActionToggleCulling: true, input.ActionPause: true})
	assert.False(t, c.culling)
	assert.True(t, d.paused.Load())

	before := d.ticks
	require.NoError(t, d.simulate(50_000_000))
	assert.Equal(t, before, d.ticks, "paused demo does not advance")

	c.apply(pressed{})
	assert.True(t, s.Interpolating())
}
