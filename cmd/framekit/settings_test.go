package main

import (
	"testing"
	"time"

	"framekit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeValuesComeFromAppliedSettings(t *testing.T) {
	tests := []struct {
		name        string
		tickRate    int
		interpolate bool
		wantDelta   time.Duration
	}{
		{"defaults", 20, false, 50 * time.Millisecond},
		{"fast interpolated", 50, true, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Default()
			s.Timing.TickRate = tt.tickRate
			s.Render.Interpolate = tt.interpolate
			require.NoError(t, s.Validate())
			config.Apply(s)
			defer config.Apply(config.Default())

			clock, err := newClock(config.Default())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDelta, clock.FixedDelta())

			opts := schedulerOptions(config.Default(), clock)
			assert.Equal(t, tt.interpolate, opts.Interpolate)
			assert.Same(t, clock, opts.Clock)
		})
	}
}
