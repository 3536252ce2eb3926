package main

import (
	"framekit/internal/config"
	"framekit/internal/graphics/renderer"
	"framekit/internal/input"
	"framekit/internal/profiling"
)

// actionSource reports key presses for the current frame.
type actionSource interface {
	JustPressed(input.Action) bool
}

// controls turns key presses into scheduler and demo toggles.
type controls struct {
	sched    *renderer.Scheduler
	demo     *demo
	culling  bool
	rotation renderer.RotationMode
}

func newControls(s *renderer.Scheduler, d *demo, settings config.Settings) *controls {
	return &controls{sched: s, demo: d, culling: settings.Render.Culling, rotation: settings.RotationMode()}
}

func (c *controls) apply(keys actionSource) {
	if keys.JustPressed(input.ActionPause) {
		paused := !c.demo.paused.Load()
		c.demo.paused.Store(paused)
		logger.Info("simulation paused", "paused", paused)
	}
	if keys.JustPressed(input.ActionToggleInterpolation) {
		on := !config.InterpolationEnabled()
		config.SetInterpolation(on)
		c.sched.SetInterpolation(on)
		logger.Info("interpolation toggled", "on", on)
	}
	if keys.JustPressed(input.ActionToggleCulling) {
		c.culling = !c.culling
		c.sched.SetCulling(c.culling)
		logger.Info("culling toggled", "on", c.culling)
	}
	if keys.JustPressed(input.ActionToggleRotation) {
		if c.rotation == renderer.RotationNlerp {
			c.rotation = renderer.RotationSlerp
		} else {
			c.rotation = renderer.RotationNlerp
		}
		c.sched.SetRotationMode(c.rotation)
		logger.Info("rotation blend", "mode", c.rotation)
	}
	if keys.JustPressed(input.ActionShowStats) {
		logger.Info("frame", "stats", c.sched.Stats().String(), "top", profiling.TopN(5))
	}
}
