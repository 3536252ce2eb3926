package main

import (
	"context"
	"time"

	"framekit/internal/config"
	"framekit/internal/game"
	"framekit/internal/graphics/renderer"

	"github.com/urfave/cli"
)

// loadSettings reads the settings file named by --config, if any, and
// applies the command line overrides.
func loadSettings(ctx *cli.Context) (config.Settings, error) {
	s := config.Default()
	if path := ctx.GlobalString("config"); path != "" {
		var err error
		if s, err = config.Load(path); err != nil {
			return s, err
		}
	}
	if ctx.Bool("interpolate") {
		s.Render.Interpolate = true
	}
	if ctx.Bool("threaded") {
		s.Timing.Threaded = true
	}
	if rate := ctx.Int("tick-rate"); rate != 0 {
		s.Timing.TickRate = rate
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	config.Apply(s)
	return s, nil
}

// schedulerOptions and newClock read the runtime values from the config
// globals, so config.Apply must have run first.
func schedulerOptions(s config.Settings, clock *game.Clock) renderer.Options {
	opts := renderer.DefaultOptions()
	opts.Interpolate = config.InterpolationEnabled()
	opts.Culling = s.Render.Culling
	opts.Rotation = s.RotationMode()
	opts.CallbackMaxAge = s.Render.CallbackMaxAge
	opts.Clock = clock
	opts.Width = s.Window.Width
	opts.Height = s.Window.Height
	return opts
}

func newClock(s config.Settings) (*game.Clock, error) {
	return game.NewClock(config.GetTickRate(), time.Duration(s.Timing.MaxFrameTimeMs)*time.Millisecond)
}

// watchSettings hot-reloads the runtime values of the settings file. Changes
// are handed to apply on the render goroutine through the scheduler's frame
// callbacks.
func watchSettings(ctx context.Context, cliCtx *cli.Context, s *renderer.Scheduler, clock *game.Clock) {
	path := cliCtx.GlobalString("config")
	if path == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, path, func(next config.Settings) {
			s.QueueFrameCallback(s.Frame(), func() {
				config.Apply(next)
				s.SetInterpolation(config.InterpolationEnabled())
				s.SetCulling(next.Render.Culling)
				s.SetRotationMode(next.RotationMode())
				if err := clock.SetTickRate(config.GetTickRate()); err != nil {
					logger.Warn("tick rate not applied", "err", err)
				}
			})
		})
		if err != nil {
			logger.Warn("settings watcher stopped", "path", path, "err", err)
		}
	}()
}
