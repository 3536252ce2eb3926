package game

import (
	"context"
	"sync"
	"time"

	"framekit/internal/logging"
	"framekit/internal/profiling"

	"golang.org/x/sync/errgroup"
)

// Loop runs simulation ticks and frames.
//
// In sequential mode each iteration advances the clock, runs the due ticks
// and renders. In threaded mode ticks run on their own goroutine while the
// calling goroutine renders; Scene serialises the two, with ticks holding the
// write lock and frames the read lock.
type Loop struct {
	Clock    *Clock
	Simulate func(dt time.Duration) error
	Render   func() error
	// Poll runs on the render goroutine before every frame. Returning false
	// ends the loop.
	Poll     func() bool
	Limiter  *FPSLimiter
	Threaded bool
	// SlowFrame is the frame time above which a warning is logged.
	SlowFrame time.Duration

	Scene sync.RWMutex

	now func() time.Time
}

// NewLoop returns a sequential loop with a limiter following the config.
func NewLoop(clock *Clock, simulate func(time.Duration) error, render func() error) *Loop {
	return &Loop{
		Clock:     clock,
		Simulate:  simulate,
		Render:    render,
		Limiter:   NewFPSLimiter(),
		SlowFrame: 16 * time.Millisecond,
		now:       time.Now,
	}
}

// Run blocks until ctx is done, Poll returns false or a callback fails.
// Run must be called on the goroutine that owns the graphics context.
func (l *Loop) Run(ctx context.Context) error {
	if l.now == nil {
		l.now = time.Now
	}
	if !l.Threaded {
		return l.runSequential(ctx)
	}
	return l.runThreaded(ctx)
}

func (l *Loop) runSequential(ctx context.Context) error {
	last := l.now()
	for ctx.Err() == nil {
		if l.Poll != nil && !l.Poll() {
			return nil
		}
		now := l.now()
		dt := now.Sub(last)
		last = now

		start := time.Now()
		profiling.ResetFrame()
		if _, err := l.Clock.Step(dt, l.Simulate); err != nil {
			return err
		}
		if err := l.frame(); err != nil {
			return err
		}
		l.reportSlow(time.Since(start))
		if l.Limiter != nil {
			l.Limiter.Wait()
		}
	}
	return nil
}

func (l *Loop) runThreaded(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := time.NewTicker(l.Clock.FixedDelta())
		defer t.Stop()
		last := l.now()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
			}
			now := l.now()
			dt := now.Sub(last)
			last = now

			l.Scene.Lock()
			_, err := l.Clock.Step(dt, l.Simulate)
			l.Scene.Unlock()
			if err != nil {
				return err
			}
		}
	})

	err := l.renderLoop(gctx)
	cancel()
	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

func (l *Loop) renderLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		if l.Poll != nil && !l.Poll() {
			return nil
		}
		start := time.Now()
		profiling.ResetFrame()
		l.Scene.RLock()
		err := l.frame()
		l.Scene.RUnlock()
		if err != nil {
			return err
		}
		l.reportSlow(time.Since(start))
		if l.Limiter != nil {
			l.Limiter.Wait()
		}
	}
	return nil
}

func (l *Loop) frame() error {
	if l.Render == nil {
		return nil
	}
	defer profiling.Track("game.frame")()
	return l.Render()
}

func (l *Loop) reportSlow(d time.Duration) {
	if l.SlowFrame > 0 && d > l.SlowFrame {
		logging.With("game").Warn("slow frame", "took", d, "top", profiling.TopN(5))
	}
}
