// Package game drives simulation ticks and frames.
package game

import (
	"fmt"
	"sync"
	"time"

	"framekit/internal/config"
)

// Clock is a fixed timestep clock. Frame time is accumulated and consumed in
// whole ticks; the remainder is what the renderer blends by.
type Clock struct {
	mu       sync.Mutex
	fixed    time.Duration
	maxFrame time.Duration
	acc      time.Duration
	last     time.Time
	ticks    uint64

	listeners []func()
	now       func() time.Time
}

// NewClock returns a clock running tickRate ticks per second. Frame times
// above maxFrame are clamped so a long stall does not queue a burst of ticks.
func NewClock(tickRate int, maxFrame time.Duration) (*Clock, error) {
	c := &Clock{maxFrame: maxFrame, now: time.Now}
	if err := c.SetTickRate(tickRate); err != nil {
		return nil, err
	}
	c.last = c.now()
	return c, nil
}

// SetTickRate changes the tick length.
func (c *Clock) SetTickRate(tickRate int) error {
	if tickRate <= 0 {
		return fmt.Errorf("%w: %d", config.ErrInvalidTickRate, tickRate)
	}
	c.mu.Lock()
	c.fixed = time.Second / time.Duration(tickRate)
	c.mu.Unlock()
	return nil
}

// FixedDelta returns the tick length.
func (c *Clock) FixedDelta() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fixed
}

// Accumulator returns the time owed to the next tick, including the time
// since the last Advance, capped at one tick.
func (c *Clock) Accumulator() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return min(c.acc+c.now().Sub(c.last), c.fixed)
}

// Ticks returns how many ticks have run.
func (c *Clock) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// OnTickFinished registers fn to run after every Step that ran a tick.
func (c *Clock) OnTickFinished(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Advance adds frame time dt and returns the number of ticks now due. The
// due time is removed from the accumulator.
func (c *Clock) Advance(dt time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxFrame > 0 {
		dt = min(dt, c.maxFrame)
	}
	c.acc += max(dt, 0)
	c.last = c.now()
	n := int(c.acc / c.fixed)
	c.acc -= time.Duration(n) * c.fixed
	c.ticks += uint64(n)
	return n
}

// Step advances by dt, runs tick once per due tick and then notifies the
// tick-finished listeners once. The first tick error stops the step.
func (c *Clock) Step(dt time.Duration, tick func(dt time.Duration) error) (int, error) {
	n := c.Advance(dt)
	if n == 0 {
		return 0, nil
	}
	fixed := c.FixedDelta()
	for i := 0; tick != nil && i < n; i++ {
		if err := tick(fixed); err != nil {
			return i, err
		}
	}

	c.mu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
	return n, nil
}
