package game

import (
	"time"

	"framekit/internal/config"
)

// spinWindow is the part of a frame budget spent polling the clock instead
// of sleeping, since sleep wakes up late by about that much on most systems.
const spinWindow = 200 * time.Microsecond

// FPSLimiter paces the render loop to config.GetFPSLimit frames per second.
// Deadlines advance by whole frame budgets so short overruns are paid back
// by the following frames; an overrun longer than one budget drops the debt.
type FPSLimiter struct {
	limit    func() int
	now      func() time.Time
	sleep    func(time.Duration)
	deadline time.Time
}

func NewFPSLimiter() *FPSLimiter {
	return &FPSLimiter{limit: config.GetFPSLimit, now: time.Now, sleep: time.Sleep}
}

// next moves the deadline one frame budget ahead of the previous one and
// returns it. A zero time means the frame is not capped.
func (f *FPSLimiter) next(now time.Time) time.Time {
	fps := f.limit()
	if fps <= 0 {
		f.deadline = time.Time{}
		return f.deadline
	}
	budget := time.Second / time.Duration(fps)
	switch {
	case f.deadline.IsZero():
		f.deadline = now.Add(budget)
	case now.Sub(f.deadline) > budget:
		f.deadline = now.Add(budget)
	default:
		f.deadline = f.deadline.Add(budget)
	}
	return f.deadline
}

// Wait blocks until the current frame's deadline.
func (f *FPSLimiter) Wait() {
	if f.now == nil {
		f.now, f.sleep = time.Now, time.Sleep
	}
	deadline := f.next(f.now())
	if deadline.IsZero() {
		return
	}
	for {
		left := deadline.Sub(f.now())
		if left <= 0 {
			return
		}
		if left > spinWindow {
			f.sleep(left - spinWindow)
		}
	}
}
