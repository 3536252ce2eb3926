package renderer

import (
	"fmt"
	"slices"
)

// frameBefore reports whether frame a precedes b, allowing for wrap-around.
func frameBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

// QueueFrameCallback runs fn once the backend reports frame as finished.
func (s *Scheduler) QueueFrameCallback(frame uint32, fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.callbacks[frame] = append(s.callbacks[frame], fn)
	s.mu.Unlock()
}

// PendingCallbacks returns the number of queued frame callbacks.
func (s *Scheduler) PendingCallbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, fns := range s.callbacks {
		n += len(fns)
	}
	return n
}

// OnFrame runs and discards the callbacks queued for frame and for any
// earlier frame still pending, oldest frame first. Callbacks lagging more
// than the configured maximum age are discarded without running. A
// panicking callback is logged and does not stop the others.
func (s *Scheduler) OnFrame(frame uint32) {
	s.mu.Lock()
	var due []uint32
	for f := range s.callbacks {
		if f == frame || frameBefore(f, frame) {
			due = append(due, f)
		}
	}
	slices.SortFunc(due, func(a, b uint32) int {
		return int(int32(a - b))
	})
	type pending struct {
		frame uint32
		fns   []func()
	}
	run := make([]pending, 0, len(due))
	for _, f := range due {
		fns := s.callbacks[f]
		delete(s.callbacks, f)
		if s.maxAge > 0 && frame-f > s.maxAge {
			s.log().Debug("stale frame callbacks dropped", "frame", f, "finished", frame, "count", len(fns))
			continue
		}
		run = append(run, pending{frame: f, fns: fns})
	}
	s.mu.Unlock()

	for _, p := range run {
		for _, fn := range p.fns {
			if err := runCallback(fn); err != nil {
				s.log().Debug("frame callback failed", "frame", p.frame, "err", err)
			}
		}
	}
}

func runCallback(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame callback panicked: %v", r)
		}
	}()
	fn()
	return nil
}
