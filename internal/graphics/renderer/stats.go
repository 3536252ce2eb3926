package renderer

import (
	"fmt"
	"time"

	"framekit/internal/graphics/backend"
)

// Stats describes the last completed frame.
type Stats struct {
	DrawCalls       int
	CulledDrawCalls int
	TriangleCount   int
	// SavedDrawCalls counts draws avoided by instancing.
	SavedDrawCalls int
	Cameras        int
	SkippedUnits   int
	// FrustumTests counts frustum tests actually run.
	FrustumTests int
	FrameTime    time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("draws:%d culled:%d tris:%d saved:%d cams:%d skipped:%d frame:%s",
		s.DrawCalls, s.CulledDrawCalls, s.TriangleCount, s.SavedDrawCalls,
		s.Cameras, s.SkippedUnits, s.FrameTime.Round(time.Microsecond))
}

// countingBackend forwards to the real backend and counts into stats.
type countingBackend struct {
	inner backend.Backend
	stats *Stats
	used  map[ViewID]struct{}
}

func (c *countingBackend) BeginRenderPass(pass backend.RenderPass) {
	c.used[pass.View] = struct{}{}
	if c.inner != nil {
		c.inner.BeginRenderPass(pass)
	}
}

func (c *countingBackend) Render(state backend.RenderState) {
	instances := max(state.Instances, 1)
	c.stats.DrawCalls++
	c.stats.TriangleCount += state.Triangles * instances
	c.stats.SavedDrawCalls += instances - 1
	if c.inner != nil {
		c.inner.Render(state)
	}
}
