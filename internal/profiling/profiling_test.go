package profiling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackAccumulatesUntilReset(t *testing.T) {
	ResetFrame()
	Track("renderer.camera")()
	Track("renderer.camera")()
	Track("game.tick")()

	assert.Equal(t, 2, Count("renderer.camera"))
	assert.Contains(t, Snapshot(), "game.tick")

	ResetFrame()
	assert.Empty(t, Snapshot())
	assert.Zero(t, Count("renderer.camera"))
}

func TestSumWithPrefix(t *testing.T) {
	ResetFrame()
	mu.Lock()
	frameTotals["renderer.a"] = 2 * time.Millisecond
	frameTotals["renderer.b"] = 3 * time.Millisecond
	frameTotals["game.tick"] = 7 * time.Millisecond
	mu.Unlock()

	assert.Equal(t, 5*time.Millisecond, SumWithPrefix("renderer."))
	ResetFrame()
}

func TestTopNOrdersLargestFirst(t *testing.T) {
	ResetFrame()
	mu.Lock()
	frameTotals["small"] = 1500 * time.Microsecond
	frameTotals["large"] = 4 * time.Millisecond
	frameTotals["mid"] = 2100 * time.Microsecond
	mu.Unlock()

	assert.Equal(t, "large:4ms, mid:2.1ms", TopN(2))
	assert.Equal(t, "large:4ms, mid:2.1ms, small:1.5ms", TopN(10))
	ResetFrame()
}
