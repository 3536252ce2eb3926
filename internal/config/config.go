package config

import "sync"

// runtimeSettings holds the values that can change while running
type runtimeSettings struct {
	mu          sync.RWMutex
	fpsLimit    int
	interpolate bool
	tickRate    int
}

var globalSettings = &runtimeSettings{
	fpsLimit: 144, // default value
	tickRate: 20,
}

// GetFPSLimit returns the current frame cap, zero meaning uncapped
func GetFPSLimit() int {
	globalSettings.mu.RLock()
	defer globalSettings.mu.RUnlock()
	return globalSettings.fpsLimit
}

// SetFPSLimit sets the frame cap
func SetFPSLimit(limit int) {
	globalSettings.mu.Lock()
	defer globalSettings.mu.Unlock()
	globalSettings.fpsLimit = clampFPS(limit)
}

func clampFPS(limit int) int {
	// Clamp to reasonable values
	if limit <= 0 {
		return 0
	}
	return min(max(limit, MinFPSLimit), MaxFPSLimit)
}

// InterpolationEnabled reports whether frames blend between ticks
func InterpolationEnabled() bool {
	globalSettings.mu.RLock()
	defer globalSettings.mu.RUnlock()
	return globalSettings.interpolate
}

// SetInterpolation toggles interpolated rendering
func SetInterpolation(on bool) {
	globalSettings.mu.Lock()
	defer globalSettings.mu.Unlock()
	globalSettings.interpolate = on
}

// GetTickRate returns the simulation ticks per second
func GetTickRate() int {
	globalSettings.mu.RLock()
	defer globalSettings.mu.RUnlock()
	return globalSettings.tickRate
}

// SetTickRate sets the simulation ticks per second. Non-positive rates are
// ignored.
func SetTickRate(rate int) {
	if rate <= 0 {
		return
	}
	globalSettings.mu.Lock()
	defer globalSettings.mu.Unlock()
	globalSettings.tickRate = rate
}

// Apply copies the runtime values of s into the globals
func Apply(s Settings) {
	SetFPSLimit(s.Render.FPSLimit)
	SetInterpolation(s.Render.Interpolate)
	SetTickRate(s.Timing.TickRate)
}
