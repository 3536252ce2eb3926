package backend

import (
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Recorder is a headless Backend that keeps every pass and draw of the
// current frame. EndFrame closes a frame and, after Latency further frames,
// reports it as finished, mimicking a GPU that runs a few frames behind.
type Recorder struct {
	// Latency is the number of frames between EndFrame and the finish signal.
	Latency int

	mu       sync.Mutex
	passes   []RenderPass
	draws    []RenderState
	frame    uint32
	inFlight []uint32
	notify   []func(uint32)
}

// NewRecorder returns a recorder that finishes frames immediately.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) BeginRenderPass(pass RenderPass) {
	r.mu.Lock()
	r.passes = append(r.passes, pass)
	r.mu.Unlock()
}

func (r *Recorder) Render(state RenderState) {
	r.mu.Lock()
	if state.Instanced != nil {
		state.Instanced = append([]mgl32.Mat4(nil), state.Instanced...)
	}
	if state.Geometry != nil {
		state.Geometry = append([]float32(nil), state.Geometry...)
	}
	r.draws = append(r.draws, state)
	r.mu.Unlock()
}

// OnFrameFinished registers fn to be called with each finished frame number.
func (r *Recorder) OnFrameFinished(fn func(frame uint32)) {
	r.mu.Lock()
	r.notify = append(r.notify, fn)
	r.mu.Unlock()
}

// Passes returns the passes begun since the last Reset.
func (r *Recorder) Passes() []RenderPass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderPass(nil), r.passes...)
}

// Draws returns the draws submitted since the last Reset.
func (r *Recorder) Draws() []RenderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RenderState(nil), r.draws...)
}

// DrawsForView returns the draws submitted to view.
func (r *Recorder) DrawsForView(view ViewID) []RenderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RenderState
	for _, d := range r.draws {
		if d.View == view {
			out = append(out, d)
		}
	}
	return out
}

// Reset forgets recorded passes and draws.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.passes = r.passes[:0]
	r.draws = r.draws[:0]
	r.mu.Unlock()
}

// Frame returns the number of the frame being recorded.
func (r *Recorder) Frame() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// EndFrame closes the current frame and delivers finish signals for frames
// whose latency has elapsed. It returns the number of the closed frame.
func (r *Recorder) EndFrame() uint32 {
	r.mu.Lock()
	closed := r.frame
	r.frame++
	r.inFlight = append(r.inFlight, closed)
	var done []uint32
	for len(r.inFlight) > r.Latency {
		done = append(done, r.inFlight[0])
		r.inFlight = r.inFlight[1:]
	}
	notify := slices.Clone(r.notify)
	r.mu.Unlock()

	for _, f := range done {
		for _, fn := range notify {
			fn(f)
		}
	}
	return closed
}
