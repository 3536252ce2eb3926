package backend

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsPassesAndDraws(t *testing.T) {
	r := NewRecorder()
	var b Backend = r

	b.BeginRenderPass(RenderPass{View: 1})
	b.Render(RenderState{View: 1, Triangles: 2})
	b.BeginRenderPass(RenderPass{View: 2})
	b.Render(RenderState{View: 2, Triangles: 4})
	b.Render(RenderState{View: 2, Triangles: 6})

	assert.Len(t, r.Passes(), 2)
	assert.Len(t, r.Draws(), 3)
	assert.Len(t, r.DrawsForView(2), 2)
	assert.Empty(t, r.DrawsForView(3))

	r.Reset()
	assert.Empty(t, r.Passes())
	assert.Empty(t, r.Draws())
}

func TestRecorderCopiesInstanceData(t *testing.T) {
	r := NewRecorder()
	models := []mgl32.Mat4{mgl32.Ident4(), mgl32.Translate3D(1, 0, 0)}
	r.Render(RenderState{Instances: 2, Instanced: models})
	models[0] = mgl32.Translate3D(9, 9, 9)

	draws := r.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, mgl32.Ident4(), draws[0].Instanced[0])
}

func TestRecorderFrameLatency(t *testing.T) {
	tests := []struct {
		name    string
		latency int
		frames  int
		want    []uint32
	}{
		{"immediate", 0, 3, []uint32{0, 1, 2}},
		{"one behind", 1, 3, []uint32{0, 1}},
		{"two behind", 2, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecorder()
			r.Latency = tt.latency
			var finished []uint32
			r.OnFrameFinished(func(f uint32) { finished = append(finished, f) })
			for i := 0; i < tt.frames; i++ {
				assert.Equal(t, uint32(i), r.EndFrame())
			}
			assert.Equal(t, tt.want, finished)
			assert.Equal(t, uint32(tt.frames), r.Frame())
		})
	}
}

func TestRecorderNotifiesListenersRegisteredBeforeEndFrame(t *testing.T) {
	r := NewRecorder()
	var first, second, late []uint32
	r.OnFrameFinished(func(f uint32) {
		first = append(first, f)
		if f == 0 {
			r.OnFrameFinished(func(f uint32) { late = append(late, f) })
		}
	})
	r.OnFrameFinished(func(f uint32) { second = append(second, f) })

	r.EndFrame()
	r.EndFrame()

	assert.Equal(t, []uint32{0, 1}, first)
	assert.Equal(t, []uint32{0, 1}, second)
	assert.Equal(t, []uint32{1}, late, "a listener added during delivery starts with the next frame")
}
