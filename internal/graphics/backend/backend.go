// Package backend is the boundary between the frame scheduler and the GPU.
// The scheduler and render units never issue raw GPU calls; they describe
// passes and draws with the types below and hand them to a Backend.
package backend

import (
	"image"
	"image/color"

	"framekit/internal/graphics"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewID identifies one render pass within a frame.
type ViewID uint16

// RenderTarget is an opaque handle to an offscreen target. Zero is the screen.
type RenderTarget uint32

// RenderPass describes the start of a pass.
type RenderPass struct {
	View       ViewID
	Target     RenderTarget
	ClearMode  graphics.ClearMode
	ClearColor color.RGBA
	Viewport   image.Rectangle
	ViewMatrix mgl32.Mat4
	Projection mgl32.Mat4
}

// RenderState describes one draw. Slices are only valid for the duration of
// the Render call.
type RenderState struct {
	View      ViewID
	Program   uint32
	Mesh      uint32
	Texture   uint32
	Model     mgl32.Mat4
	Color     mgl32.Vec4
	Vertices  int32
	Triangles int
	// Geometry is streamed vertex data, five floats (x, y, z, u, v) per
	// vertex, drawn when Mesh is zero.
	Geometry []float32
	// Instances greater than one draws Mesh once per entry of Instanced.
	Instances int
	Instanced []mgl32.Mat4
}

// Backend executes passes and draws.
type Backend interface {
	BeginRenderPass(pass RenderPass)
	Render(state RenderState)
}

// FrameNotifier is implemented by backends that can report when the GPU has
// finished a frame. The scheduler wires the callback to its frame-callback
// queue.
type FrameNotifier interface {
	OnFrameFinished(fn func(frame uint32))
}
