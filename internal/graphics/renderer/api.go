package renderer

import (
	"reflect"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// ViewID identifies a render pass. Camera passes get consecutive IDs in queue
// order starting at FirstCameraViewID.
type ViewID = backend.ViewID

const (
	FirstCameraViewID ViewID = 1
	// OverlayViewID is the pass used by units with their own render process.
	OverlayViewID ViewID = 254
)

// CameraRef is a camera entity with its transform.
type CameraRef = scene.CameraEntry

// ChangeReceiver is implemented by units that want scene change
// notifications. Such units are subscribed when registered.
type ChangeReceiver = scene.ChangeReceiver

// Entry is one entity routed to a unit.
type Entry struct {
	Entity    scene.Entity
	Transform *scene.Transform
	Component any
}

// Renderable returns the renderable record of the entry's component, or nil
// if the component carries none.
func (e Entry) Renderable() *Renderable {
	if rc, ok := e.Component.(RenderableComponent); ok {
		return rc.AsRenderable()
	}
	return nil
}

// Visible reports whether the unit should emit geometry for e.
// Components without a renderable record are always visible.
func (e Entry) Visible() bool {
	if r := e.Renderable(); r != nil {
		return r.IsVisible
	}
	return true
}

// RenderContext provides shared context for one pass.
type RenderContext struct {
	Camera          *graphics.Camera
	CameraTransform *scene.Transform
	CameraEntity    scene.Entity
	View            mgl32.Mat4
	Proj            mgl32.Mat4
	ViewID          ViewID
	Frame           uint32
	ScreenWidth     int
	ScreenHeight    int
	// Backend counts draws into the frame stats before forwarding them.
	Backend backend.Backend
}

// RenderUnit renders every entity owning one component type.
//
// Per camera pass the scheduler calls Prepare, Preprocess, Process and, once
// all units of the pass have processed, Submit. Units that use their own
// render process are called with Prepare at the start and Submit at the end
// of each frame, outside the camera loop.
//
// Process receives every routed entry; entries that are not Visible must be
// skipped. Process and Submit should keep their staged state consistent on
// their own: a panic there abandons the rest of the camera pass.
type RenderUnit interface {
	RelatedComponentType() reflect.Type
	UsesOwnRenderProcess() bool
	Startup() error
	// Shutdown must be idempotent. It runs even if Startup failed.
	Shutdown()
	Prepare()
	Preprocess(ctx RenderContext, entries []Entry)
	Process(ctx RenderContext, entries []Entry)
	Submit(ctx RenderContext)
	// ClearRenderData drops state kept for a view that was not rendered
	// this frame.
	ClearRenderData(view ViewID)
}
