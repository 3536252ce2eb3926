package renderer

import "framekit/internal/graphics"

// CullingState is the memoized frustum test result of one camera pass.
type CullingState uint8

const (
	CullNone CullingState = iota
	CullVisible
	CullInvisible
)

func (s CullingState) String() string {
	switch s {
	case CullVisible:
		return "Visible"
	case CullInvisible:
		return "Invisible"
	default:
		return "None"
	}
}

// Renderable is the rendering state cached on a visual component.
type Renderable struct {
	Enabled           bool
	ForceRenderingOff bool
	// Bounds is in world space. Units refresh it in Preprocess.
	Bounds graphics.AABB

	IsVisible    bool
	CullingState CullingState

	pass uint64
}

// NewRenderable returns an enabled renderable.
func NewRenderable() Renderable {
	return Renderable{Enabled: true}
}

// AsRenderable lets components that embed Renderable satisfy
// RenderableComponent.
func (r *Renderable) AsRenderable() *Renderable { return r }

// RenderableComponent is implemented by components carrying a Renderable.
type RenderableComponent interface {
	AsRenderable() *Renderable
}

func (r *Renderable) resetCulling() {
	r.CullingState = CullNone
	r.pass = 0
}

// visibility is the per-pass visibility test. The frustum test runs at most
// once per renderable and pass; tested reports whether it ran.
func (r *Renderable) visibility(cam *graphics.Camera, cull bool, pass uint64) (tested bool) {
	r.IsVisible = r.Enabled && !r.ForceRenderingOff
	if !r.IsVisible || !cull || cam == nil {
		return false
	}
	if r.pass != pass {
		r.pass = pass
		r.CullingState = CullNone
	}
	if r.CullingState == CullNone {
		tested = true
		if cam.IsVisible(r.Bounds) {
			r.CullingState = CullVisible
		} else {
			r.CullingState = CullInvisible
		}
	}
	r.IsVisible = r.CullingState == CullVisible
	return tested
}
