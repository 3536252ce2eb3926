package graphics

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidPlanes is returned for near/far planes that cannot form a projection.
var ErrInvalidPlanes = errors.New("graphics: invalid near/far planes")

// ProjectionType selects perspective or orthographic projection.
type ProjectionType uint8

const (
	Perspective ProjectionType = iota
	Orthographic
)

// ClearMode controls what a camera clears before its pass.
type ClearMode uint8

const (
	ClearSolidColor ClearMode = iota
	ClearDepth
	ClearNone
)

func (m ClearMode) String() string {
	switch m {
	case ClearSolidColor:
		return "solid-color"
	case ClearDepth:
		return "depth"
	case ClearNone:
		return "none"
	}
	return fmt.Sprintf("ClearMode(%d)", uint8(m))
}

// SkyBlue is the default clear color.
var SkyBlue = color.RGBA{R: 135, G: 206, B: 235, A: 255}

// Camera is the camera component. Cameras are rendered in ascending Depth.
type Camera struct {
	Projection       ProjectionType
	ClearMode        ClearMode
	ClearColor       color.RGBA
	FOV              float32 // vertical, degrees
	OrthographicSize float32 // half the viewport height in world units
	NearPlane        float32
	FarPlane         float32
	// Viewport is normalized: X, Y, width, height in [0,1].
	Viewport      mgl32.Vec4
	Depth         int
	CullingLayers LayerMask

	frustum Frustum
}

// NewCamera returns a perspective camera that renders every layer to the
// whole screen.
func NewCamera() *Camera {
	return &Camera{
		Projection:       Perspective,
		ClearMode:        ClearSolidColor,
		ClearColor:       SkyBlue,
		FOV:              60.0,
		OrthographicSize: 5.0,
		NearPlane:        0.1,
		FarPlane:         1000.0,
		Viewport:         mgl32.Vec4{0, 0, 1, 1},
		CullingLayers:    Everything,
	}
}

// PixelViewport converts the normalized viewport to a pixel rectangle.
func (c *Camera) PixelViewport(screenW, screenH int) (x, y, w, h int) {
	return int(c.Viewport[0] * float32(screenW)), int(c.Viewport[1] * float32(screenH)),
		int(c.Viewport[2] * float32(screenW)), int(c.Viewport[3] * float32(screenH))
}

// ProjectionMatrix builds the projection for a screen of the given size.
func (c *Camera) ProjectionMatrix(screenW, screenH int) (mgl32.Mat4, error) {
	_, _, w, h := c.PixelViewport(screenW, screenH)
	if w <= 0 || h <= 0 {
		return mgl32.Ident4(), fmt.Errorf("graphics: empty viewport %dx%d", w, h)
	}
	aspect := float32(w) / float32(h)

	switch c.Projection {
	case Orthographic:
		if c.NearPlane >= c.FarPlane {
			return mgl32.Ident4(), fmt.Errorf("%w: %v / %v", ErrInvalidPlanes, c.NearPlane, c.FarPlane)
		}
		size := max(c.OrthographicSize, 1)
		return mgl32.Ortho(-size*aspect, size*aspect, -size, size, c.NearPlane, c.FarPlane), nil
	default:
		if c.NearPlane <= 0 || c.FarPlane <= 0 || c.NearPlane >= c.FarPlane {
			return mgl32.Ident4(), fmt.Errorf("%w: %v / %v", ErrInvalidPlanes, c.NearPlane, c.FarPlane)
		}
		return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.NearPlane, c.FarPlane), nil
	}
}

// ViewMatrix is the inverse of the camera's world matrix.
func ViewMatrix(cameraWorld mgl32.Mat4) mgl32.Mat4 {
	return cameraWorld.Inv()
}

// UpdateFrustum recomputes the clip planes used by IsVisible.
func (c *Camera) UpdateFrustum(view, projection mgl32.Mat4) {
	c.frustum = NewFrustum(projection.Mul4(view))
}

// Frustum returns the planes computed by the last UpdateFrustum.
func (c *Camera) Frustum() Frustum {
	return c.frustum
}

// IsVisible tests bounds against the camera frustum.
func (c *Camera) IsVisible(bounds AABB) bool {
	return c.frustum.IntersectsAABB(bounds)
}
