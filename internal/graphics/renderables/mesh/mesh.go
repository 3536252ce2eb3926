package mesh

import (
	"errors"
	"fmt"

	"framekit/internal/graphics"
	"framekit/internal/graphics/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrMissingMeshData = errors.New("mesh: missing mesh data")

// Mesh is geometry already uploaded by the asset layer.
type Mesh struct {
	Handle    uint32
	Vertices  int32
	Triangles int
	// Bounds is the local space bounding box.
	Bounds graphics.AABB
}

// Renderer is the mesh component.
type Renderer struct {
	renderer.Renderable

	Mesh    *Mesh
	Program uint32
	Texture uint32
	Color   mgl32.Vec4
}

// NewRenderer creates a white, enabled mesh component.
func NewRenderer(m *Mesh, program uint32) (*Renderer, error) {
	switch {
	case m == nil:
		return nil, ErrMissingMeshData
	case m.Handle == 0:
		return nil, fmt.Errorf("%w: mesh has no handle", ErrMissingMeshData)
	case m.Vertices <= 0:
		return nil, fmt.Errorf("%w: mesh has %d vertices", ErrMissingMeshData, m.Vertices)
	}
	return &Renderer{
		Renderable: renderer.NewRenderable(),
		Mesh:       m,
		Program:    program,
		Color:      mgl32.Vec4{1, 1, 1, 1},
	}, nil
}

// Cube returns the unit cube description for a mesh uploaded with 36 vertices.
func Cube(handle uint32) *Mesh {
	return &Mesh{
		Handle:    handle,
		Vertices:  36,
		Triangles: 12,
		Bounds:    graphics.NewAABB(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5}),
	}
}

// CubeVertices is a unit cube as position and uv triangles, counter-clockwise.
var CubeVertices = []float32{
	// back
	-0.5, -0.5, -0.5, 1, 0, 0.5, 0.5, -0.5, 0, 1, 0.5, -0.5, -0.5, 0, 0,
	0.5, 0.5, -0.5, 0, 1, -0.5, -0.5, -0.5, 1, 0, -0.5, 0.5, -0.5, 1, 1,
	// front
	-0.5, -0.5, 0.5, 0, 0, 0.5, -0.5, 0.5, 1, 0, 0.5, 0.5, 0.5, 1, 1,
	0.5, 0.5, 0.5, 1, 1, -0.5, 0.5, 0.5, 0, 1, -0.5, -0.5, 0.5, 0, 0,
	// left
	-0.5, 0.5, 0.5, 1, 1, -0.5, 0.5, -0.5, 0, 1, -0.5, -0.5, -0.5, 0, 0,
	-0.5, -0.5, -0.5, 0, 0, -0.5, -0.5, 0.5, 1, 0, -0.5, 0.5, 0.5, 1, 1,
	// right
	0.5, 0.5, 0.5, 0, 1, 0.5, -0.5, -0.5, 1, 0, 0.5, 0.5, -0.5, 1, 1,
	0.5, -0.5, -0.5, 1, 0, 0.5, 0.5, 0.5, 0, 1, 0.5, -0.5, 0.5, 0, 0,
	// bottom
	-0.5, -0.5, -0.5, 0, 1, 0.5, -0.5, -0.5, 1, 1, 0.5, -0.5, 0.5, 1, 0,
	0.5, -0.5, 0.5, 1, 0, -0.5, -0.5, 0.5, 0, 0, -0.5, -0.5, -0.5, 0, 1,
	// top
	-0.5, 0.5, -0.5, 0, 0, 0.5, 0.5, 0.5, 1, 1, 0.5, 0.5, -0.5, 1, 0,
	0.5, 0.5, 0.5, 1, 1, -0.5, 0.5, -0.5, 0, 0, -0.5, 0.5, 0.5, 0, 1,
}
