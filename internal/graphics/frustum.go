package graphics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a plane in Hessian normal form: A*x + B*y + C*z + D = 0.
type Plane struct {
	A, B, C, D float32
}

// Distance returns the signed distance of p to the plane.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.A*v[0] + p.B*v[1] + p.C*v[2] + p.D
}

func normalizePlane(p Plane) Plane {
	l := float32(math.Sqrt(float64(p.A*p.A + p.B*p.B + p.C*p.C)))
	if l == 0 {
		return p
	}
	return Plane{p.A / l, p.B / l, p.C / l, p.D / l}
}

// Frustum holds the six clip planes of a camera in world space, ordered
// left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum extracts the planes from the combined projection*view matrix.
func NewFrustum(clip mgl32.Mat4) Frustum {
	// mgl32 matrices are column-major
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	var f Frustum
	f.Planes[0] = normalizePlane(Plane{m30 + m00, m31 + m01, m32 + m02, m33 + m03})
	f.Planes[1] = normalizePlane(Plane{m30 - m00, m31 - m01, m32 - m02, m33 - m03})
	f.Planes[2] = normalizePlane(Plane{m30 + m10, m31 + m11, m32 + m12, m33 + m13})
	f.Planes[3] = normalizePlane(Plane{m30 - m10, m31 - m11, m32 - m12, m33 - m13})
	f.Planes[4] = normalizePlane(Plane{m30 + m20, m31 + m21, m32 + m22, m33 + m23})
	f.Planes[5] = normalizePlane(Plane{m30 - m20, m31 - m21, m32 - m22, m33 - m23})
	return f
}

// IntersectsAABB reports whether any part of b is inside the frustum.
// For each plane only the corner furthest along the normal is tested; if
// that corner is behind the plane the whole box is.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for i := range f.Planes {
		p := f.Planes[i]
		px := b.Max[0]
		if p.A < 0 {
			px = b.Min[0]
		}
		py := b.Max[1]
		if p.B < 0 {
			py = b.Min[1]
		}
		pz := b.Max[2]
		if p.C < 0 {
			pz = b.Min[2]
		}
		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return false
		}
	}
	return true
}
