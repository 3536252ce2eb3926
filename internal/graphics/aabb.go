package graphics

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB builds a box from its center and half extents.
func NewAABB(center, extents mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Contains reports whether p lies inside the box, borders included.
func (b AABB) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Encapsulate grows the box so it contains p.
func (b AABB) Encapsulate(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
	return b
}

// Transform returns the box enclosing b after applying m.
// Each output axis takes the extreme of every matrix term (Arvo's method),
// which avoids transforming all eight corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	var out AABB
	for i := 0; i < 3; i++ {
		out.Min[i] = m.At(i, 3)
		out.Max[i] = m.At(i, 3)
		for j := 0; j < 3; j++ {
			e := m.At(i, j) * b.Min[j]
			f := m.At(i, j) * b.Max[j]
			out.Min[i] += min(e, f)
			out.Max[i] += max(e, f)
		}
	}
	return out
}
