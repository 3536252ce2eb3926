package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// noParent marks a root transform.
const noParent = -1

// versionClock hands out change stamps. Stamps are unique and increasing
// across all transforms, so a cached matrix stamped at s is stale as soon as
// any transform on its ancestor chain carries a version above s.
var versionClock atomic.Uint64

func nextVersion() uint64 { return versionClock.Add(1) }

// Transform is the position, rotation and scale of an entity relative to its
// parent. Transforms live in an arena owned by the World and reference their
// parent by arena index; children are forward edges only.
//
// The world matrix is cached and recomputed only when the transform or one
// of its ancestors changed since the last computation.
type Transform struct {
	arena  *arena
	index  int
	entity Entity

	parent   int
	children []int

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	// version is the stamp of the last local change, worldStamp the clock
	// value when world was last computed.
	version    uint64
	worldStamp uint64
	world      mgl32.Mat4

	// ChangedThisFrame is set by every mutation and cleared by the renderer
	// once the frame that observed it is done.
	ChangedThisFrame bool
}

// NewTransform returns a detached identity transform. Detached transforms
// have no entity and no parent; the renderer uses one as the interpolation
// staging transform.
func NewTransform() *Transform {
	return &Transform{
		parent:   noParent,
		index:    noParent,
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		version:  nextVersion(),
	}
}

// Entity returns the owning entity, or the zero Entity for detached transforms.
func (t *Transform) Entity() Entity { return t.entity }

// LocalPosition returns the position relative to the parent.
func (t *Transform) LocalPosition() mgl32.Vec3 { return t.position }

// LocalRotation returns the rotation relative to the parent.
func (t *Transform) LocalRotation() mgl32.Quat { return t.rotation }

// LocalScale returns the scale relative to the parent.
func (t *Transform) LocalScale() mgl32.Vec3 { return t.scale }

func (t *Transform) touch() {
	t.version = nextVersion()
	t.ChangedThisFrame = true
}

// SetLocalPosition sets the position relative to the parent.
func (t *Transform) SetLocalPosition(p mgl32.Vec3) {
	t.position = p
	t.touch()
}

// SetLocalRotation sets the rotation relative to the parent.
func (t *Transform) SetLocalRotation(q mgl32.Quat) {
	t.rotation = q
	t.touch()
}

// SetLocalScale sets the scale relative to the parent.
func (t *Transform) SetLocalScale(s mgl32.Vec3) {
	t.scale = s
	t.touch()
}

// SetLocal sets position, rotation and scale at once.
func (t *Transform) SetLocal(p mgl32.Vec3, q mgl32.Quat, s mgl32.Vec3) {
	t.position, t.rotation, t.scale = p, q, s
	t.touch()
}

// Parent returns the parent transform, or nil for roots.
func (t *Transform) Parent() *Transform {
	if t.arena == nil || t.parent == noParent {
		return nil
	}
	return t.arena.at(t.parent)
}

// Children returns the direct children in attachment order.
func (t *Transform) Children() []*Transform {
	if t.arena == nil || len(t.children) == 0 {
		return nil
	}
	out := make([]*Transform, 0, len(t.children))
	for _, idx := range t.children {
		out = append(out, t.arena.at(idx))
	}
	return out
}

func (t *Transform) localMatrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.position[0], t.position[1], t.position[2]).
		Mul4(t.rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.scale[0], t.scale[1], t.scale[2]))
}

// chainVersion returns the newest local change stamp from this node up to
// the root.
func (t *Transform) chainVersion() uint64 {
	v := t.version
	for p := t.Parent(); p != nil; p = p.Parent() {
		v = max(v, p.version)
	}
	return v
}

// Matrix returns the local-to-world matrix.
func (t *Transform) Matrix() mgl32.Mat4 {
	if t.worldStamp != 0 && t.worldStamp >= t.chainVersion() {
		return t.world
	}
	stamp := versionClock.Load()
	m := t.localMatrix()
	if p := t.Parent(); p != nil {
		m = p.Matrix().Mul4(m)
	}
	t.world = m
	t.worldStamp = stamp
	return m
}

// Position returns the world space position.
func (t *Transform) Position() mgl32.Vec3 {
	return t.Matrix().Col(3).Vec3()
}

// Rotation returns the world space rotation.
func (t *Transform) Rotation() mgl32.Quat {
	q := t.rotation
	for p := t.Parent(); p != nil; p = p.Parent() {
		q = p.rotation.Mul(q)
	}
	return q
}

// Scale returns the accumulated world space scale. A node rotated relative
// to a non-uniformly scaled ancestor is sheared, which a Vec3 cannot
// express; the componentwise product is returned in that case.
func (t *Transform) Scale() mgl32.Vec3 {
	s := t.scale
	for p := t.Parent(); p != nil; p = p.Parent() {
		s = mgl32.Vec3{s[0] * p.scale[0], s[1] * p.scale[1], s[2] * p.scale[2]}
	}
	return s
}

// Forward returns the world space -Z axis.
func (t *Transform) Forward() mgl32.Vec3 {
	return t.Rotation().Rotate(mgl32.Vec3{0, 0, -1})
}

// arena stores transforms by entity index.
type arena struct {
	slots []*Transform
}

func (a *arena) at(i int) *Transform {
	if i < 0 || i >= len(a.slots) {
		return nil
	}
	return a.slots[i]
}

func (a *arena) put(i int, t *Transform) {
	for len(a.slots) <= i {
		a.slots = append(a.slots, nil)
	}
	t.arena = a
	t.index = i
	a.slots[i] = t
}

// isAncestor reports whether candidate is t or one of t's ancestors.
func (a *arena) isAncestor(candidate, t int) bool {
	for i := t; i != noParent; {
		if i == candidate {
			return true
		}
		n := a.at(i)
		if n == nil {
			return false
		}
		i = n.parent
	}
	return false
}

func (a *arena) detach(child *Transform) {
	if child.parent == noParent {
		return
	}
	if p := a.at(child.parent); p != nil {
		for i, c := range p.children {
			if c == child.index {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	child.parent = noParent
	child.touch()
}

func (a *arena) attach(child, parent *Transform) {
	a.detach(child)
	child.parent = parent.index
	parent.children = append(parent.children, child.index)
	child.touch()
}
