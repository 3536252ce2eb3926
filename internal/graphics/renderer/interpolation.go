package renderer

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// RotationMode selects how rotations are blended between ticks.
type RotationMode uint8

const (
	RotationNlerp RotationMode = iota
	RotationSlerp
)

func (m RotationMode) String() string {
	if m == RotationSlerp {
		return "slerp"
	}
	return "nlerp"
}

// ParseRotationMode accepts "nlerp" and "slerp". The empty string means nlerp.
func ParseRotationMode(s string) (RotationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nlerp":
		return RotationNlerp, nil
	case "slerp":
		return RotationSlerp, nil
	}
	return RotationNlerp, fmt.Errorf("renderer: unknown rotation mode %q", s)
}

// DrawCall is a world space snapshot of one visible entity taken when a tick
// finished. The snapshot is decomposed into position, rotation and scale, so
// it reproduces Transform.Matrix exactly unless a rotated node sits under a
// non-uniformly scaled ancestor. That combination shears, and the sheared
// part is lost in interpolated frames (see scene.Transform.Scale).
type DrawCall struct {
	Entity    scene.Entity
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	Scale     mgl32.Vec3
	Component any
}

func snapshot(e Entry) DrawCall {
	return DrawCall{
		Entity:    e.Entity,
		Position:  e.Transform.Position(),
		Rotation:  e.Transform.Rotation(),
		Scale:     e.Transform.Scale(),
		Component: e.Component,
	}
}

type drawKey struct {
	entity scene.Entity
	typ    reflect.Type
}

// DrawBucket holds the draw calls of one view for one tick, indexed by
// entity and component type for previous-call lookup.
type DrawBucket struct {
	calls []DrawCall
	index map[drawKey]int
}

func newDrawBucket() *DrawBucket {
	return &DrawBucket{index: make(map[drawKey]int)}
}

// Add appends dc. A component captured twice keeps its first position and
// the newest snapshot.
func (b *DrawBucket) Add(dc DrawCall) {
	k := drawKey{dc.Entity, reflect.TypeOf(dc.Component)}
	if i, ok := b.index[k]; ok {
		b.calls[i] = dc
		return
	}
	b.index[k] = len(b.calls)
	b.calls = append(b.calls, dc)
}

// Lookup returns the draw call captured for the component of e with the
// same dynamic type as component.
func (b *DrawBucket) Lookup(e scene.Entity, component any) (DrawCall, bool) {
	if b == nil {
		return DrawCall{}, false
	}
	i, ok := b.index[drawKey{e, reflect.TypeOf(component)}]
	if !ok {
		return DrawCall{}, false
	}
	return b.calls[i], true
}

// Calls returns the draw calls in capture order. The slice is owned by the
// bucket.
func (b *DrawBucket) Calls() []DrawCall {
	if b == nil {
		return nil
	}
	return b.calls
}

func (b *DrawBucket) Len() int {
	if b == nil {
		return 0
	}
	return len(b.calls)
}

func (b *DrawBucket) reset() {
	b.calls = b.calls[:0]
	clear(b.index)
}

// InterpolationBuffer double buffers draw buckets per view. Swap rotates the
// two sets and clears the new current set; nothing is copied.
type InterpolationBuffer struct {
	sets [2]map[ViewID]*DrawBucket
	cur  int
}

func NewInterpolationBuffer() *InterpolationBuffer {
	return &InterpolationBuffer{
		sets: [2]map[ViewID]*DrawBucket{
			make(map[ViewID]*DrawBucket),
			make(map[ViewID]*DrawBucket),
		},
	}
}

// Current returns the bucket being filled for view, or nil.
func (b *InterpolationBuffer) Current(view ViewID) *DrawBucket {
	return b.sets[b.cur][view]
}

// Previous returns the bucket of the tick before, or nil.
func (b *InterpolationBuffer) Previous(view ViewID) *DrawBucket {
	return b.sets[1-b.cur][view]
}

// Add appends dc to the current bucket of view.
func (b *InterpolationBuffer) Add(view ViewID, dc DrawCall) {
	set := b.sets[b.cur]
	bucket, ok := set[view]
	if !ok {
		bucket = newDrawBucket()
		set[view] = bucket
	}
	bucket.Add(dc)
}

// Swap makes current the previous set and empties the new current set.
func (b *InterpolationBuffer) Swap() {
	b.cur = 1 - b.cur
	for _, bucket := range b.sets[b.cur] {
		bucket.reset()
	}
}

// Views returns the views with a current bucket, ascending.
func (b *InterpolationBuffer) Views() []ViewID {
	views := make([]ViewID, 0, len(b.sets[b.cur]))
	for v := range b.sets[b.cur] {
		views = append(views, v)
	}
	slices.Sort(views)
	return views
}

// Drop forgets both buckets of view.
func (b *InterpolationBuffer) Drop(view ViewID) {
	delete(b.sets[0], view)
	delete(b.sets[1], view)
}

// Interpolate writes the blend of prev and cur at alpha into dst. alpha is
// clamped to [0,1]; the end points reproduce prev and cur exactly.
func Interpolate(prev, cur DrawCall, alpha float32, mode RotationMode, dst *scene.Transform) {
	switch {
	case alpha <= 0 || math.IsNaN(float64(alpha)):
		dst.SetLocal(prev.Position, prev.Rotation, prev.Scale)
	case alpha >= 1:
		dst.SetLocal(cur.Position, cur.Rotation, cur.Scale)
	default:
		dst.SetLocal(
			lerpVec3(prev.Position, cur.Position, alpha),
			blendRotation(prev.Rotation, cur.Rotation, alpha, mode),
			lerpVec3(prev.Scale, cur.Scale, alpha),
		)
	}
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// blendRotation takes the shortest arc between a and b.
func blendRotation(a, b mgl32.Quat, t float32, mode RotationMode) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if mode == RotationSlerp {
		return mgl32.QuatSlerp(a, b, t)
	}
	return mgl32.QuatNlerp(a, b, t)
}
