package scene

import (
	"reflect"
	"testing"

	"framekit/internal/graphics"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeCounter struct{ n int }

func (c *changeCounter) WorldChanged() { c.n++ }

type tag struct{ name string }

func TestEntityLifecycle(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity("a")
	b := w.CreateEntity("b")
	assert.False(t, a.IsZero())
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, "b", w.Name(b))

	require.NoError(t, w.DestroyEntity(a))
	assert.False(t, w.IsAlive(a))
	assert.ErrorIs(t, w.DestroyEntity(a), ErrNoEntity)
	assert.Nil(t, w.Transform(a))

	// the slot is reused with a new generation
	c := w.CreateEntity("c")
	assert.Equal(t, a.Index, c.Index)
	assert.NotEqual(t, a.Generation, c.Generation)
	assert.False(t, w.IsAlive(a))
	assert.True(t, w.IsAlive(c))
}

func TestEachKeepsCreationOrder(t *testing.T) {
	w := NewWorld()
	var want []Entity
	for _, n := range []string{"x", "y", "z"} {
		want = append(want, w.CreateEntity(n))
	}
	var got []Entity
	w.Each(func(e Entity, tr *Transform) bool {
		assert.Equal(t, e, tr.Entity())
		got = append(got, e)
		return true
	})
	assert.Equal(t, want, got)
}

func TestComponents(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity("e")
	require.NoError(t, w.AddComponent(e, &tag{name: "hello"}))
	assert.ErrorIs(t, w.AddComponent(e, nil), ErrNilComponent)

	got, ok := Get[*tag](w, e)
	require.True(t, ok)
	assert.Equal(t, "hello", got.name)

	require.NoError(t, w.RemoveComponent(e, reflect.TypeOf((**tag)(nil)).Elem()))
	_, ok = Get[*tag](w, e)
	assert.False(t, ok)
}

func TestChangeNotificationsAndBatch(t *testing.T) {
	w := NewWorld()
	c := &changeCounter{}
	w.AddChangeReceiver(c)
	w.AddChangeReceiver(c)

	e := w.CreateEntity("e")
	assert.Equal(t, 1, c.n)

	w.Batch(func() {
		require.NoError(t, w.AddComponent(e, &tag{}))
		require.NoError(t, w.SetLayer(e, 3))
		w.Batch(func() {
			w.CreateEntity("f")
		})
	})
	assert.Equal(t, 2, c.n)

	// value edits are not structural
	w.Transform(e).SetLocalPosition(mgl32.Vec3{1, 2, 3})
	assert.Equal(t, 2, c.n)

	w.RemoveChangeReceiver(c)
	w.CreateEntity("g")
	assert.Equal(t, 2, c.n)
}

func TestHierarchyWorldMatrix(t *testing.T) {
	w := NewWorld()
	parent := w.CreateEntity("parent")
	child := w.CreateEntity("child")
	require.NoError(t, w.SetParent(child, parent))

	pt, ct := w.Transform(parent), w.Transform(child)
	pt.SetLocalPosition(mgl32.Vec3{10, 0, 0})
	ct.SetLocalPosition(mgl32.Vec3{1, 0, 0})
	assert.Equal(t, mgl32.Vec3{11, 0, 0}, ct.Position())

	// a parent change invalidates the cached child matrix
	pt.SetLocalPosition(mgl32.Vec3{20, 0, 0})
	assert.Equal(t, mgl32.Vec3{21, 0, 0}, ct.Position())

	pt.SetLocalScale(mgl32.Vec3{2, 2, 2})
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, ct.Scale())
	assert.Equal(t, mgl32.Vec3{22, 0, 0}, ct.Position())

	require.Len(t, pt.Children(), 1)
	assert.Same(t, pt, ct.Parent())

	require.NoError(t, w.SetParent(child, Entity{}))
	assert.Nil(t, ct.Parent())
	assert.Empty(t, pt.Children())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, ct.Position())
}

func TestMatrixCacheReusedUntilChange(t *testing.T) {
	tr := NewTransform()
	tr.SetLocalPosition(mgl32.Vec3{1, 2, 3})
	first := tr.Matrix()
	stamp := tr.worldStamp

	// unrelated edits elsewhere do not invalidate this matrix
	NewTransform().SetLocalPosition(mgl32.Vec3{9, 9, 9})
	assert.Equal(t, first, tr.Matrix())
	assert.Equal(t, stamp, tr.worldStamp)

	tr.SetLocalPosition(mgl32.Vec3{0, 0, 0})
	assert.NotEqual(t, first, tr.Matrix())
	assert.Greater(t, tr.worldStamp, stamp)
}

func TestSetParentRejectsCycles(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity("a")
	b := w.CreateEntity("b")
	c := w.CreateEntity("c")
	require.NoError(t, w.SetParent(b, a))
	require.NoError(t, w.SetParent(c, b))

	assert.ErrorIs(t, w.SetParent(a, c), ErrCycle)
	assert.ErrorIs(t, w.SetParent(a, a), ErrCycle)
	assert.ErrorIs(t, w.SetParent(a, Entity{Index: 99, Generation: 1}), ErrNoEntity)
}

func TestDestroyRemovesSubtree(t *testing.T) {
	w := NewWorld()
	a := w.CreateEntity("a")
	b := w.CreateEntity("b")
	c := w.CreateEntity("c")
	require.NoError(t, w.SetParent(b, a))
	require.NoError(t, w.SetParent(c, b))

	require.NoError(t, w.DestroyEntity(a))
	assert.Zero(t, w.Len())
	assert.False(t, w.IsAlive(c))
}

func TestSortedCameras(t *testing.T) {
	w := NewWorld()
	mk := func(name string, depth int) Entity {
		e := w.CreateEntity(name)
		cam := graphics.NewCamera()
		cam.Depth = depth
		require.NoError(t, w.AddComponent(e, cam))
		return e
	}
	late := mk("late", 5)
	first := mk("first", -1)
	tieA := mk("tieA", 0)
	tieB := mk("tieB", 0)
	w.CreateEntity("not a camera")

	cams := w.SortedCameras()
	require.Len(t, cams, 4)
	assert.Equal(t, []Entity{first, tieA, tieB, late},
		[]Entity{cams[0].Entity, cams[1].Entity, cams[2].Entity, cams[3].Entity})
	assert.Same(t, w.Transform(first), cams[0].Transform)
}

func TestClearChanged(t *testing.T) {
	w := NewWorld()
	e := w.CreateEntity("e")
	tr := w.Transform(e)
	tr.SetLocalPosition(mgl32.Vec3{1, 0, 0})
	assert.True(t, tr.ChangedThisFrame)
	w.ClearChanged()
	assert.False(t, tr.ChangedThisFrame)
}
