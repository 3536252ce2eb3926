package mesh

import (
	"testing"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRendererValidatesMesh(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		ok   bool
	}{
		{"nil", nil, false},
		{"no handle", &Mesh{Vertices: 3}, false},
		{"no vertices", &Mesh{Handle: 1}, false},
		{"cube", Cube(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRenderer(tt.mesh, 7)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrMissingMeshData)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.True(t, r.Enabled)
			assert.Equal(t, uint32(7), r.Program)
		})
	}
}

func TestCubeVertexCount(t *testing.T) {
	assert.Len(t, CubeVertices, int(Cube(1).Vertices)*5)
}

type scene3 struct {
	w   *scene.World
	rec *backend.Recorder
	s   *renderer.Scheduler
	u   *Unit
}

func newScene(t *testing.T) *scene3 {
	t.Helper()
	w := scene.NewWorld()
	rec := backend.NewRecorder()
	s := renderer.New(w, rec, renderer.DefaultOptions())
	t.Cleanup(s.Shutdown)
	u := NewUnit()
	require.NoError(t, s.RegisterSystem(u))

	cam := w.CreateEntity("camera")
	require.NoError(t, w.AddComponent(cam, graphics.NewCamera()))
	return &scene3{w: w, rec: rec, s: s, u: u}
}

func (sc *scene3) cube(t *testing.T, pos mgl32.Vec3, handle uint32) *Renderer {
	t.Helper()
	r, err := NewRenderer(Cube(handle), 1)
	require.NoError(t, err)
	e := sc.w.CreateEntity("cube")
	require.NoError(t, sc.w.AddComponent(e, r))
	sc.w.Transform(e).SetLocalPosition(pos)
	return r
}

func TestIdenticalMeshesAreInstanced(t *testing.T) {
	sc := newScene(t)
	for i := 0; i < 5; i++ {
		sc.cube(t, mgl32.Vec3{float32(i) - 2, 0, -10}, 1)
	}
	sc.cube(t, mgl32.Vec3{0, 2, -10}, 2)

	sc.s.Update()

	draws := sc.rec.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, 5, draws[0].Instances)
	assert.Len(t, draws[0].Instanced, 5)
	assert.Equal(t, uint32(2), draws[1].Mesh)
	assert.Zero(t, draws[1].Instances)

	st := sc.s.Stats()
	assert.Equal(t, 2, st.DrawCalls)
	assert.Equal(t, 4, st.SavedDrawCalls)
	assert.Equal(t, 6*12, st.TriangleCount)
	assert.Equal(t, 2, sc.u.Draws(renderer.FirstCameraViewID))
}

func TestSmallGroupsDrawSeparately(t *testing.T) {
	sc := newScene(t)
	sc.cube(t, mgl32.Vec3{-1, 0, -10}, 1)
	sc.cube(t, mgl32.Vec3{1, 0, -10}, 1)

	sc.s.Update()
	assert.Len(t, sc.rec.Draws(), 2)

	sc.u.MinInstances = 2
	sc.rec.Reset()
	sc.s.Update()
	assert.Len(t, sc.rec.Draws(), 1)
}

func TestBoundsFollowTransform(t *testing.T) {
	sc := newScene(t)
	r := sc.cube(t, mgl32.Vec3{3, 0, -10}, 1)
	behind := sc.cube(t, mgl32.Vec3{0, 0, 10}, 1)

	sc.s.Update()

	assert.True(t, r.Bounds.Contains(mgl32.Vec3{3.4, 0.4, -10.4}))
	assert.False(t, r.Bounds.Contains(mgl32.Vec3{0, 0, -10}))
	assert.Equal(t, renderer.CullInvisible, behind.CullingState)
	assert.Len(t, sc.rec.Draws(), 1)
	assert.Equal(t, 1, sc.s.Stats().CulledDrawCalls)
}

func TestClearRenderData(t *testing.T) {
	u := NewUnit()
	require.NoError(t, u.Startup())
	u.draws[3] = 9
	u.ClearRenderData(3)
	assert.Zero(t, u.Draws(3))

	u.Shutdown()
	u.Shutdown()
	assert.False(t, u.started)
}
