package canvas

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

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
	blue  = mgl32.Vec4{0, 0, 1, 1}
)

func setup(t *testing.T) (*scene.World, *backend.Recorder, *renderer.Scheduler, *Unit) {
	t.Helper()
	w := scene.NewWorld()
	rec := backend.NewRecorder()
	s := renderer.New(w, rec, renderer.DefaultOptions())
	t.Cleanup(s.Shutdown)
	u := NewUnit(w, 3)
	require.NoError(t, s.RegisterSystem(u))
	cam := w.CreateEntity("camera")
	require.NoError(t, w.AddComponent(cam, graphics.NewCamera()))
	return w, rec, s, u
}

func TestCanvasDrawsAfterCameras(t *testing.T) {
	w, rec, s, _ := setup(t)

	back := New()
	back.SortOrder = 1
	back.FillRect(0, 0, 100, 20, green)
	front := New()
	front.FillRect(10, 10, 5, 5, blue)
	front.Add(Rect{X: 0, Y: 0, W: 50, H: 50, Color: red, Z: -1})
	front.FillRect(0, 0, 0, 10, red)
	require.NoError(t, w.AddComponent(w.CreateEntity("hud"), back))
	require.NoError(t, w.AddComponent(w.CreateEntity("menu"), front))

	for _, cq := range s.Queue().Cameras {
		assert.Empty(t, cq.Batches, "canvas stays out of the camera queue")
	}

	s.Update()

	passes := rec.Passes()
	require.Len(t, passes, 2)
	assert.Equal(t, renderer.FirstCameraViewID, passes[0].View)
	assert.Equal(t, renderer.OverlayViewID, passes[1].View)
	assert.Equal(t, graphics.ClearDepth, passes[1].ClearMode)
	assert.Equal(t, 900, passes[1].Viewport.Dx())

	var colors []mgl32.Vec4
	for _, d := range rec.DrawsForView(renderer.OverlayViewID) {
		colors = append(colors, d.Color)
		assert.Len(t, d.Geometry, 30)
	}
	assert.Equal(t, []mgl32.Vec4{red, blue, green}, colors)
}

func TestCanvasRecollectsOnlyAfterChanges(t *testing.T) {
	w, rec, s, u := setup(t)
	c := New()
	c.FillRect(0, 0, 10, 10, red)
	require.NoError(t, w.AddComponent(w.CreateEntity("hud"), c))

	s.Update()
	s.Update()
	assert.Equal(t, 1, u.rebuilds)

	c.FillRect(20, 0, 10, 10, blue)
	rec.Reset()
	s.Update()
	assert.Len(t, rec.DrawsForView(renderer.OverlayViewID), 2, "rect edits need no rebuild")

	e := w.CreateEntity("popup")
	require.NoError(t, w.AddComponent(e, New()))
	s.Update()
	assert.Equal(t, 2, u.rebuilds)

	c.SetHidden(true)
	rec.Reset()
	s.Update()
	assert.Empty(t, rec.DrawsForView(renderer.OverlayViewID))
}

func TestNoCanvasNoPass(t *testing.T) {
	_, rec, s, _ := setup(t)
	s.Update()
	for _, p := range rec.Passes() {
		assert.NotEqual(t, renderer.OverlayViewID, p.View)
	}
}
