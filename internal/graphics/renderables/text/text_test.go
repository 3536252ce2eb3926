package text

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

func defaultAtlas(t testing.TB) *Atlas {
	t.Helper()
	a, err := BuildAtlas(DefaultFace(), ASCII(), 256)
	require.NoError(t, err)
	return a
}

func TestBuildAtlas(t *testing.T) {
	a := defaultAtlas(t)

	assert.Len(t, a.Glyphs, 95)
	g := a.Glyphs['A']
	assert.Equal(t, 7, g.Advance)
	assert.Equal(t, 6, g.W)
	assert.Equal(t, 13, g.H)
	assert.Equal(t, 11, g.BearingY)
	assert.Equal(t, 11, a.Ascent)
	assert.Equal(t, 2, a.Descent)
	assert.Equal(t, 256, a.Image.Rect.Dx())

	inked := 0
	for y := g.Y; y < g.Y+g.H; y++ {
		for x := g.X; x < g.X+g.W; x++ {
			if a.Image.AlphaAt(x, y).A > 0 {
				inked++
			}
		}
	}
	assert.Positive(t, inked, "glyph pixels copied into the sheet")
}

func TestBuildAtlasErrors(t *testing.T) {
	_, err := BuildAtlas(nil, ASCII(), 256)
	assert.ErrorIs(t, err, ErrEmptyFont)

	_, err = BuildAtlas(DefaultFace(), nil, 256)
	assert.ErrorIs(t, err, ErrEmptyFont)

	_, err = BuildAtlas(DefaultFace(), ASCII(), 4)
	assert.Error(t, err)
}

func TestMeasureAndQuads(t *testing.T) {
	a := defaultAtlas(t)

	w, h := a.Measure("abc")
	assert.Equal(t, 21, w)
	assert.Equal(t, 13, h)

	quads := a.Quads(nil, "a b")
	assert.Len(t, quads, 2*6*5, "spaces only advance")
	// Second glyph starts two advances in.
	assert.Equal(t, float32(14), quads[6*5])
}

func TestNewRendererNeedsGlyphs(t *testing.T) {
	_, err := NewRenderer(nil, "x")
	assert.ErrorIs(t, err, ErrEmptyFont)
	_, err = NewRenderer(&Atlas{}, "x")
	assert.ErrorIs(t, err, ErrEmptyFont)

	r, err := NewRenderer(defaultAtlas(t), "hello")
	require.NoError(t, err)
	w, h := r.Size()
	assert.Equal(t, 35, w)
	assert.Equal(t, 13, h)

	r.Text = "hi"
	w, _ = r.Size()
	assert.Equal(t, 14, w, "remeasured after a change")
}

func TestTextUnitDrawsGlyphQuads(t *testing.T) {
	w := scene.NewWorld()
	rec := backend.NewRecorder()
	s := renderer.New(w, rec, renderer.DefaultOptions())
	t.Cleanup(s.Shutdown)
	require.NoError(t, s.RegisterSystem(NewUnit(4)))
	cam := w.CreateEntity("camera")
	require.NoError(t, w.AddComponent(cam, graphics.NewCamera()))

	atlas := defaultAtlas(t)
	atlas.Texture = 9
	label, err := NewRenderer(atlas, "Hi")
	require.NoError(t, err)
	e := w.CreateEntity("label")
	require.NoError(t, w.AddComponent(e, label))
	w.Transform(e).SetLocalPosition(mgl32.Vec3{0, 0, -5})

	empty, err := NewRenderer(atlas, "")
	require.NoError(t, err)
	require.NoError(t, w.AddComponent(w.CreateEntity("empty"), empty))

	s.Update()

	draws := rec.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, int32(12), draws[0].Vertices)
	assert.Equal(t, 4, draws[0].Triangles)
	assert.Equal(t, uint32(9), draws[0].Texture)
	assert.Len(t, draws[0].Geometry, 60)
	assert.InDelta(t, 14.0/32, label.Bounds.Max.X(), 1e-6)
	assert.InDelta(t, -5, label.Bounds.Min.Z(), 1e-6)
}
