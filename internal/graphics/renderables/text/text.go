package text

import (
	"reflect"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultPixelsPerUnit maps font pixels to world units.
const DefaultPixelsPerUnit = 32

// Renderer is the text component. Text is laid out on the XY plane of the
// transform with the baseline on the X axis.
type Renderer struct {
	renderer.Renderable

	Text          string
	Color         mgl32.Vec4
	PixelsPerUnit float32

	atlas    *Atlas
	measured string
	width    int
	height   int
}

// NewRenderer creates a white text component drawing with atlas.
func NewRenderer(atlas *Atlas, s string) (*Renderer, error) {
	if atlas == nil || len(atlas.Glyphs) == 0 {
		return nil, ErrEmptyFont
	}
	return &Renderer{
		Renderable:    renderer.NewRenderable(),
		Text:          s,
		Color:         mgl32.Vec4{1, 1, 1, 1},
		PixelsPerUnit: DefaultPixelsPerUnit,
		atlas:         atlas,
	}, nil
}

// Size returns the measured pixel size of the current text.
func (r *Renderer) Size() (w, h int) {
	r.measure()
	return r.width, r.height
}

func (r *Renderer) measure() {
	if r.measured == r.Text && r.height != 0 {
		return
	}
	r.width, r.height = r.atlas.Measure(r.Text)
	r.measured = r.Text
}

func (r *Renderer) scale() float32 {
	if r.PixelsPerUnit <= 0 {
		return 1.0 / DefaultPixelsPerUnit
	}
	return 1 / r.PixelsPerUnit
}

func (r *Renderer) localBounds() graphics.AABB {
	r.measure()
	s := r.scale()
	return graphics.AABB{
		Min: mgl32.Vec3{0, -float32(r.atlas.Descent) * s, 0},
		Max: mgl32.Vec3{float32(r.width) * s, float32(r.atlas.Ascent) * s, 0},
	}
}

type staged struct {
	geometry []float32
	model    mgl32.Mat4
	texture  uint32
	color    mgl32.Vec4
}

// Unit renders text components as streamed glyph quads.
type Unit struct {
	Program uint32

	staged []staged
	n      int
}

// NewUnit creates a text unit drawing with program.
func NewUnit(program uint32) *Unit {
	return &Unit{Program: program}
}

func (u *Unit) RelatedComponentType() reflect.Type { return reflect.TypeOf((**Renderer)(nil)).Elem() }
func (u *Unit) UsesOwnRenderProcess() bool         { return false }
func (u *Unit) Startup() error                     { return nil }
func (u *Unit) Shutdown()                          { u.staged, u.n = nil, 0 }
func (u *Unit) Prepare()                           { u.n = 0 }
func (u *Unit) ClearRenderData(renderer.ViewID)    {}

// Preprocess remeasures changed text and refreshes the bounds.
func (u *Unit) Preprocess(ctx renderer.RenderContext, entries []renderer.Entry) {
	for _, e := range entries {
		r := e.Component.(*Renderer)
		r.Bounds = r.localBounds().Transform(e.Transform.Matrix())
	}
}

func (u *Unit) Process(ctx renderer.RenderContext, entries []renderer.Entry) {
	defer profiling.Track("text.Process")()
	for _, e := range entries {
		if !e.Visible() || e.Component.(*Renderer).Text == "" {
			continue
		}
		r := e.Component.(*Renderer)
		if u.n == len(u.staged) {
			u.staged = append(u.staged, staged{})
		}
		st := &u.staged[u.n]
		u.n++
		st.geometry = r.atlas.Quads(st.geometry[:0], r.Text)
		s := r.scale()
		st.model = e.Transform.Matrix().Mul4(mgl32.Scale3D(s, s, 1))
		st.texture = r.atlas.Texture
		st.color = r.Color
	}
}

func (u *Unit) Submit(ctx renderer.RenderContext) {
	for i := 0; i < u.n; i++ {
		st := &u.staged[i]
		if len(st.geometry) == 0 {
			continue
		}
		vertices := len(st.geometry) / 5
		ctx.Backend.Render(backend.RenderState{
			View:      ctx.ViewID,
			Program:   u.Program,
			Texture:   st.texture,
			Model:     st.model,
			Color:     st.color,
			Vertices:  int32(vertices),
			Triangles: vertices / 3,
			Geometry:  st.geometry,
		})
	}
	u.n = 0
}
