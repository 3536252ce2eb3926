package sprite

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/logging"
	"framekit/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidSize = errors.New("sprite: invalid size")

// Renderer is the sprite component: a textured quad in the XY plane of its
// transform, centered on the origin.
type Renderer struct {
	renderer.Renderable

	Texture uint32
	// TexturePath, when Texture is zero, is resolved through the unit's
	// TextureSource the first time the sprite is drawn.
	TexturePath string
	Size        mgl32.Vec2
	Color       mgl32.Vec4
	// Order sorts sprites before depth. Lower orders draw first.
	Order int
}

// NewRenderer creates a white sprite of the given world size.
func NewRenderer(texture uint32, size mgl32.Vec2) (*Renderer, error) {
	for _, v := range size {
		if v <= 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
		}
	}
	return &Renderer{
		Renderable: renderer.NewRenderable(),
		Texture:    texture,
		Size:       size,
		Color:      mgl32.Vec4{1, 1, 1, 1},
	}, nil
}

func (r *Renderer) localBounds() graphics.AABB {
	return graphics.NewAABB(mgl32.Vec3{}, mgl32.Vec3{r.Size.X() / 2, r.Size.Y() / 2, 0})
}

type staged struct {
	order   int
	depth   float32
	seq     int
	model   mgl32.Mat4
	texture uint32
	color   mgl32.Vec4
}

// TextureSource turns a texture path into a backend texture handle.
type TextureSource interface {
	Get(path string) (uint32, error)
}

// Unit renders sprites sorted by Order, then back to front.
type Unit struct {
	// Quad is the mesh handle of a unit quad.
	Quad    uint32
	Program uint32
	// Textures resolves Renderer.TexturePath. Nil leaves such sprites untextured.
	Textures TextureSource

	staged []staged
	failed map[string]bool
}

// NewUnit creates a sprite unit drawing with the given quad mesh and program.
func NewUnit(quad, program uint32) *Unit {
	return &Unit{Quad: quad, Program: program}
}

func (u *Unit) RelatedComponentType() reflect.Type { return reflect.TypeOf((**Renderer)(nil)).Elem() }
func (u *Unit) UsesOwnRenderProcess() bool         { return false }
func (u *Unit) Startup() error                     { return nil }
func (u *Unit) Shutdown()                          { u.staged = nil }
func (u *Unit) Prepare()                           { u.staged = u.staged[:0] }
func (u *Unit) ClearRenderData(renderer.ViewID)    {}

func (u *Unit) Preprocess(ctx renderer.RenderContext, entries []renderer.Entry) {
	for _, e := range entries {
		r := e.Component.(*Renderer)
		r.Bounds = r.localBounds().Transform(e.Transform.Matrix())
	}
}

func (u *Unit) Process(ctx renderer.RenderContext, entries []renderer.Entry) {
	defer profiling.Track("sprite.Process")()
	for _, e := range entries {
		if !e.Visible() {
			continue
		}
		r := e.Component.(*Renderer)
		u.resolve(r)
		world := e.Transform.Matrix()
		model := world.Mul4(mgl32.Scale3D(r.Size.X(), r.Size.Y(), 1))
		viewPos := ctx.View.Mul4x1(world.Col(3))
		u.staged = append(u.staged, staged{
			order:   r.Order,
			depth:   viewPos.Z(),
			seq:     len(u.staged),
			model:   model,
			texture: r.Texture,
			color:   r.Color,
		})
	}
}

// resolve loads the texture named by r.TexturePath once. A path that failed
// to load is not retried.
func (u *Unit) resolve(r *Renderer) {
	if r.Texture != 0 || r.TexturePath == "" || u.Textures == nil || u.failed[r.TexturePath] {
		return
	}
	tex, err := u.Textures.Get(r.TexturePath)
	if err != nil {
		if u.failed == nil {
			u.failed = make(map[string]bool)
		}
		u.failed[r.TexturePath] = true
		logging.With("sprite").Warn("sprite texture unavailable", "path", r.TexturePath, "err", err)
		return
	}
	r.Texture = tex
}

// Submit draws the staged sprites. View space looks down -Z, so the most
// negative depth is the farthest.
func (u *Unit) Submit(ctx renderer.RenderContext) {
	defer profiling.Track("sprite.Submit")()
	sort.SliceStable(u.staged, func(i, j int) bool {
		a, b := u.staged[i], u.staged[j]
		if a.order != b.order {
			return a.order < b.order
		}
		if a.depth != b.depth {
			return a.depth < b.depth
		}
		return a.seq < b.seq
	})
	for _, s := range u.staged {
		ctx.Backend.Render(backend.RenderState{
			View:      ctx.ViewID,
			Program:   u.Program,
			Mesh:      u.Quad,
			Texture:   s.texture,
			Model:     s.model,
			Color:     s.color,
			Vertices:  6,
			Triangles: 2,
		})
	}
	u.staged = u.staged[:0]
}

// QuadVertices is a unit quad centred on the origin in the XY plane, as
// position and uv triangles.
var QuadVertices = []float32{
	-0.5, -0.5, 0, 0, 1,
	0.5, -0.5, 0, 1, 1,
	0.5, 0.5, 0, 1, 0,
	-0.5, -0.5, 0, 0, 1,
	0.5, 0.5, 0, 1, 0,
	-0.5, 0.5, 0, 0, 0,
}
