package mesh

import (
	"reflect"

	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMinInstances is the group size from which identical meshes are
// drawn with one instanced call.
const DefaultMinInstances = 4

type batchKey struct {
	mesh    uint32
	program uint32
	texture uint32
	color   mgl32.Vec4
}

type batch struct {
	key       batchKey
	vertices  int32
	triangles int
	models    []mgl32.Mat4
}

// Unit renders mesh components, grouping identical meshes into instanced
// draws.
type Unit struct {
	// MinInstances is the smallest group drawn instanced. Zero disables
	// instancing.
	MinInstances int

	batches []*batch
	index   map[batchKey]*batch
	draws   map[renderer.ViewID]int
	started bool
}

// NewUnit creates a mesh unit with instancing enabled.
func NewUnit() *Unit {
	return &Unit{MinInstances: DefaultMinInstances}
}

func (u *Unit) RelatedComponentType() reflect.Type { return reflect.TypeOf((**Renderer)(nil)).Elem() }
func (u *Unit) UsesOwnRenderProcess() bool         { return false }

func (u *Unit) Startup() error {
	u.index = make(map[batchKey]*batch)
	u.draws = make(map[renderer.ViewID]int)
	u.started = true
	return nil
}

func (u *Unit) Shutdown() {
	u.batches = nil
	u.index = nil
	u.draws = nil
	u.started = false
}

// Prepare drops everything staged for the previous pass. Batch storage is
// kept for reuse.
func (u *Unit) Prepare() {
	for _, b := range u.batches {
		b.models = b.models[:0]
	}
}

// Preprocess moves each mesh's local bounds to world space.
func (u *Unit) Preprocess(ctx renderer.RenderContext, entries []renderer.Entry) {
	defer profiling.Track("mesh.Preprocess")()
	for _, e := range entries {
		r := e.Component.(*Renderer)
		r.Bounds = r.Mesh.Bounds.Transform(e.Transform.Matrix())
	}
}

func (u *Unit) Process(ctx renderer.RenderContext, entries []renderer.Entry) {
	defer profiling.Track("mesh.Process")()
	for _, e := range entries {
		if !e.Visible() {
			continue
		}
		r := e.Component.(*Renderer)
		k := batchKey{mesh: r.Mesh.Handle, program: r.Program, texture: r.Texture, color: r.Color}
		b, ok := u.index[k]
		if !ok {
			b = &batch{key: k, vertices: r.Mesh.Vertices, triangles: r.Mesh.Triangles}
			u.index[k] = b
			u.batches = append(u.batches, b)
		}
		b.models = append(b.models, e.Transform.Matrix())
	}
}

func (u *Unit) Submit(ctx renderer.RenderContext) {
	defer profiling.Track("mesh.Submit")()
	draws := 0
	for _, b := range u.batches {
		if len(b.models) == 0 {
			continue
		}
		state := backend.RenderState{
			View:      ctx.ViewID,
			Program:   b.key.program,
			Mesh:      b.key.mesh,
			Texture:   b.key.texture,
			Color:     b.key.color,
			Vertices:  b.vertices,
			Triangles: b.triangles,
		}
		if u.MinInstances > 0 && len(b.models) >= u.MinInstances {
			state.Model = b.models[0]
			state.Instances = len(b.models)
			state.Instanced = b.models
			ctx.Backend.Render(state)
			draws++
		} else {
			for _, m := range b.models {
				state.Model = m
				ctx.Backend.Render(state)
				draws++
			}
		}
		b.models = b.models[:0]
	}
	u.draws[ctx.ViewID] = draws
}

// ClearRenderData forgets the draw count kept for view.
func (u *Unit) ClearRenderData(view renderer.ViewID) {
	delete(u.draws, view)
}

// Draws returns the number of draws submitted to view in its last pass.
func (u *Unit) Draws(view renderer.ViewID) int {
	return u.draws[view]
}
