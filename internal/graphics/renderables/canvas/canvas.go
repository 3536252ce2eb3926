// Package canvas draws screen space UI on top of every camera. Its unit uses
// its own render process and tracks canvases through scene change
// notifications instead of the camera queue.
package canvas

import (
	"image"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/renderer"
	"framekit/internal/profiling"
	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Rect is a screen space rectangle in pixels with a top-left origin.
type Rect struct {
	X, Y, W, H float32
	Color      mgl32.Vec4
	Texture    uint32
	// Z orders rects within one canvas. Lower values draw first.
	Z int
}

// Canvas is the UI component. It is safe to edit from the simulation while
// the render goroutine draws.
type Canvas struct {
	SortOrder int

	mu     sync.Mutex
	hidden bool
	rects  []Rect
}

// New returns an empty visible canvas.
func New() *Canvas {
	return &Canvas{}
}

// FillRect adds a solid rectangle.
func (c *Canvas) FillRect(x, y, w, h float32, color mgl32.Vec4) {
	c.Add(Rect{X: x, Y: y, W: w, H: h, Color: color})
}

// Add adds r.
func (c *Canvas) Add(r Rect) {
	c.mu.Lock()
	c.rects = append(c.rects, r)
	c.mu.Unlock()
}

// Clear removes every rect.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.rects = c.rects[:0]
	c.mu.Unlock()
}

// SetHidden hides or shows the canvas.
func (c *Canvas) SetHidden(h bool) {
	c.mu.Lock()
	c.hidden = h
	c.mu.Unlock()
}

// Rects returns the rects in draw order.
func (c *Canvas) Rects() []Rect {
	c.mu.Lock()
	out := append([]Rect(nil), c.rects...)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Z < out[j].Z })
	return out
}

func (c *Canvas) isHidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

// Unit draws every canvas of a world in one overlay pass per frame.
type Unit struct {
	Program uint32

	world    *scene.World
	dirty    atomic.Bool
	canvases []*Canvas
	geometry []float32
	rebuilds int
}

// NewUnit creates a canvas unit for w.
func NewUnit(w *scene.World, program uint32) *Unit {
	return &Unit{world: w, Program: program}
}

func (u *Unit) RelatedComponentType() reflect.Type { return reflect.TypeOf((**Canvas)(nil)).Elem() }
func (u *Unit) UsesOwnRenderProcess() bool         { return true }

func (u *Unit) Startup() error {
	u.dirty.Store(true)
	return nil
}

func (u *Unit) Shutdown() {
	u.canvases = nil
	u.geometry = nil
}

// WorldChanged marks the canvas list for collection on the next Prepare.
func (u *Unit) WorldChanged() {
	u.dirty.Store(true)
}

// Prepare recollects canvases after a scene change.
func (u *Unit) Prepare() {
	if !u.dirty.Swap(false) || u.world == nil {
		return
	}
	defer profiling.Track("canvas.collect")()
	u.canvases = u.canvases[:0]
	u.world.Each(func(e scene.Entity, _ *scene.Transform) bool {
		if c, ok := scene.Get[*Canvas](u.world, e); ok {
			u.canvases = append(u.canvases, c)
		}
		return true
	})
	sort.SliceStable(u.canvases, func(i, j int) bool {
		return u.canvases[i].SortOrder < u.canvases[j].SortOrder
	})
	u.rebuilds++
}

func (u *Unit) Preprocess(renderer.RenderContext, []renderer.Entry) {}
func (u *Unit) Process(renderer.RenderContext, []renderer.Entry)    {}
func (u *Unit) ClearRenderData(renderer.ViewID)                     {}

// Submit begins the overlay pass and draws each canvas in sort order.
func (u *Unit) Submit(ctx renderer.RenderContext) {
	if len(u.canvases) == 0 {
		return
	}
	defer profiling.Track("canvas.Submit")()
	ctx.Backend.BeginRenderPass(backend.RenderPass{
		View:       ctx.ViewID,
		ClearMode:  graphics.ClearDepth,
		Viewport:   image.Rect(0, 0, ctx.ScreenWidth, ctx.ScreenHeight),
		ViewMatrix: ctx.View,
		Projection: ctx.Proj,
	})
	for _, c := range u.canvases {
		if c.isHidden() {
			continue
		}
		for _, r := range c.Rects() {
			if r.W <= 0 || r.H <= 0 {
				continue
			}
			u.geometry = quad(u.geometry[:0], r)
			ctx.Backend.Render(backend.RenderState{
				View:      ctx.ViewID,
				Program:   u.Program,
				Texture:   r.Texture,
				Model:     mgl32.Ident4(),
				Color:     r.Color,
				Vertices:  6,
				Triangles: 2,
				Geometry:  u.geometry,
			})
		}
	}
}

func quad(dst []float32, r Rect) []float32 {
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.W, r.Y+r.H
	return append(dst,
		x0, y0, 0, 0, 0,
		x1, y1, 0, 1, 1,
		x1, y0, 0, 1, 0,
		x0, y0, 0, 0, 0,
		x0, y1, 0, 0, 1,
		x1, y1, 0, 1, 1,
	)
}
