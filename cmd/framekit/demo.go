package main

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"framekit/internal/graphics"
	"framekit/internal/graphics/renderables/canvas"
	"framekit/internal/graphics/renderables/mesh"
	"framekit/internal/graphics/renderables/sprite"
	"framekit/internal/graphics/renderables/text"
	"framekit/internal/graphics/renderer"
	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	gridSize    = 8
	gridSpacing = 1.6
	hudEvery    = 10 // ticks between HUD refreshes
)

// assets are the backend handles the demo draws with.
type assets struct {
	Cube    uint32
	Quad    uint32
	Program uint32
	Atlas   *text.Atlas
	// Textures resolves SpriteTexture. Headless runs leave both empty.
	Textures      sprite.TextureSource
	SpriteTexture string
}

// demo is a grid of spinning cubes, a few orbiting sprites, a label and a
// HUD bar showing the draw count.
type demo struct {
	world *scene.World
	sched *renderer.Scheduler

	cubes   []*scene.Transform
	sprites []*scene.Transform
	label   *text.Renderer
	hud     *canvas.Canvas

	elapsed time.Duration
	ticks   int
	paused  atomic.Bool
}

func newDemo(w *scene.World, s *renderer.Scheduler, a assets) (*demo, error) {
	units := []renderer.RenderUnit{
		mesh.NewUnit(),
		&sprite.Unit{Quad: a.Quad, Program: a.Program, Textures: a.Textures},
		text.NewUnit(a.Program),
		canvas.NewUnit(w, a.Program),
	}
	for _, u := range units {
		if err := s.RegisterSystem(u); err != nil {
			return nil, err
		}
	}

	d := &demo{world: w, sched: s, hud: canvas.New()}
	var err error
	w.Batch(func() { err = d.build(a) })
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *demo) build(a assets) error {
	w := d.world

	cam := w.CreateEntity("camera")
	eye := mgl32.Vec3{0, 7, 16}
	pitch := -float32(math.Atan2(float64(eye.Y()), float64(eye.Z())))
	w.Transform(cam).SetLocal(eye, mgl32.QuatRotate(pitch, mgl32.Vec3{1, 0, 0}), mgl32.Vec3{1, 1, 1})
	if err := w.AddComponent(cam, graphics.NewCamera()); err != nil {
		return err
	}

	cube := mesh.Cube(a.Cube)
	offset := float32(gridSize-1) * gridSpacing / 2
	for x := 0; x < gridSize; x++ {
		// One color per row so each row draws instanced.
		color := mgl32.Vec4{0.3 + 0.7*float32(x)/gridSize, 0.9, 0.3, 1}
		for z := 0; z < gridSize; z++ {
			e := w.CreateEntity(fmt.Sprintf("cube-%d-%d", x, z))
			t := w.Transform(e)
			t.SetLocalPosition(mgl32.Vec3{float32(x)*gridSpacing - offset, 0, float32(z)*gridSpacing - offset})
			m, err := mesh.NewRenderer(cube, a.Program)
			if err != nil {
				return err
			}
			m.Color = color
			if err := w.AddComponent(e, m); err != nil {
				return err
			}
			d.cubes = append(d.cubes, t)
		}
	}

	pivot := w.CreateEntity("orbit")
	for i := 0; i < 3; i++ {
		e := w.CreateEntity(fmt.Sprintf("sprite-%d", i))
		if err := w.SetParent(e, pivot); err != nil {
			return err
		}
		angle := float64(i) * 2 * math.Pi / 3
		w.Transform(e).SetLocalPosition(mgl32.Vec3{float32(6 * math.Cos(angle)), 3, float32(6 * math.Sin(angle))})
		sp, err := sprite.NewRenderer(0, mgl32.Vec2{1.5, 1.5})
		if err != nil {
			return err
		}
		sp.Color = mgl32.Vec4{1, 0.6, 0.2, 0.9}
		sp.TexturePath = a.SpriteTexture
		if err := w.AddComponent(e, sp); err != nil {
			return err
		}
	}
	d.sprites = append(d.sprites, w.Transform(pivot))

	labelEntity := w.CreateEntity("label")
	w.Transform(labelEntity).SetLocalPosition(mgl32.Vec3{-offset, 2.5, -offset})
	label, err := text.NewRenderer(a.Atlas, "framekit")
	if err != nil {
		return err
	}
	label.PixelsPerUnit = 8
	if err := w.AddComponent(labelEntity, label); err != nil {
		return err
	}
	d.label = label

	hud := w.CreateEntity("hud")
	return w.AddComponent(hud, d.hud)
}

// simulate advances the demo by one tick.
func (d *demo) simulate(dt time.Duration) error {
	if d.paused.Load() {
		return nil
	}
	d.elapsed += dt
	d.ticks++
	secs := float32(d.elapsed.Seconds())

	for i, t := range d.cubes {
		phase := secs + float32(i)*0.1
		t.SetLocalRotation(mgl32.QuatRotate(phase, mgl32.Vec3{0, 1, 0}))
		p := t.LocalPosition()
		p[1] = 0.4 * float32(math.Sin(float64(phase)*2))
		t.SetLocalPosition(p)
	}
	for _, t := range d.sprites {
		t.SetLocalRotation(mgl32.QuatRotate(secs*0.5, mgl32.Vec3{0, 1, 0}))
	}

	if d.ticks%hudEvery == 0 {
		d.refreshHUD()
	}
	return nil
}

func (d *demo) refreshHUD() {
	st := d.sched.Stats()
	d.label.Text = fmt.Sprintf("framekit %d draws", st.DrawCalls)

	width := float32(min(st.DrawCalls, 200)) * 2
	d.hud.Clear()
	d.hud.Add(canvas.Rect{X: 8, Y: 8, W: 404, H: 20, Color: mgl32.Vec4{0, 0, 0, 0.5}})
	d.hud.Add(canvas.Rect{X: 10, Y: 10, W: width, H: 16, Color: mgl32.Vec4{0.2, 0.8, 0.3, 0.9}, Z: 1})
}
