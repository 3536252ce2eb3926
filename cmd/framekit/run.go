package main

import (
	"context"
	"fmt"

	"framekit/internal/config"
	"framekit/internal/game"
	"framekit/internal/graphics/backend"
	"framekit/internal/graphics/backend/glbackend"
	"framekit/internal/graphics/renderables/mesh"
	"framekit/internal/graphics/renderables/sprite"
	"framekit/internal/graphics/renderables/text"
	"framekit/internal/graphics/renderer"
	"framekit/internal/input"
	"framekit/internal/scene"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli"
	"github.com/xlab/closer"
)

func buildAtlas() (*text.Atlas, error) {
	return text.BuildAtlas(text.DefaultFace(), text.ASCII(), 256)
}

func runWindowed(ctx *cli.Context) error {
	setupLogging(ctx)
	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(settings.Window.Width, settings.Window.Height, settings.Window.Title, nil, nil)
	if err != nil {
		return err
	}
	window.MakeContextCurrent()
	// Without vsync, frames are paced by game.FPSLimiter alone.
	swap := 0
	if settings.Window.VSync {
		swap = 1
	}
	glfw.SwapInterval(swap)

	fbw, fbh := window.GetFramebufferSize()
	gpu, err := glbackend.New(fbw, fbh)
	if err != nil {
		return err
	}
	defer gpu.Destroy()

	cube, err := gpu.UploadMesh(mesh.CubeVertices)
	if err != nil {
		return err
	}
	quad, err := gpu.UploadMesh(sprite.QuadVertices)
	if err != nil {
		return err
	}
	atlas, err := buildAtlas()
	if err != nil {
		return err
	}
	atlas.Texture = glbackend.UploadAlpha(atlas.Image)

	clock, err := newClock(settings)
	if err != nil {
		return err
	}
	opts := schedulerOptions(settings, clock)
	opts.Width, opts.Height = fbw, fbh

	world := scene.NewWorld()
	sched := renderer.New(world, gpu, opts)
	closer.Bind(sched.Shutdown)
	clock.OnTickFinished(sched.OnTickFinished)

	textures := glbackend.NewTextureCache()
	defer textures.Release()

	d, err := newDemo(world, sched, assets{
		Cube:          cube,
		Quad:          quad,
		Program:       gpu.DefaultProgram(),
		Atlas:         atlas,
		Textures:      textures,
		SpriteTexture: settings.Assets.SpriteTexture,
	})
	if err != nil {
		return err
	}

	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		gpu.Resize(w, h)
		sched.UpdateViewport(w, h)
	})
	keys := input.NewManager()
	keys.Attach(window)
	controls := newControls(sched, d, settings)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchSettings(runCtx, ctx, sched, clock)

	loop := game.NewLoop(clock, d.simulate, func() error {
		sched.Update()
		gpu.EndFrame()
		window.SwapBuffers()
		return nil
	})
	loop.Threaded = settings.Timing.Threaded
	loop.Poll = func() bool {
		glfw.PollEvents()
		if keys.JustPressed(input.ActionQuit) {
			window.SetShouldClose(true)
		}
		controls.apply(keys)
		keys.PostUpdate()
		return !window.ShouldClose()
	}

	logger.Info("running", "interpolate", settings.Render.Interpolate, "threaded", loop.Threaded,
		"tick_rate", settings.Timing.TickRate)
	return loop.Run(runCtx)
}

func runHeadless(ctx *cli.Context) error {
	setupLogging(ctx)
	settings, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	frames := ctx.Int("frames")
	if frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", frames)
	}

	rec := backend.NewRecorder()
	rec.Latency = ctx.Int("latency")
	stats, err := headless(context.Background(), settings, rec, frames)
	if err != nil {
		return err
	}
	fmt.Println(stats)
	return nil
}

// headless renders frames of the demo into rec and returns the stats of the
// last frame.
func headless(ctx context.Context, settings config.Settings, rec *backend.Recorder, frames int) (renderer.Stats, error) {
	atlas, err := buildAtlas()
	if err != nil {
		return renderer.Stats{}, err
	}
	clock, err := newClock(settings)
	if err != nil {
		return renderer.Stats{}, err
	}

	world := scene.NewWorld()
	sched := renderer.New(world, rec, schedulerOptions(settings, clock))
	defer sched.Shutdown()
	clock.OnTickFinished(sched.OnTickFinished)

	d, err := newDemo(world, sched, assets{Cube: 1, Quad: 2, Atlas: atlas})
	if err != nil {
		return renderer.Stats{}, err
	}

	rendered := 0
	loop := game.NewLoop(clock, d.simulate, func() error {
		sched.Update()
		rec.EndFrame()
		rec.Reset()
		rendered++
		return nil
	})
	loop.Threaded = settings.Timing.Threaded
	loop.Poll = func() bool { return rendered < frames }
	if err := loop.Run(ctx); err != nil {
		return renderer.Stats{}, err
	}
	return sched.Stats(), nil
}
