package renderer

import (
	"fmt"
	"image"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"framekit/internal/graphics"
	"framekit/internal/graphics/backend"
	"framekit/internal/logging"
	"framekit/internal/profiling"
	"framekit/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// Clock supplies the fixed tick length and the time accumulated since the
// last tick.
type Clock interface {
	FixedDelta() time.Duration
	Accumulator() time.Duration
}

// Alpha is the progress between the last two ticks, clamped to [0,1].
func Alpha(c Clock) float32 {
	fixed := c.FixedDelta()
	if fixed <= 0 {
		return 1
	}
	a := float32(float64(c.Accumulator()) / float64(fixed))
	return mgl32.Clamp(a, 0, 1)
}

// Options configure a Scheduler.
type Options struct {
	Interpolate bool
	Culling     bool
	Rotation    RotationMode
	// CallbackMaxAge drops overdue frame callbacks lagging more than this
	// many frames instead of running them. Zero keeps every callback.
	CallbackMaxAge uint32
	Clock          Clock
	Width          int
	Height         int
}

// DefaultOptions returns standard mode with frustum culling.
func DefaultOptions() Options {
	return Options{
		Culling:        true,
		Rotation:       RotationNlerp,
		CallbackMaxAge: 1024,
		Width:          900,
		Height:         600,
	}
}

// Scheduler orchestrates rendering: it owns the registered units and the
// render queue and drives each frame through the camera passes.
//
// Update, PrepareCamera and RenderEntity run on the render goroutine.
// Registration, frame callbacks, tick notifications and the setters may be
// called from any goroutine.
type Scheduler struct {
	world   *scene.World
	backend backend.Backend

	mu        sync.Mutex
	units     []RenderUnit
	queue     *Queue
	routes    map[reflect.Type][]RenderUnit
	rebuilds  uint64
	callbacks map[uint32][]func()
	maxAge    uint32
	buffer    *InterpolationBuffer
	rotation  RotationMode
	clock     Clock
	width     int
	height    int
	last      Stats

	interpolate  atomic.Bool
	culling      atomic.Bool
	needsCapture atomic.Bool
	frame        atomic.Uint32

	// Render goroutine state.
	captured  bool
	pass      uint64
	screenW   int
	screenH   int
	cur       Stats
	counter   *countingBackend
	prevViews map[ViewID]struct{}
	skipped   map[reflect.Type]bool
	prepared  map[reflect.Type]bool
	staging   *scene.Transform
	single    []Entry
}

// New creates a scheduler rendering w through be. The scheduler subscribes
// to w's change notifications and, if be reports finished frames, to its
// frame signal.
func New(w *scene.World, be backend.Backend, opts Options) *Scheduler {
	s := &Scheduler{
		world:     w,
		backend:   be,
		queue:     &Queue{},
		callbacks: make(map[uint32][]func()),
		maxAge:    opts.CallbackMaxAge,
		buffer:    NewInterpolationBuffer(),
		rotation:  opts.Rotation,
		clock:     opts.Clock,
		width:     opts.Width,
		height:    opts.Height,
		prevViews: make(map[ViewID]struct{}),
		skipped:   make(map[reflect.Type]bool),
		prepared:  make(map[reflect.Type]bool),
		staging:   scene.NewTransform(),
		single:    make([]Entry, 1),
	}
	s.counter = &countingBackend{inner: be, stats: &s.cur, used: make(map[ViewID]struct{})}
	s.interpolate.Store(opts.Interpolate)
	s.culling.Store(opts.Culling)

	if w != nil {
		w.AddChangeReceiver(s)
	}
	if n, ok := be.(backend.FrameNotifier); ok {
		n.OnFrameFinished(s.OnFrame)
	}
	return s
}

func (s *Scheduler) log() *slog.Logger {
	return logging.With("renderer")
}

func unitName(u RenderUnit) string {
	return reflect.TypeOf(u).String()
}

// RegisterSystem starts u and adds it to the registry. Registering nil
// returns ErrNilUnit. Registering an instance or concrete type that is
// already registered does nothing. If Startup fails or panics the unit is
// shut down, discarded and the error returned.
func (s *Scheduler) RegisterSystem(u RenderUnit) error {
	if u == nil {
		return ErrNilUnit
	}
	t := reflect.TypeOf(u)
	s.mu.Lock()
	dup := s.indexOfTypeLocked(t) >= 0
	s.mu.Unlock()
	if dup {
		return nil
	}

	name := unitName(u)
	if err := safeCall(u.Startup); err != nil {
		shutdown(u)
		s.log().Error("render unit startup failed, unit discarded", "unit", name, "err", err)
		return fmt.Errorf("start %s: %w", name, err)
	}

	s.mu.Lock()
	if s.indexOfTypeLocked(t) >= 0 {
		s.mu.Unlock()
		shutdown(u)
		return nil
	}
	s.units = append(s.units, u)
	s.mu.Unlock()

	if cr, ok := u.(ChangeReceiver); ok && s.world != nil {
		s.world.AddChangeReceiver(cr)
	}
	s.log().Info("render unit registered",
		"unit", name,
		"component", u.RelatedComponentType(),
		"own_process", u.UsesOwnRenderProcess())
	s.WorldChanged()
	return nil
}

// Unregister shuts down and removes the unit with the same concrete type as
// u. It reports whether a unit was removed.
func (s *Scheduler) Unregister(u RenderUnit) bool {
	if u == nil {
		return false
	}
	s.mu.Lock()
	i := s.indexOfTypeLocked(reflect.TypeOf(u))
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.units[i]
	s.units = slices.Delete(slices.Clone(s.units), i, i+1)
	s.mu.Unlock()

	if cr, ok := removed.(ChangeReceiver); ok && s.world != nil {
		s.world.RemoveChangeReceiver(cr)
	}
	shutdown(removed)
	s.log().Info("render unit removed", "unit", unitName(removed))
	s.WorldChanged()
	return true
}

func (s *Scheduler) indexOfTypeLocked(t reflect.Type) int {
	for i, u := range s.units {
		if reflect.TypeOf(u) == t {
			return i
		}
	}
	return -1
}

// Units returns the registered units in registration order.
func (s *Scheduler) Units() []RenderUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.units)
}

// Get returns the registered unit of type T.
func Get[T RenderUnit](s *Scheduler) (T, bool) {
	for _, u := range s.Units() {
		if t, ok := u.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// WorldChanged rebuilds the render queue. It is called by the world on every
// structural change and by the scheduler when the registry changes.
func (s *Scheduler) WorldChanged() {
	s.mu.Lock()
	s.rebuilds++
	gen := s.rebuilds
	var standard []RenderUnit
	for _, u := range s.units {
		if !u.UsesOwnRenderProcess() {
			standard = append(standard, u)
		}
	}
	s.mu.Unlock()

	q := buildQueue(s.world, standard)
	routes := make(map[reflect.Type][]RenderUnit, len(standard))
	for _, u := range standard {
		t := u.RelatedComponentType()
		routes[t] = append(routes[t], u)
	}

	s.mu.Lock()
	if gen == s.rebuilds {
		s.queue = q
		s.routes = routes
	}
	s.mu.Unlock()
}

// Queue returns the current render queue.
func (s *Scheduler) Queue() *Queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue
}

// OnTickFinished marks the drawable set for capture. The capture happens at
// the start of the next interpolated Update.
func (s *Scheduler) OnTickFinished() {
	s.needsCapture.Store(true)
}

// SetInterpolation switches between standard and interpolated mode.
func (s *Scheduler) SetInterpolation(on bool) {
	if s.interpolate.Swap(on) != on && on {
		s.needsCapture.Store(true)
	}
}

// Interpolating reports whether interpolated mode is active.
func (s *Scheduler) Interpolating() bool { return s.interpolate.Load() }

// SetCulling enables or disables frustum culling.
func (s *Scheduler) SetCulling(on bool) { s.culling.Store(on) }

// SetRotationMode selects the rotation blend of interpolated mode.
func (s *Scheduler) SetRotationMode(m RotationMode) {
	s.mu.Lock()
	s.rotation = m
	s.mu.Unlock()
}

// SetClock sets the timing source of interpolated mode.
func (s *Scheduler) SetClock(c Clock) {
	s.mu.Lock()
	s.clock = c
	s.mu.Unlock()
}

// UpdateViewport sets the screen size used for projections and viewports.
func (s *Scheduler) UpdateViewport(width, height int) {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// Stats returns the counters of the last completed frame.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Frame returns the number of the next frame Update renders.
func (s *Scheduler) Frame() uint32 { return s.frame.Load() }

// Update renders one frame.
func (s *Scheduler) Update() {
	defer profiling.Track("renderer.Update")()
	start := time.Now()

	s.mu.Lock()
	q := s.queue
	routes := s.routes
	units := slices.Clone(s.units)
	rotation := s.rotation
	clock := s.clock
	s.screenW, s.screenH = s.width, s.height
	s.mu.Unlock()

	s.beginFrame()
	q.clearCullingStates()

	var own []RenderUnit
	for _, u := range units {
		if u.UsesOwnRenderProcess() {
			own = append(own, u)
		}
	}
	for _, u := range own {
		s.prepare(u)
	}

	if s.interpolate.Load() && clock != nil {
		s.renderInterpolated(q, routes, Alpha(clock), rotation)
	} else {
		s.renderStandard(q)
	}

	s.submitOwn(own)
	s.clearUnusedViews(units)
	if s.world != nil {
		s.world.ClearChanged()
	}

	s.cur.FrameTime = time.Since(start)
	s.mu.Lock()
	s.last = s.cur
	s.mu.Unlock()
	s.frame.Add(1)
}

func (s *Scheduler) beginFrame() {
	s.cur = Stats{}
	s.prevViews, s.counter.used = s.counter.used, s.prevViews
	clear(s.counter.used)
	clear(s.skipped)
}

func (s *Scheduler) renderStandard(q *Queue) {
	cull := s.culling.Load()
	for _, cq := range q.Cameras {
		ctx, err := s.PrepareCamera(cq.Camera, cq.View)
		if err != nil {
			s.log().Warn("camera skipped", "view", cq.View, "frame", s.Frame(), "err", err)
			continue
		}
		s.runPass(ctx, cq.Batches, cull)
	}
}

// runPass drives one camera pass: Prepare, Preprocess, visibility and Process
// per batch, then Submit per processed unit in registration order.
func (s *Scheduler) runPass(ctx RenderContext, batches []Batch, cull bool) {
	defer profiling.Track("renderer.camera")()
	defer s.recoverPass(ctx)
	s.pass++

	processed := make([]RenderUnit, 0, len(batches))
	for _, b := range batches {
		if !s.prepare(b.Unit) || !s.preprocess(b.Unit, ctx, b.Entries) {
			continue
		}
		s.testVisibility(ctx.Camera, b.Entries, cull)
		b.Unit.Process(ctx, b.Entries)
		processed = append(processed, b.Unit)
	}
	for _, u := range processed {
		u.Submit(ctx)
	}
}

func (s *Scheduler) recoverPass(ctx RenderContext) {
	if r := recover(); r != nil {
		s.log().Warn("camera pass abandoned", "view", ctx.ViewID, "frame", ctx.Frame, "panic", r)
	}
}

func (s *Scheduler) testVisibility(cam *graphics.Camera, entries []Entry, cull bool) {
	for _, e := range entries {
		r := e.Renderable()
		if r == nil {
			continue
		}
		if r.visibility(cam, cull, s.pass) {
			s.cur.FrustumTests++
			if r.CullingState == CullInvisible {
				s.cur.CulledDrawCalls++
			}
		}
	}
}

// prepare calls u.Prepare unless u was skipped earlier this frame. A panic
// skips u for the rest of the frame.
func (s *Scheduler) prepare(u RenderUnit) bool {
	return s.guard(u, "Prepare", func() { u.Prepare() })
}

func (s *Scheduler) preprocess(u RenderUnit, ctx RenderContext, entries []Entry) bool {
	return s.guard(u, "Preprocess", func() { u.Preprocess(ctx, entries) })
}

func (s *Scheduler) guard(u RenderUnit, op string, fn func()) bool {
	t := reflect.TypeOf(u)
	if s.skipped[t] {
		return false
	}
	if err := safeCall(func() error { fn(); return nil }); err != nil {
		s.skipped[t] = true
		s.cur.SkippedUnits++
		s.log().Warn("render unit skipped for this frame",
			"unit", unitName(u), "op", op, "frame", s.Frame(), "err", err)
		return false
	}
	return true
}

// PrepareCamera computes the camera matrices and frustum and begins its
// render pass on view.
func (s *Scheduler) PrepareCamera(cam CameraRef, view ViewID) (RenderContext, error) {
	ctx, err := s.cameraContext(cam, view)
	if err != nil {
		return ctx, err
	}
	x, y, w, h := cam.Camera.PixelViewport(s.screenW, s.screenH)
	s.counter.BeginRenderPass(backend.RenderPass{
		View:       view,
		ClearMode:  cam.Camera.ClearMode,
		ClearColor: cam.Camera.ClearColor,
		Viewport:   image.Rect(x, y, x+w, y+h),
		ViewMatrix: ctx.View,
		Projection: ctx.Proj,
	})
	s.cur.Cameras++
	return ctx, nil
}

func (s *Scheduler) cameraContext(cam CameraRef, view ViewID) (RenderContext, error) {
	if cam.Camera == nil || cam.Transform == nil {
		return RenderContext{}, fmt.Errorf("renderer: camera %v has no camera component or transform", cam.Entity)
	}
	proj, err := cam.Camera.ProjectionMatrix(s.screenW, s.screenH)
	if err != nil {
		return RenderContext{}, err
	}
	viewM := graphics.ViewMatrix(cam.Transform.Matrix())
	cam.Camera.UpdateFrustum(viewM, proj)
	return RenderContext{
		Camera:          cam.Camera,
		CameraTransform: cam.Transform,
		CameraEntity:    cam.Entity,
		View:            viewM,
		Proj:            proj,
		ViewID:          view,
		Frame:           s.Frame(),
		ScreenWidth:     s.screenW,
		ScreenHeight:    s.screenH,
		Backend:         s.counter,
	}, nil
}

func (s *Scheduler) renderInterpolated(q *Queue, routes map[reflect.Type][]RenderUnit, alpha float32, mode RotationMode) {
	if s.needsCapture.Swap(false) || !s.captured {
		s.capture(q)
		s.captured = true
	}
	for _, cq := range q.Cameras {
		ctx, err := s.PrepareCamera(cq.Camera, cq.View)
		if err != nil {
			s.log().Warn("camera skipped", "view", cq.View, "frame", s.Frame(), "err", err)
			continue
		}
		s.drawBuckets(ctx, cq, routes, alpha, mode)
	}
}

// capture swaps the draw buckets and fills the new current set with the
// visible entities of every camera.
func (s *Scheduler) capture(q *Queue) {
	defer profiling.Track("renderer.capture")()

	s.mu.Lock()
	s.buffer.Swap()
	s.mu.Unlock()

	cull := s.culling.Load()
	for _, cq := range q.Cameras {
		ctx, err := s.cameraContext(cq.Camera, cq.View)
		if err != nil {
			continue
		}
		calls := s.captureCamera(ctx, cq.Batches, cull)
		s.mu.Lock()
		for _, dc := range calls {
			s.buffer.Add(cq.View, dc)
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) captureCamera(ctx RenderContext, batches []Batch, cull bool) []DrawCall {
	s.pass++
	var calls []DrawCall
	for _, b := range batches {
		if !s.preprocess(b.Unit, ctx, b.Entries) {
			continue
		}
		s.testVisibility(ctx.Camera, b.Entries, cull)
		for _, e := range b.Entries {
			if e.Visible() {
				calls = append(calls, snapshot(e))
			}
		}
	}
	return calls
}

// drawBuckets hands each current draw call, blended with its previous
// snapshot, to the units routed to its component. Entities missing from the
// previous bucket are drawn at their current snapshot.
func (s *Scheduler) drawBuckets(ctx RenderContext, cq CameraQueue, routes map[reflect.Type][]RenderUnit, alpha float32, mode RotationMode) {
	defer profiling.Track("renderer.camera")()
	defer s.recoverPass(ctx)

	clear(s.prepared)
	var active []RenderUnit
	for _, b := range cq.Batches {
		if s.prepare(b.Unit) {
			s.prepared[reflect.TypeOf(b.Unit)] = true
			active = append(active, b.Unit)
		}
	}

	current := s.buffer.Current(cq.View)
	previous := s.buffer.Previous(cq.View)
	for _, dc := range current.Calls() {
		units := routes[reflect.TypeOf(dc.Component)]
		if len(units) == 0 {
			continue
		}
		if prev, ok := previous.Lookup(dc.Entity, dc.Component); ok {
			Interpolate(prev, dc, alpha, mode, s.staging)
		} else {
			Interpolate(dc, dc, 1, mode, s.staging)
		}
		if rc, ok := dc.Component.(RenderableComponent); ok {
			r := rc.AsRenderable()
			r.IsVisible = r.Enabled && !r.ForceRenderingOff
		}
		s.single[0] = Entry{Entity: dc.Entity, Transform: s.staging, Component: dc.Component}
		for _, u := range units {
			if s.prepared[reflect.TypeOf(u)] {
				u.Process(ctx, s.single)
			}
		}
	}
	for _, u := range active {
		u.Submit(ctx)
	}
}

func (s *Scheduler) submitOwn(own []RenderUnit) {
	if len(own) == 0 {
		return
	}
	ctx := RenderContext{
		View:         mgl32.Ident4(),
		Proj:         mgl32.Ortho2D(0, float32(s.screenW), float32(s.screenH), 0),
		ViewID:       OverlayViewID,
		Frame:        s.Frame(),
		ScreenWidth:  s.screenW,
		ScreenHeight: s.screenH,
		Backend:      s.counter,
	}
	for _, u := range own {
		if s.skipped[reflect.TypeOf(u)] {
			continue
		}
		if err := safeCall(func() error { u.Submit(ctx); return nil }); err != nil {
			s.log().Warn("render unit submit failed", "unit", unitName(u), "view", OverlayViewID, "err", err)
		}
	}
}

// clearUnusedViews lets units drop state for views rendered last frame but
// not this one.
func (s *Scheduler) clearUnusedViews(units []RenderUnit) {
	for v := range s.prevViews {
		if _, ok := s.counter.used[v]; ok {
			continue
		}
		for _, u := range units {
			if err := safeCall(func() error { u.ClearRenderData(v); return nil }); err != nil {
				s.log().Warn("clear render data failed", "unit", unitName(u), "view", v, "err", err)
			}
		}
		s.mu.Lock()
		s.buffer.Drop(v)
		s.mu.Unlock()
	}
}

// RenderEntity renders e and its transform subtree from cam on view through
// every matching unit. The render queue and draw buckets are not touched.
func (s *Scheduler) RenderEntity(cam CameraRef, e scene.Entity, cull bool, view ViewID) error {
	if s.world == nil || !s.world.IsAlive(e) {
		return fmt.Errorf("render %v: %w", e, scene.ErrNoEntity)
	}
	s.mu.Lock()
	if s.screenW == 0 && s.screenH == 0 {
		s.screenW, s.screenH = s.width, s.height
	}
	var standard []RenderUnit
	for _, u := range s.units {
		if !u.UsesOwnRenderProcess() {
			standard = append(standard, u)
		}
	}
	s.mu.Unlock()

	var nodes []*scene.Transform
	var walk func(t *scene.Transform)
	walk = func(t *scene.Transform) {
		nodes = append(nodes, t)
		for _, c := range t.Children() {
			walk(c)
		}
	}
	walk(s.world.Transform(e))

	var batches []Batch
	for _, u := range standard {
		var entries []Entry
		for _, t := range nodes {
			if c, ok := s.world.Component(t.Entity(), u.RelatedComponentType()); ok {
				entries = append(entries, Entry{Entity: t.Entity(), Transform: t, Component: c})
			}
		}
		if len(entries) > 0 {
			batches = append(batches, Batch{Unit: u, Entries: entries})
		}
	}

	ctx, err := s.PrepareCamera(cam, view)
	if err != nil {
		return fmt.Errorf("render %v: %w", e, err)
	}
	s.runPass(ctx, batches, cull)
	return nil
}

// Shutdown shuts down every unit in reverse registration order and
// unsubscribes from the world.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	units := s.units
	s.units = nil
	s.queue = &Queue{}
	s.routes = nil
	s.rebuilds++
	s.mu.Unlock()

	if s.world != nil {
		s.world.RemoveChangeReceiver(s)
	}
	for i := len(units) - 1; i >= 0; i-- {
		u := units[i]
		if cr, ok := u.(ChangeReceiver); ok && s.world != nil {
			s.world.RemoveChangeReceiver(cr)
		}
		shutdown(u)
		s.log().Info("render unit shut down", "unit", unitName(u))
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnitPanic, r)
		}
	}()
	return fn()
}

func shutdown(u RenderUnit) {
	if err := safeCall(func() error { u.Shutdown(); return nil }); err != nil {
		logging.With("renderer").Error("render unit shutdown failed", "unit", unitName(u), "err", err)
	}
}
