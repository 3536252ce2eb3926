package scene

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"framekit/internal/graphics"
)

var (
	ErrNoEntity     = errors.New("scene: entity does not exist")
	ErrCycle        = errors.New("scene: parenting would create a cycle")
	ErrNilComponent = errors.New("scene: nil component")
)

// Entity identifies an entity. The zero value is never a live entity.
type Entity struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether e is the zero Entity.
func (e Entity) IsZero() bool { return e == Entity{} }

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.Index, e.Generation)
}

// ChangeReceiver is notified whenever the set of entities, their components,
// layers or hierarchy changes.
type ChangeReceiver interface {
	WorldChanged()
}

// CameraEntry is one camera of the world, as returned by SortedCameras.
type CameraEntry struct {
	Entity    Entity
	Camera    *graphics.Camera
	Transform *Transform
}

type entityRecord struct {
	generation uint32
	alive      bool
	name       string
	layer      graphics.Layer
	components map[reflect.Type]any
}

// World stores entities, their transforms and components.
//
// Structural edits notify every ChangeReceiver synchronously after the edit.
// Edits wrapped in Batch notify once when the batch ends. Transform value
// changes are not structural and never notify.
type World struct {
	mu         sync.RWMutex
	records    []entityRecord
	free       []uint32
	order      []uint32 // creation order of live entities
	transforms arena

	receivers []ChangeReceiver
	batch     int
	pending   bool
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{}
}

// CreateEntity adds an entity with an identity root transform.
func (w *World) CreateEntity(name string) Entity {
	w.mu.Lock()
	var idx uint32
	if n := len(w.free); n > 0 {
		idx = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		idx = uint32(len(w.records))
		w.records = append(w.records, entityRecord{})
	}
	rec := &w.records[idx]
	rec.generation++
	rec.alive = true
	rec.name = name
	rec.layer = 0
	rec.components = make(map[reflect.Type]any)

	e := Entity{Index: idx, Generation: rec.generation}
	t := NewTransform()
	t.entity = e
	w.transforms.put(int(idx), t)
	w.order = append(w.order, idx)
	w.mu.Unlock()

	w.changed()
	return e
}

// DestroyEntity removes e and, recursively, its children.
func (w *World) DestroyEntity(e Entity) error {
	w.mu.Lock()
	if !w.aliveLocked(e) {
		w.mu.Unlock()
		return ErrNoEntity
	}
	w.destroyLocked(e.Index)
	w.mu.Unlock()

	w.changed()
	return nil
}

func (w *World) destroyLocked(idx uint32) {
	t := w.transforms.at(int(idx))
	for _, c := range append([]int(nil), t.children...) {
		w.destroyLocked(uint32(c))
	}
	w.transforms.detach(t)
	w.transforms.slots[idx] = nil

	rec := &w.records[idx]
	rec.alive = false
	rec.components = nil
	w.free = append(w.free, idx)
	for i, o := range w.order {
		if o == idx {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *World) aliveLocked(e Entity) bool {
	if int(e.Index) >= len(w.records) {
		return false
	}
	rec := w.records[e.Index]
	return rec.alive && rec.generation == e.Generation
}

// IsAlive reports whether e exists.
func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.aliveLocked(e)
}

// Name returns the name given at creation.
func (w *World) Name(e Entity) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.aliveLocked(e) {
		return ""
	}
	return w.records[e.Index].name
}

// Transform returns the transform of e, or nil if e does not exist.
func (w *World) Transform(e Entity) *Transform {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.aliveLocked(e) {
		return nil
	}
	return w.transforms.at(int(e.Index))
}

// SetParent attaches child under parent. A zero parent makes child a root.
func (w *World) SetParent(child, parent Entity) error {
	w.mu.Lock()
	if !w.aliveLocked(child) {
		w.mu.Unlock()
		return fmt.Errorf("set parent of %v: %w", child, ErrNoEntity)
	}
	ct := w.transforms.at(int(child.Index))
	if parent.IsZero() {
		w.transforms.detach(ct)
		w.mu.Unlock()
		w.changed()
		return nil
	}
	if !w.aliveLocked(parent) {
		w.mu.Unlock()
		return fmt.Errorf("set parent to %v: %w", parent, ErrNoEntity)
	}
	if w.transforms.isAncestor(int(child.Index), int(parent.Index)) {
		w.mu.Unlock()
		return fmt.Errorf("set parent of %v to %v: %w", child, parent, ErrCycle)
	}
	w.transforms.attach(ct, w.transforms.at(int(parent.Index)))
	w.mu.Unlock()

	w.changed()
	return nil
}

// Layer returns the render layer of e.
func (w *World) Layer(e Entity) graphics.Layer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.aliveLocked(e) {
		return 0
	}
	return w.records[e.Index].layer
}

// SetLayer moves e to layer l.
func (w *World) SetLayer(e Entity, l graphics.Layer) error {
	w.mu.Lock()
	if !w.aliveLocked(e) {
		w.mu.Unlock()
		return ErrNoEntity
	}
	w.records[e.Index].layer = l
	w.mu.Unlock()

	w.changed()
	return nil
}

// AddComponent stores c on e, keyed by its dynamic type. An existing
// component of the same type is replaced.
func (w *World) AddComponent(e Entity, c any) error {
	if c == nil {
		return ErrNilComponent
	}
	w.mu.Lock()
	if !w.aliveLocked(e) {
		w.mu.Unlock()
		return fmt.Errorf("add %T to %v: %w", c, e, ErrNoEntity)
	}
	w.records[e.Index].components[reflect.TypeOf(c)] = c
	w.mu.Unlock()

	w.changed()
	return nil
}

// RemoveComponent deletes the component of type t from e.
func (w *World) RemoveComponent(e Entity, t reflect.Type) error {
	w.mu.Lock()
	if !w.aliveLocked(e) {
		w.mu.Unlock()
		return ErrNoEntity
	}
	delete(w.records[e.Index].components, t)
	w.mu.Unlock()

	w.changed()
	return nil
}

// Component looks up the component of type t on e.
func (w *World) Component(e Entity, t reflect.Type) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.aliveLocked(e) {
		return nil, false
	}
	c, ok := w.records[e.Index].components[t]
	return c, ok
}

// Get returns the component of type T on e.
func Get[T any](w *World, e Entity) (T, bool) {
	c, ok := w.Component(e, reflect.TypeOf((*T)(nil)).Elem())
	if !ok {
		var zero T
		return zero, false
	}
	return c.(T), true
}

// Each calls fn for every live entity in creation order until fn returns false.
// The entity list is copied first, so fn may edit the world.
func (w *World) Each(fn func(e Entity, t *Transform) bool) {
	w.mu.RLock()
	type pair struct {
		e Entity
		t *Transform
	}
	list := make([]pair, 0, len(w.order))
	for _, idx := range w.order {
		list = append(list, pair{
			e: Entity{Index: idx, Generation: w.records[idx].generation},
			t: w.transforms.at(int(idx)),
		})
	}
	w.mu.RUnlock()

	for _, p := range list {
		if !fn(p.e, p.t) {
			return
		}
	}
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// SortedCameras returns every entity owning a *graphics.Camera, ordered by
// camera depth. Cameras of equal depth keep creation order.
func (w *World) SortedCameras() []CameraEntry {
	camType := reflect.TypeOf((**graphics.Camera)(nil)).Elem()
	var out []CameraEntry
	w.mu.RLock()
	for _, idx := range w.order {
		rec := w.records[idx]
		c, ok := rec.components[camType]
		if !ok {
			continue
		}
		out = append(out, CameraEntry{
			Entity:    Entity{Index: idx, Generation: rec.generation},
			Camera:    c.(*graphics.Camera),
			Transform: w.transforms.at(int(idx)),
		})
	}
	w.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Camera.Depth < out[j].Camera.Depth
	})
	return out
}

// AddChangeReceiver subscribes r to structural changes.
func (w *World) AddChangeReceiver(r ChangeReceiver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.receivers {
		if existing == r {
			return
		}
	}
	w.receivers = append(w.receivers, r)
}

// RemoveChangeReceiver unsubscribes r.
func (w *World) RemoveChangeReceiver(r ChangeReceiver) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, existing := range w.receivers {
		if existing == r {
			w.receivers = append(w.receivers[:i], w.receivers[i+1:]...)
			return
		}
	}
}

// Batch runs fn and delivers at most one change notification afterwards,
// however many structural edits fn made. Batches nest.
func (w *World) Batch(fn func()) {
	w.mu.Lock()
	w.batch++
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.batch--
		fire := w.batch == 0 && w.pending
		if fire {
			w.pending = false
		}
		w.mu.Unlock()
		if fire {
			w.notify()
		}
	}()
	fn()
}

// ClearChanged resets ChangedThisFrame on every transform.
func (w *World) ClearChanged() {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, idx := range w.order {
		if t := w.transforms.at(int(idx)); t != nil {
			t.ChangedThisFrame = false
		}
	}
}

func (w *World) changed() {
	w.mu.Lock()
	if w.batch > 0 {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.notify()
}

func (w *World) notify() {
	w.mu.RLock()
	receivers := append([]ChangeReceiver(nil), w.receivers...)
	w.mu.RUnlock()
	for _, r := range receivers {
		r.WorldChanged()
	}
}
