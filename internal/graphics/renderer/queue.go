package renderer

import (
	"reflect"

	"framekit/internal/logging"
	"framekit/internal/profiling"
	"framekit/internal/scene"
)

// Batch is the entity list routed to one unit for one camera.
type Batch struct {
	Unit    RenderUnit
	Entries []Entry
}

// CameraQueue is the work of one camera pass. Batches follow registration
// order and never hold an empty entry list.
type CameraQueue struct {
	Camera  CameraRef
	View    ViewID
	Batches []Batch
}

// Queue is the per-camera render queue. A Queue is built wholesale and never
// mutated afterwards.
type Queue struct {
	Cameras []CameraQueue

	renderables []*Renderable
}

// RenderableCount returns the number of distinct renderable records the
// queue references.
func (q *Queue) RenderableCount() int {
	if q == nil {
		return 0
	}
	return len(q.renderables)
}

// Entities returns the entities routed to unit for the camera at index cam,
// in scene enumeration order.
func (q *Queue) Entities(cam int, unit RenderUnit) []scene.Entity {
	if q == nil || cam < 0 || cam >= len(q.Cameras) {
		return nil
	}
	for _, b := range q.Cameras[cam].Batches {
		if reflect.TypeOf(b.Unit) != reflect.TypeOf(unit) {
			continue
		}
		out := make([]scene.Entity, len(b.Entries))
		for i, e := range b.Entries {
			out[i] = e.Entity
		}
		return out
	}
	return nil
}

func (q *Queue) clearCullingStates() {
	if q == nil {
		return
	}
	for _, r := range q.renderables {
		r.resetCulling()
	}
}

// buildQueue partitions the world by camera, then by unit. An entity joins a
// camera's queue only if its layer is in the camera's culling layers, and a
// unit's batch only if it owns the unit's component type.
func buildQueue(w *scene.World, units []RenderUnit) *Queue {
	defer profiling.Track("renderer.buildQueue")()

	q := &Queue{}
	if w == nil {
		return q
	}
	seen := make(map[*Renderable]struct{})
	cams := w.SortedCameras()
	maxCams := int(OverlayViewID - FirstCameraViewID)
	if len(cams) > maxCams {
		logging.With("renderer").Warn("too many cameras, extra cameras are not rendered",
			"cameras", len(cams), "max", maxCams)
		cams = cams[:maxCams]
	}

	for i, cam := range cams {
		cq := CameraQueue{Camera: cam, View: FirstCameraViewID + ViewID(i)}
		lists := make([][]Entry, len(units))
		w.Each(func(e scene.Entity, t *scene.Transform) bool {
			if !cam.Camera.CullingLayers.HasLayer(w.Layer(e)) {
				return true
			}
			for ui, u := range units {
				c, ok := w.Component(e, u.RelatedComponentType())
				if !ok {
					continue
				}
				entry := Entry{Entity: e, Transform: t, Component: c}
				lists[ui] = append(lists[ui], entry)
				if r := entry.Renderable(); r != nil {
					if _, dup := seen[r]; !dup {
						seen[r] = struct{}{}
						q.renderables = append(q.renderables, r)
					}
				}
			}
			return true
		})
		for ui, entries := range lists {
			if len(entries) == 0 {
				continue
			}
			cq.Batches = append(cq.Batches, Batch{Unit: units[ui], Entries: entries})
		}
		q.Cameras = append(q.Cameras, cq)
	}
	return q
}
