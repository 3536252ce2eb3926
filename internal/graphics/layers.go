package graphics

// Layer is the render layer of an entity, 0..31.
type Layer uint8

// MaxLayers is the number of distinct layers a LayerMask can hold.
const MaxLayers = 32

// LayerMask is a set of layers. Cameras render only entities whose layer is
// in their culling mask.
type LayerMask uint32

const (
	Nothing    LayerMask = 0
	Everything LayerMask = ^LayerMask(0)
)

// MaskOf builds a mask containing the given layers.
func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		m = m.With(l)
	}
	return m
}

// HasLayer reports whether l is in the mask. Out of range layers are never
// contained.
func (m LayerMask) HasLayer(l Layer) bool {
	if l >= MaxLayers {
		return false
	}
	return m&(1<<l) != 0
}

// With returns a copy of m that includes l.
func (m LayerMask) With(l Layer) LayerMask {
	if l >= MaxLayers {
		return m
	}
	return m | 1<<l
}

// Without returns a copy of m that excludes l.
func (m LayerMask) Without(l Layer) LayerMask {
	if l >= MaxLayers {
		return m
	}
	return m &^ (1 << l)
}
