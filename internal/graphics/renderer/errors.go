package renderer

import "errors"

var (
	ErrNilUnit   = errors.New("renderer: nil render unit")
	ErrUnitPanic = errors.New("renderer: render unit panicked")
)
