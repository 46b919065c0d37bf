package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when an extent and cell size cannot describe a grid.
var ErrInvalidGeometry = errors.New("invalid geometry")

// GeometryError provides detailed information about a malformed grid request.
type GeometryError struct {
	Dim     int    // Offending dimension, or -1 when not dimension specific
	Details string // Human-readable reason
}

// Error implements the error interface.
func (e *GeometryError) Error() string {
	if e.Dim >= 0 {
		return fmt.Sprintf("%s: dimension %d: %s", ErrInvalidGeometry, e.Dim, e.Details)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidGeometry, e.Details)
}

// Unwrap lets errors.Is match ErrInvalidGeometry.
func (e *GeometryError) Unwrap() error {
	return ErrInvalidGeometry
}
