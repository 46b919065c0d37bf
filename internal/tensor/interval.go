package tensor

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrRankMismatch = errors.New("rank mismatch")
	ErrOutOfBounds  = errors.New("out of bounds")
	ErrEmptyRange   = errors.New("interval min exceeds max")
)

// Interval is an axis-aligned box given by inclusive per-dimension bounds.
// Min[d] <= Max[d] holds for every dimension of a valid interval.
type Interval struct {
	Min []int
	Max []int
}

// NewInterval creates an interval from inclusive min and max coordinates.
// The slices are copied.
func NewInterval(lo, hi []int) (Interval, error) {
	if len(lo) != len(hi) {
		return Interval{}, fmt.Errorf("%w: min has %d dimensions, max has %d", ErrRankMismatch, len(lo), len(hi))
	}
	for d := range lo {
		if lo[d] > hi[d] {
			return Interval{}, fmt.Errorf("%w: dimension %d: %d > %d", ErrEmptyRange, d, lo[d], hi[d])
		}
	}
	return Interval{Min: append([]int(nil), lo...), Max: append([]int(nil), hi...)}, nil
}

// NumDims returns the number of dimensions.
func (iv Interval) NumDims() int {
	return len(iv.Min)
}

// Dimension returns the number of coordinates covered along dimension d.
func (iv Interval) Dimension(d int) int {
	return iv.Max[d] - iv.Min[d] + 1
}

// Dimensions returns the size of the interval along each dimension.
func (iv Interval) Dimensions() Shape {
	dims := make(Shape, len(iv.Min))
	for d := range dims {
		dims[d] = iv.Dimension(d)
	}
	return dims
}

// NumElements returns the number of coordinates inside the interval.
func (iv Interval) NumElements() int {
	return iv.Dimensions().NumElements()
}

// Contains reports whether coords lie inside the interval.
func (iv Interval) Contains(coords []int) bool {
	if len(coords) != len(iv.Min) {
		return false
	}
	for d, c := range coords {
		if c < iv.Min[d] || c > iv.Max[d] {
			return false
		}
	}
	return true
}

// Intersects reports whether two intervals share at least one coordinate.
func (iv Interval) Intersects(other Interval) bool {
	if len(iv.Min) != len(other.Min) {
		return false
	}
	for d := range iv.Min {
		if iv.Max[d] < other.Min[d] || other.Max[d] < iv.Min[d] {
			return false
		}
	}
	return true
}

// Equal checks if two intervals have identical bounds.
func (iv Interval) Equal(other Interval) bool {
	return Shape(iv.Min).Equal(other.Min) && Shape(iv.Max).Equal(other.Max)
}

// String formats the interval as [min..max, ...].
func (iv Interval) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for d := range iv.Min {
		if d > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d..%d", iv.Min[d], iv.Max[d])
	}
	b.WriteByte(']')
	return b.String()
}
