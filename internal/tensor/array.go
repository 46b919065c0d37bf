package tensor

import "fmt"

// Array is a strided n-dimensional array.
//
// Views created with View share the backing slice of their parent, so
// writes through a view are visible in the parent and in every other view
// of the same buffer. Coordinates passed to At, Set and View are relative
// to the array's own origin.
type Array[T DType] struct {
	data   []T   // Shared backing buffer
	shape  Shape // Array dimensions
	stride []int // Element strides (row-major for root arrays)
	offset int   // Offset of the origin into data
	origin []int // Absolute position of this array's origin in the root array
}

// New allocates a zero-filled array with the given shape.
// Zero-sized dimensions are allowed and produce an empty array.
func New[T DType](shape Shape) (*Array[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Array[T]{
		data:   make([]T, shape.NumElements()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		origin: make([]int, len(shape)),
	}, nil
}

// FromSlice wraps data as an array with the given shape.
// The slice is not copied; it becomes the array's backing buffer.
func FromSlice[T DType](data []T, shape Shape) (*Array[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Array[T]{
		data:   data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		origin: make([]int, len(shape)),
	}, nil
}

// Shape returns a copy of the array's extent.
func (a *Array[T]) Shape() Shape {
	return a.shape.Clone()
}

// Strides returns the element strides into the backing buffer.
func (a *Array[T]) Strides() []int {
	return append([]int(nil), a.stride...)
}

// NumDims returns the number of dimensions.
func (a *Array[T]) NumDims() int {
	return len(a.shape)
}

// NumElements returns the number of elements addressable through the array.
func (a *Array[T]) NumElements() int {
	return a.shape.NumElements()
}

// Origin returns the absolute coordinates of the array's first element.
// It is all zeros for arrays created by New or FromSlice.
func (a *Array[T]) Origin() []int {
	return append([]int(nil), a.origin...)
}

// Bounds returns the absolute interval covered by the array.
// It is only meaningful for non-empty arrays.
func (a *Array[T]) Bounds() Interval {
	hi := make([]int, len(a.shape))
	for d := range hi {
		hi[d] = a.origin[d] + a.shape[d] - 1
	}
	return Interval{Min: a.Origin(), Max: hi}
}

func (a *Array[T]) index(coords []int) (int, error) {
	if len(coords) != len(a.shape) {
		return 0, fmt.Errorf("%w: got %d coordinates for %d dimensions", ErrRankMismatch, len(coords), len(a.shape))
	}
	idx := a.offset
	for d, c := range coords {
		if c < 0 || c >= a.shape[d] {
			return 0, fmt.Errorf("%w: coordinate %d in dimension %d (size %d)", ErrOutOfBounds, c, d, a.shape[d])
		}
		idx += c * a.stride[d]
	}
	return idx, nil
}

// At returns the element at coords.
// Panics if coords are out of bounds.
func (a *Array[T]) At(coords ...int) T {
	idx, err := a.index(coords)
	if err != nil {
		panic(fmt.Sprintf("tensor: At: %v", err))
	}
	return a.data[idx]
}

// Set stores v at coords.
// Panics if coords are out of bounds.
func (a *Array[T]) Set(v T, coords ...int) {
	idx, err := a.index(coords)
	if err != nil {
		panic(fmt.Sprintf("tensor: Set: %v", err))
	}
	a.data[idx] = v
}

// View returns a bounded view of the array restricted to iv.
// The view shares memory with a; nothing is copied.
func (a *Array[T]) View(iv Interval) (*Array[T], error) {
	if iv.NumDims() != len(a.shape) || len(iv.Max) != len(iv.Min) {
		return nil, fmt.Errorf("%w: interval %v for %d-dimensional array", ErrRankMismatch, iv, len(a.shape))
	}
	offset := a.offset
	shape := make(Shape, len(a.shape))
	origin := make([]int, len(a.shape))
	for d := range a.shape {
		lo, hi := iv.Min[d], iv.Max[d]
		if lo < 0 || hi >= a.shape[d] || lo > hi {
			return nil, fmt.Errorf("%w: interval %v exceeds shape %v", ErrOutOfBounds, iv, a.shape)
		}
		offset += lo * a.stride[d]
		shape[d] = hi - lo + 1
		origin[d] = a.origin[d] + lo
	}
	return &Array[T]{
		data:   a.data,
		shape:  shape,
		stride: a.stride,
		offset: offset,
		origin: origin,
	}, nil
}

// Each calls fn for every element in row-major order (last dimension fastest).
// The coords slice is reused between calls and must not be retained.
func (a *Array[T]) Each(fn func(coords []int, v T)) {
	a.walk(func(coords []int, idx int) {
		fn(coords, a.data[idx])
	})
}

// Apply replaces every element with fn(coords, v), in row-major order.
func (a *Array[T]) Apply(fn func(coords []int, v T) T) {
	a.walk(func(coords []int, idx int) {
		a.data[idx] = fn(coords, a.data[idx])
	})
}

// Fill sets every element of the array to v.
func (a *Array[T]) Fill(v T) {
	a.walk(func(_ []int, idx int) {
		a.data[idx] = v
	})
}

// Data returns a row-major copy of the array's elements.
func (a *Array[T]) Data() []T {
	out := make([]T, 0, a.NumElements())
	a.walk(func(_ []int, idx int) {
		out = append(out, a.data[idx])
	})
	return out
}

// walk visits every buffer index of the array with its coordinates.
func (a *Array[T]) walk(fn func(coords []int, idx int)) {
	if a.shape.IsEmpty() {
		return
	}
	n := len(a.shape)
	if n == 0 {
		fn(nil, a.offset)
		return
	}
	coords := make([]int, n)
	idx := a.offset
	for {
		fn(coords, idx)

		// Increment the odometer, last dimension fastest.
		d := n - 1
		for ; d >= 0; d-- {
			coords[d]++
			idx += a.stride[d]
			if coords[d] < a.shape[d] {
				break
			}
			idx -= coords[d] * a.stride[d]
			coords[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
