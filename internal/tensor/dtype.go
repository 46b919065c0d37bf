// Package tensor provides the n-dimensional array types used by labkit.
package tensor

// DType is a constraint for supported element types.
// Images are typically uint8/uint16, label maps int32 and feature maps float32.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~bool
}
