package tensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZeroFilled(t *testing.T) {
	a, err := New[float32](Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, a.NumDims())
	assert.Equal(t, 6, a.NumElements())
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, a.Data())

	_, err = New[float32](Shape{-1})
	assert.Error(t, err)
}

func TestNew_EmptyArray(t *testing.T) {
	a, err := New[uint8](Shape{0, 5})
	require.NoError(t, err)
	assert.Equal(t, 0, a.NumElements())

	visited := 0
	a.Each(func(_ []int, _ uint8) { visited++ })
	assert.Zero(t, visited)
	assert.Empty(t, a.Data())
}

func TestFromSlice(t *testing.T) {
	data := []int32{0, 1, 2, 3, 4, 5}
	a, err := FromSlice(data, Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, int32(5), a.At(1, 2))

	// The slice is shared, not copied.
	a.Set(42, 0, 1)
	assert.Equal(t, int32(42), data[1])

	_, err = FromSlice(data, Shape{4, 2})
	assert.Error(t, err)
}

func TestArray_AtPanicsOutOfBounds(t *testing.T) {
	a, err := New[int32](Shape{2, 2})
	require.NoError(t, err)
	assert.Panics(t, func() { a.At(2, 0) })
	assert.Panics(t, func() { a.At(0) })
	assert.Panics(t, func() { a.Set(1, -1, 0) })
}

func TestArray_ViewSharesMemory(t *testing.T) {
	a, err := New[int32](Shape{4, 6})
	require.NoError(t, err)

	v, err := a.View(Interval{Min: []int{1, 2}, Max: []int{2, 4}})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, v.Shape())
	assert.Equal(t, []int{1, 2}, v.Origin())
	assert.True(t, v.Bounds().Equal(Interval{Min: []int{1, 2}, Max: []int{2, 4}}))

	v.Fill(7)
	for y := range 4 {
		for x := range 6 {
			want := int32(0)
			if y >= 1 && y <= 2 && x >= 2 && x <= 4 {
				want = 7
			}
			assert.Equal(t, want, a.At(y, x), "at (%d,%d)", y, x)
		}
	}

	// View coordinates are relative to the view origin.
	v.Set(9, 0, 0)
	assert.Equal(t, int32(9), a.At(1, 2))
}

func TestArray_NestedView(t *testing.T) {
	data := make([]uint16, 10*10)
	for i := range data {
		data[i] = uint16(i)
	}
	a, err := FromSlice(data, Shape{10, 10})
	require.NoError(t, err)

	outer, err := a.View(Interval{Min: []int{2, 2}, Max: []int{7, 7}})
	require.NoError(t, err)
	inner, err := outer.View(Interval{Min: []int{1, 1}, Max: []int{2, 3}})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 3}, inner.Origin())
	assert.Equal(t, []uint16{33, 34, 35, 43, 44, 45}, inner.Data())
}

func TestArray_ViewErrors(t *testing.T) {
	a, err := New[float64](Shape{4, 4})
	require.NoError(t, err)

	_, err = a.View(Interval{Min: []int{0}, Max: []int{1}})
	assert.True(t, errors.Is(err, ErrRankMismatch))

	_, err = a.View(Interval{Min: []int{0, 0}, Max: []int{4, 1}})
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	_, err = a.View(Interval{Min: []int{-1, 0}, Max: []int{1, 1}})
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestArray_EachRowMajor(t *testing.T) {
	a, err := FromSlice([]int64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)

	var coords [][]int
	var values []int64
	a.Each(func(c []int, v int64) {
		coords = append(coords, append([]int(nil), c...))
		values = append(values, v)
	})
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, values)
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}}, coords)
}

func TestArray_Apply(t *testing.T) {
	a, err := New[int32](Shape{3, 3})
	require.NoError(t, err)
	v, err := a.View(Interval{Min: []int{1, 0}, Max: []int{1, 2}})
	require.NoError(t, err)

	v.Apply(func(c []int, _ int32) int32 { return int32(c[1] + 1) })
	assert.Equal(t, []int32{0, 0, 0, 1, 2, 3, 0, 0, 0}, a.Data())
}

func TestArray_Scalar(t *testing.T) {
	a, err := New[bool](Shape{})
	require.NoError(t, err)
	a.Set(true)
	assert.True(t, a.At())
	assert.Equal(t, []bool{true}, a.Data())
}
