// Package grid partitions an n-dimensional extent into a grid of
// axis-aligned cells.
//
// Cells are numbered by a flat index in row-major order: the last dimension
// varies fastest. For an extent of {4, 6} and a cell size of {2, 3} the four
// cells are numbered
//
//	0: [0..1, 0..2]   1: [0..1, 3..5]
//	2: [2..3, 0..2]   3: [2..3, 3..5]
//
// Cells at the high edge of a dimension that is not evenly divisible by the
// cell size are clamped to the extent, so every coordinate of the extent
// belongs to exactly one cell.
//
// Example:
//
//	g, err := grid.New(tensor.Shape{10}, []int{4})
//	if err != nil {
//	    return err
//	}
//	for cell := range g.Cells() {
//	    fmt.Println(cell) // [0..3], [4..7], [8..9]
//	}
package grid
