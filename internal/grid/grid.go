package grid

import (
	"fmt"
	"iter"

	"github.com/born-ml/labkit/internal/tensor"
)

// CellGrid describes the partition of an extent into cells of a fixed size.
// It never materializes the cells; they are computed from their flat index.
// A CellGrid is immutable and safe for concurrent use.
type CellGrid struct {
	extent   tensor.Shape
	cellSize []int
	dims     []int // Number of cells along each dimension
	numCells int
}

// New creates a grid over extent with the given per-dimension cell size.
//
// The extent and cell size must have the same number of dimensions, every
// extent value must be >= 0 and every cell size must be > 0. A zero extent
// in any dimension yields a grid with no cells.
func New(extent tensor.Shape, cellSize []int) (*CellGrid, error) {
	if len(extent) != len(cellSize) {
		return nil, &GeometryError{
			Dim:     -1,
			Details: fmt.Sprintf("extent has %d dimensions, cell size has %d", len(extent), len(cellSize)),
		}
	}

	dims := make([]int, len(extent))
	numCells := 1
	for d := range extent {
		if extent[d] < 0 {
			return nil, &GeometryError{Dim: d, Details: fmt.Sprintf("negative extent %d", extent[d])}
		}
		if cellSize[d] <= 0 {
			return nil, &GeometryError{Dim: d, Details: fmt.Sprintf("cell size %d must be > 0", cellSize[d])}
		}
		dims[d] = ceilDiv(extent[d], cellSize[d])
		numCells *= dims[d]
	}

	return &CellGrid{
		extent:   extent.Clone(),
		cellSize: append([]int(nil), cellSize...),
		dims:     dims,
		numCells: numCells,
	}, nil
}

// NumDims returns the number of dimensions of the grid.
func (g *CellGrid) NumDims() int {
	return len(g.extent)
}

// Extent returns the partitioned extent.
func (g *CellGrid) Extent() tensor.Shape {
	return g.extent.Clone()
}

// CellSize returns the requested cell size.
func (g *CellGrid) CellSize() []int {
	return append([]int(nil), g.cellSize...)
}

// Dimensions returns the number of cells along each dimension.
func (g *CellGrid) Dimensions() []int {
	return append([]int(nil), g.dims...)
}

// NumCells returns the total number of cells.
func (g *CellGrid) NumCells() int {
	return g.numCells
}

// Position converts a flat cell index to per-dimension cell coordinates
// using a mixed-radix decomposition, last dimension fastest.
// Panics if index is out of range.
func (g *CellGrid) Position(index int) []int {
	if index < 0 || index >= g.numCells {
		panic(fmt.Sprintf("grid: cell index %d out of range [0, %d)", index, g.numCells))
	}
	pos := make([]int, len(g.dims))
	for d := len(g.dims) - 1; d >= 0; d-- {
		pos[d] = index % g.dims[d]
		index /= g.dims[d]
	}
	return pos
}

// Index converts per-dimension cell coordinates to a flat cell index.
// It is the inverse of Position. Panics if pos lies outside the grid.
func (g *CellGrid) Index(pos []int) int {
	if len(pos) != len(g.dims) {
		panic(fmt.Sprintf("grid: position %v has %d dimensions, grid has %d", pos, len(pos), len(g.dims)))
	}
	index := 0
	for d, p := range pos {
		if p < 0 || p >= g.dims[d] {
			panic(fmt.Sprintf("grid: position %v outside grid %v", pos, g.dims))
		}
		index = index*g.dims[d] + p
	}
	return index
}

// Cell returns the region covered by the cell with the given flat index.
// Bounds are inclusive and the trailing cell of each dimension is clamped
// to the extent. Panics if index is out of range.
func (g *CellGrid) Cell(index int) tensor.Interval {
	pos := g.Position(index)
	lo := make([]int, len(pos))
	hi := make([]int, len(pos))
	for d, p := range pos {
		lo[d] = p * g.cellSize[d]
		hi[d] = min(lo[d]+g.cellSize[d]-1, g.extent[d]-1)
	}
	return tensor.Interval{Min: lo, Max: hi}
}

// Cells returns a lazy sequence of every cell region in flat index order.
// The sequence can be ranged over any number of times.
func (g *CellGrid) Cells() iter.Seq[tensor.Interval] {
	return func(yield func(tensor.Interval) bool) {
		for i := range g.numCells {
			if !yield(g.Cell(i)) {
				return
			}
		}
	}
}

// All returns a lazy sequence of (flat index, region) pairs.
func (g *CellGrid) All() iter.Seq2[int, tensor.Interval] {
	return func(yield func(int, tensor.Interval) bool) {
		for i := range g.numCells {
			if !yield(i, g.Cell(i)) {
				return
			}
		}
	}
}

// Intervals materializes every cell region in flat index order.
func (g *CellGrid) Intervals() []tensor.Interval {
	out := make([]tensor.Interval, 0, g.numCells)
	for cell := range g.Cells() {
		out = append(out, cell)
	}
	return out
}

// Cells validates the geometry and returns the lazy cell sequence of the
// resulting grid. Errors are reported before any cell is produced.
func Cells(extent tensor.Shape, cellSize []int) (iter.Seq[tensor.Interval], error) {
	g, err := New(extent, cellSize)
	if err != nil {
		return nil, err
	}
	return g.Cells(), nil
}

// ceilDiv returns ceil(a / b) for a >= 0, b > 0.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
