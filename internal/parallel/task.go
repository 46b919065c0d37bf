package parallel

import (
	"iter"

	"github.com/born-ml/labkit/internal/grid"
	"github.com/born-ml/labkit/internal/tensor"
)

// Operation processes one bounded view of an array in place.
//
// Operations are invoked concurrently on disjoint views of the same array
// and must not touch elements outside the view they were given.
type Operation[T tensor.DType] func(view *tensor.Array[T]) error

// Task is a deferred unit of work bound to one region of an array.
// A task is created per chunking call and run exactly once by Execute.
type Task struct {
	Index  int             // Position in the batch (flat cell index for chunked batches)
	Region tensor.Interval // Region the task operates on
	run    func() error
}

// NewTask creates a task that calls fn when run.
func NewTask(index int, region tensor.Interval, fn func() error) Task {
	return Task{Index: index, Region: region, run: fn}
}

// Run executes the task.
func (t Task) Run() error {
	if t.run == nil {
		return nil
	}
	return t.run()
}

// Build creates one task per region. Each task restricts arr to its region
// and applies op to the resulting view; the array is never copied.
func Build[T tensor.DType](arr *tensor.Array[T], regions iter.Seq[tensor.Interval], op Operation[T]) []Task {
	var tasks []Task
	for region := range regions {
		tasks = append(tasks, bind(arr, len(tasks), region, op))
	}
	return tasks
}

// Chunk partitions arr into cells of cellSize and returns one task per cell,
// in row-major cell order. It fails with grid.ErrInvalidGeometry when
// cellSize does not match the array's dimensionality or is not positive.
func Chunk[T tensor.DType](arr *tensor.Array[T], cellSize []int, op Operation[T]) ([]Task, error) {
	g, err := grid.New(arr.Shape(), cellSize)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, g.NumCells())
	for i, region := range g.All() {
		tasks = append(tasks, bind(arr, i, region, op))
	}
	return tasks, nil
}

// bind creates the task applying op to the view of arr over region.
func bind[T tensor.DType](arr *tensor.Array[T], index int, region tensor.Interval, op Operation[T]) Task {
	return NewTask(index, region, func() error {
		view, err := arr.View(region)
		if err != nil {
			return err
		}
		return op(view)
	})
}
