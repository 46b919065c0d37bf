package parallel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/born-ml/labkit/internal/tensor"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// cellConstant is the value owned by the cell starting at origin.
func cellConstant(origin []int) int32 {
	return int32(origin[0]*1000 + origin[1] + 1)
}

// TestExecute_DisjointWrites runs a batch where every cell writes its own
// constant and checks that each element ends up with its owner's value.
func TestExecute_DisjointWrites(t *testing.T) {
	extent := tensor.Shape{61, 47}
	cellSize := []int{8, 6}

	pools := map[string]func(n int) (Pool, func()){
		"worker_1": func(int) (Pool, func()) { p := NewWorkerPool(1); return p, p.Close },
		"worker_4": func(int) (Pool, func()) { p := NewWorkerPool(4); return p, p.Close },
		"worker_N": func(n int) (Pool, func()) { p := NewWorkerPool(n); return p, p.Close },
		"bounded":  func(int) (Pool, func()) { return NewBoundedPool(4), func() {} },
		"go":       func(int) (Pool, func()) { return GoPool{}, func() {} },
	}

	for name, newPool := range pools {
		t.Run(name, func(t *testing.T) {
			img, err := tensor.New[int32](extent)
			require.NoError(t, err)

			tasks, err := Chunk(img, cellSize, func(view *tensor.Array[int32]) error {
				view.Fill(cellConstant(view.Origin()))
				return nil
			})
			require.NoError(t, err)

			pool, closePool := newPool(len(tasks))
			report := Execute(context.Background(), pool, tasks, WithLogger(quietLogger()))
			closePool()

			require.NoError(t, report.Err())
			assert.Equal(t, len(tasks), report.Total)
			assert.Equal(t, len(tasks), report.Succeeded())
			assert.False(t, report.Interrupted)

			img.Each(func(c []int, v int32) {
				owner := []int{c[0] / cellSize[0] * cellSize[0], c[1] / cellSize[1] * cellSize[1]}
				if v != cellConstant(owner) {
					t.Errorf("element %v = %d, want %d", c, v, cellConstant(owner))
				}
			})
		})
	}
}

// TestExecute_FailureIsolation checks that failing units do not stop the
// remaining units and that their failures are reported in aggregate.
func TestExecute_FailureIsolation(t *testing.T) {
	img, err := tensor.New[int32](tensor.Shape{20, 20})
	require.NoError(t, err)

	errBadCell := errors.New("bad cell")
	tasks, err := Chunk(img, []int{5, 5}, func(view *tensor.Array[int32]) error {
		origin := view.Origin()
		switch {
		case origin[0] == 5 && origin[1] == 10:
			return fmt.Errorf("segmenting %v: %w", origin, errBadCell)
		case origin[0] == 15 && origin[1] == 0:
			panic("corrupt tile")
		}
		view.Fill(1)
		return nil
	})
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	pool := NewWorkerPool(4)
	defer pool.Close()
	report := Execute(context.Background(), pool, WithProgress(tasks, SinkFunc(func(int, int) {})), WithLogger(logger))

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.Equal(t, 6, failed[0].Index)
	assert.ErrorIs(t, failed[0], errBadCell)
	assert.Nil(t, failed[0].Panic)
	assert.Equal(t, 12, failed[1].Index)
	assert.Equal(t, "corrupt tile", failed[1].Panic)
	assert.NotEmpty(t, failed[1].Stack)
	assert.Equal(t, len(tasks)-2, report.Succeeded())

	err = report.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBadCell)
	assert.Len(t, multierr.Errors(err), 2)

	// Every other cell was still written.
	img.Each(func(c []int, v int32) {
		inFailed := (c[0] >= 5 && c[0] < 10 && c[1] >= 10 && c[1] < 15) ||
			(c[0] >= 15 && c[1] < 5)
		if inFailed {
			assert.Zero(t, v, "element %v", c)
		} else {
			assert.Equal(t, int32(1), v, "element %v", c)
		}
	})

	// Both failures were logged at the join point.
	var errorEntries int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			errorEntries++
			assert.Contains(t, entry.Data, "unit")
			assert.Contains(t, entry.Data, "region")
		}
	}
	assert.Equal(t, 2, errorEntries)
}

// releaseOnWarn closes release when a warning is logged.
type releaseOnWarn struct {
	once    sync.Once
	release chan struct{}
}

func (h *releaseOnWarn) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel}
}

func (h *releaseOnWarn) Fire(*logrus.Entry) error {
	h.once.Do(func() { close(h.release) })
	return nil
}

func TestExecute_InterruptedWaitStillJoins(t *testing.T) {
	hook := &releaseOnWarn{release: make(chan struct{})}
	logger := quietLogger()
	logger.AddHook(hook)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var finished sync.WaitGroup
	finished.Add(3)
	tasks := []Task{
		NewTask(0, tensor.Interval{}, func() error {
			defer finished.Done()
			<-hook.release
			return nil
		}),
		NewTask(1, tensor.Interval{}, func() error {
			defer finished.Done()
			<-hook.release
			return errors.New("late failure")
		}),
		NewTask(2, tensor.Interval{}, func() error {
			defer finished.Done()
			return nil
		}),
	}

	report := Execute(ctx, GoPool{}, tasks, WithLogger(logger))

	// Execute only returns once every task has been observed.
	finished.Wait()
	assert.True(t, report.Interrupted)
	assert.Len(t, report.Failed(), 1)
	assert.Equal(t, 2, report.Succeeded())

	err := report.Err()
	assert.ErrorIs(t, err, ErrInterruptedWait)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestExecute_EmptyBatch(t *testing.T) {
	report := Execute(context.Background(), GoPool{}, nil)
	assert.Zero(t, report.Total)
	assert.NoError(t, report.Err())
	assert.Empty(t, report.Failed())
}

func TestExecute_OutcomesInBatchOrder(t *testing.T) {
	img, err := tensor.New[uint8](tensor.Shape{12})
	require.NoError(t, err)
	tasks, err := Chunk(img, []int{5}, func(*tensor.Array[uint8]) error { return nil })
	require.NoError(t, err)

	report := Execute(context.Background(), NewBoundedPool(2), tasks, WithLogger(nil))
	require.Len(t, report.Outcomes, 3)
	for i, o := range report.Outcomes {
		assert.Equal(t, i, o.Index)
		assert.True(t, o.Region.Equal(tasks[i].Region))
		assert.Nil(t, o.Err)
	}
}

func TestUnitError_Message(t *testing.T) {
	region := tensor.Interval{Min: []int{0, 4}, Max: []int{3, 7}}
	errA := &UnitError{Index: 3, Region: region, Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "unit 3 [0..3, 4..7]: unexpected EOF", errA.Error())
	assert.ErrorIs(t, errA, io.ErrUnexpectedEOF)

	errB := &UnitError{Index: 1, Region: region, Panic: "oops"}
	assert.Equal(t, "unit 1 [0..3, 4..7]: panic: oops", errB.Error())
}
