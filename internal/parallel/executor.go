package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/born-ml/labkit/internal/tensor"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// ErrInterruptedWait is reported when the context passed to Execute is
// cancelled while tasks are still running. Execute keeps waiting anyway.
var ErrInterruptedWait = errors.New("parallel: wait interrupted")

// UnitError describes the failure of one task.
type UnitError struct {
	Index  int             // Task index within the batch
	Region tensor.Interval // Region the task operated on
	Err    error           // Error returned by the task, nil for a panic
	Panic  any             // Recovered panic value, nil for a returned error
	Stack  []byte          // Goroutine stack captured at the panic
}

// Error implements the error interface.
func (e *UnitError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("unit %d %v: panic: %v", e.Index, e.Region, e.Panic)
	}
	return fmt.Sprintf("unit %d %v: %v", e.Index, e.Region, e.Err)
}

// Unwrap returns the task's error.
func (e *UnitError) Unwrap() error {
	return e.Err
}

// Outcome is the result of one task.
type Outcome struct {
	Index  int
	Region tensor.Interval
	Err    *UnitError // nil when the task succeeded
}

// Report collects the outcomes of one Execute call, in batch order.
type Report struct {
	Total       int
	Outcomes    []Outcome
	Interrupted bool // The wait was interrupted by context cancellation
}

// Failed returns the errors of all failed tasks in batch order.
func (r *Report) Failed() []*UnitError {
	var failed []*UnitError
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o.Err)
		}
	}
	return failed
}

// Succeeded returns the number of tasks that completed without error.
func (r *Report) Succeeded() int {
	return r.Total - len(r.Failed())
}

// Err combines every task failure, plus ErrInterruptedWait if the wait was
// interrupted, into a single error. It returns nil for a clean run.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed() {
		err = multierr.Append(err, f)
	}
	if r.Interrupted {
		err = multierr.Append(err, ErrInterruptedWait)
	}
	return err
}

// Option configures Execute.
type Option func(*executeOptions)

type executeOptions struct {
	logger logrus.FieldLogger
}

// WithLogger sets the logger used for task failures and interruptions.
// The default is logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *executeOptions) {
		o.logger = logger
	}
}

type completion struct {
	index int
	err   *UnitError
}

// Execute submits every task to pool and blocks until all of them finished.
//
// A failing task, whether it returns an error or panics, never stops its
// siblings. Failures are logged as they are joined and recorded in the
// returned Report. Cancelling ctx does not abandon the batch: the
// interruption is logged and recorded, and Execute keeps waiting until
// every task has been observed.
func Execute(ctx context.Context, pool Pool, tasks []Task, opts ...Option) *Report {
	o := executeOptions{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}

	report := &Report{
		Total:    len(tasks),
		Outcomes: make([]Outcome, len(tasks)),
	}
	if len(tasks) == 0 {
		return report
	}

	done := make(chan completion, len(tasks))
	for i, t := range tasks {
		report.Outcomes[i] = Outcome{Index: t.Index, Region: t.Region}
		pool.Go(func() {
			done <- completion{index: i, err: runTask(t)}
		})
	}

	interrupt := ctx.Done()
	for remaining := len(tasks); remaining > 0; {
		select {
		case c := <-done:
			remaining--
			if c.err == nil {
				continue
			}
			report.Outcomes[c.index].Err = c.err
			entry := o.logger.WithFields(logrus.Fields{
				"unit":   c.err.Index,
				"region": c.err.Region.String(),
			})
			if c.err.Panic != nil {
				entry.WithField("panic", c.err.Panic).WithField("stack", string(c.err.Stack)).Error("unit panicked")
			} else {
				entry.WithError(c.err.Err).Error("unit failed")
			}
		case <-interrupt:
			// Keep waiting for the remaining tasks; a nil channel never fires.
			interrupt = nil
			report.Interrupted = true
			o.logger.WithError(ctx.Err()).WithField("remaining", remaining).Warn("wait interrupted, still joining remaining units")
		}
	}
	return report
}

// runTask runs t and converts a returned error or a panic into a UnitError.
func runTask(t Task) (uerr *UnitError) {
	defer func() {
		if p := recover(); p != nil {
			uerr = &UnitError{Index: t.Index, Region: t.Region, Panic: p, Stack: debug.Stack()}
		}
	}()
	if err := t.Run(); err != nil {
		return &UnitError{Index: t.Index, Region: t.Region, Err: err}
	}
	return nil
}
