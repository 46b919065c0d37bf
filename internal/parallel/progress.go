package parallel

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// ProgressSink receives progress updates for a batch.
//
// Report may be called concurrently from several workers. Across one batch
// every completed value from 1 to total is delivered exactly once, but calls
// are not guaranteed to arrive in increasing order.
type ProgressSink interface {
	Report(completed, total int)
}

// SinkFunc adapts a function to the ProgressSink interface.
type SinkFunc func(completed, total int)

// Report calls f(completed, total).
func (f SinkFunc) Report(completed, total int) {
	f(completed, total)
}

// writerSink prints "completed/total" lines to a writer.
type writerSink struct {
	mu sync.Mutex
	w  io.Writer
}

// WriterSink returns a sink that writes one "completed/total" line per
// report to w. Writes are serialized.
func WriterSink(w io.Writer) ProgressSink {
	return &writerSink{w: w}
}

// StdoutSink returns a WriterSink on os.Stdout.
func StdoutSink() ProgressSink {
	return WriterSink(os.Stdout)
}

func (s *writerSink) Report(completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%d/%d\n", completed, total)
}

// WithProgress wraps every task so that sink is notified after it succeeds.
//
// The total is fixed to len(tasks). A task that returns an error or panics
// is not counted; its error is returned unchanged and a panic propagates
// to the executor.
func WithProgress(tasks []Task, sink ProgressSink) []Task {
	var completed atomic.Int64
	total := len(tasks)

	wrapped := make([]Task, len(tasks))
	for i, t := range tasks {
		wrapped[i] = NewTask(t.Index, t.Region, func() error {
			if err := t.Run(); err != nil {
				return err
			}
			sink.Report(int(completed.Add(1)), total)
			return nil
		})
	}
	return wrapped
}

// WithShowProgress wraps tasks with a progress sink printing to stdout.
func WithShowProgress(tasks []Task) []Task {
	return WithProgress(tasks, StdoutSink())
}
