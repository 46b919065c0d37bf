// Package parallel runs work over the cells of an n-dimensional array.
//
// Chunk partitions an array into a grid of cells and binds a caller-supplied
// Operation to the view of each cell. WithProgress wraps the resulting tasks
// with completion accounting, and Execute runs a batch on a Pool, joining
// every task and collecting per-task failures into a Report.
//
//	tasks, err := parallel.Chunk(img, []int{64, 64}, threshold)
//	if err != nil {
//	    return err
//	}
//	pool := parallel.NewWorkerPool(0)
//	defer pool.Close()
//	report := parallel.Execute(ctx, pool, parallel.WithShowProgress(tasks))
//	if err := report.Err(); err != nil {
//	    return err
//	}
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum iterations before For splits work.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// workers returns the effective worker count for cfg.
func (cfg Config) workers() int {
	if !cfg.Enabled || cfg.NumWorkers <= 0 {
		return 1
	}
	return cfg.NumWorkers
}

// For executes f(i) for i in [0, n), splitting the range into contiguous
// blocks across cfg.NumWorkers goroutines. Small ranges and disabled
// configs run sequentially on the calling goroutine.
func For(n int, f func(i int), cfg Config) {
	workers := cfg.workers()
	if workers == 1 || n < cfg.MinChunkSize {
		for i := range n {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+workers-1)/workers, cfg.MinChunkSize)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				f(i)
			}
		}()
	}
	wg.Wait()
}

// Run executes tasks on a WorkerPool sized from cfg and closes the pool
// before returning.
func Run(ctx context.Context, cfg Config, tasks []Task, opts ...Option) *Report {
	pool := NewWorkerPool(cfg.workers())
	defer pool.Close()
	return Execute(ctx, pool, tasks, opts...)
}
