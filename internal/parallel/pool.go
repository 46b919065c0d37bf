package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sync/semaphore"
)

// Pool runs submitted functions asynchronously.
//
// Execute submits every task of a batch through Go and joins on its own;
// a pool only decides where and when functions run. The caller owns the
// pool's lifecycle.
type Pool interface {
	Go(fn func())
}

// GoPool starts one goroutine per submitted function.
type GoPool struct{}

// Go runs fn on a new goroutine.
func (GoPool) Go(fn func()) {
	go fn()
}

// BoundedPool starts one goroutine per submitted function but never runs
// more than its limit at once. Go blocks while the pool is saturated.
type BoundedPool struct {
	sem *semaphore.Weighted
}

// NewBoundedPool creates a pool running at most limit functions at a time.
// A limit <= 0 uses runtime.GOMAXPROCS(0).
func NewBoundedPool(limit int) *BoundedPool {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &BoundedPool{sem: semaphore.NewWeighted(int64(limit))}
}

// Go waits for a free slot and runs fn on a new goroutine.
func (p *BoundedPool) Go(fn func()) {
	// Acquire with a background context never fails.
	_ = p.sem.Acquire(context.Background(), 1)
	go func() {
		defer p.sem.Release(1)
		fn()
	}()
}

// WorkerPool is a fixed set of worker goroutines draining an unbounded
// FIFO backlog. Go never blocks.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool
	size    int
	wg      sync.WaitGroup
}

// NewWorkerPool starts numWorkers workers.
// A value <= 0 uses runtime.GOMAXPROCS(0).
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &WorkerPool{
		pending: queue.New(),
		size:    numWorkers,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(numWorkers)
	for range numWorkers {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.size
}

// Go queues fn for execution by the next free worker.
// Panics if the pool has been closed.
func (p *WorkerPool) Go(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("parallel: Go on closed WorkerPool")
	}
	p.pending.Add(fn)
	p.cond.Signal()
}

// Close stops accepting work, lets the workers drain the backlog and waits
// for them to exit. Close is idempotent.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.pending.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.pending.Length() == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.pending.Remove().(func())
		p.mu.Unlock()

		fn()
	}
}
