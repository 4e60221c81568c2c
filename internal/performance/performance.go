// Package performance holds the small concurrency primitives the rest
// of the system leans on: the worker pool that fans per-trader analysis
// out, the token bucket that paces venue requests, and the write-behind
// buffer the decision journal batches inserts through.
package performance

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// WorkerPool runs submitted tasks on a fixed set of goroutines. Stop
// drains the queue before returning, so every accepted task runs
// exactly once.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewWorkerPool sizes a pool. A non-positive worker count falls back to
// the machine's CPU count.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := &WorkerPool{
		tasks: make(chan func(), workers*2),
	}
	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.run()
	}
	return pool
}

func (p *WorkerPool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Start accepts submissions. Starting twice is a no-op.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
}

// Submit hands a task to the pool. It reports false when the pool is
// not accepting work or the queue is full; callers run the task inline
// in that case. The lock is held across the send so Stop cannot close
// the queue under a submission.
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.stopped {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the workers to finish what was
// already accepted. Stopping twice is a no-op.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}

// BatchProcessor buffers items and hands them to a sink in fixed-size
// batches. The sink always runs under the buffer's lock, so batches
// reach it in the order items were added.
type BatchProcessor[T any] struct {
	size int
	sink func([]T) error

	mu      sync.Mutex
	pending []T
}

// NewBatchProcessor builds a buffer that flushes every size items.
func NewBatchProcessor[T any](size int, sink func([]T) error) *BatchProcessor[T] {
	if size <= 0 {
		size = 1
	}
	return &BatchProcessor[T]{
		size: size,
		sink: sink,
	}
}

// Add buffers one item, flushing when the batch fills. A sink failure
// surfaces here; the failed batch is dropped, not retried.
func (b *BatchProcessor[T]) Add(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, item)
	if len(b.pending) < b.size {
		return nil
	}
	return b.drain()
}

// Flush pushes whatever is buffered to the sink, full batch or not.
func (b *BatchProcessor[T]) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drain()
}

func (b *BatchProcessor[T]) drain() error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	return b.sink(batch)
}

// RateLimiter is a token bucket. Tokens refill continuously at rate per
// second up to burst; each admitted call costs one token.
type RateLimiter struct {
	rate  float64
	burst float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter builds a full bucket.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Allow takes a token if one is available.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill(time.Now())
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// Wait blocks until a token is available or the context ends. The sleep
// is computed from the token deficit rather than polled, then the take
// is retried because another waiter may have won the refill.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.refill(time.Now())
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		deficit := 1 - r.tokens
		r.mu.Unlock()

		delay := time.Duration(deficit / r.rate * float64(time.Second))
		if r.rate <= 0 || delay > time.Second {
			delay = time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// refill credits tokens for the time since the last update. Callers
// hold the lock.
func (r *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(r.last).Seconds()
	r.last = now
	if elapsed <= 0 {
		return
	}
	r.tokens += elapsed * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
}
