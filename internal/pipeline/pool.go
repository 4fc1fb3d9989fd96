package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// JobResult is the outcome of one submitted job.
type JobResult[T any] struct {
	// Index is the submission order, starting at 0.
	Index    int
	ID       string
	Value    T
	Err      error
	Duration time.Duration
	// Skipped is set when the pool was cancelled before the job started.
	Skipped bool
}

// WorkerPool runs jobs with bounded concurrency.
type WorkerPool[T any] struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	next       int
	results    []JobResult[T]
	errors     []error
	failFast   bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a pool running at most maxWorkers jobs at once.
// If maxWorkers is 0, every submitted job runs immediately.
// If failFast is true, the pool context is cancelled on the first error.
func NewWorkerPool[T any](ctx context.Context, maxWorkers int, failFast bool) *WorkerPool[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool[T]{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		failFast:   failFast,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Submit schedules fn. It does not block; fn receives the pool context.
func (p *WorkerPool[T]) Submit(id string, fn func(ctx context.Context) (T, error)) {
	p.mu.Lock()
	index := p.next
	p.next++
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.maxWorkers > 0 {
			select {
			case p.semaphore <- struct{}{}:
				defer func() { <-p.semaphore }()
			case <-p.ctx.Done():
				p.record(JobResult[T]{Index: index, ID: id, Err: p.ctx.Err(), Skipped: true})
				return
			}
		}

		if err := p.ctx.Err(); err != nil {
			p.record(JobResult[T]{Index: index, ID: id, Err: err, Skipped: true})
			return
		}

		start := time.Now()
		value, err := fn(p.ctx)
		p.record(JobResult[T]{
			Index:    index,
			ID:       id,
			Value:    value,
			Err:      err,
			Duration: time.Since(start),
		})
	}()
}

func (p *WorkerPool[T]) record(result JobResult[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.results = append(p.results, result)
	if result.Err != nil && !result.Skipped {
		p.errors = append(p.errors, fmt.Errorf("%s: %w", result.ID, result.Err))
		if p.failFast {
			p.cancel()
		}
	}
}

// Wait blocks until every submitted job has finished or been skipped and
// returns the results in submission order.
func (p *WorkerPool[T]) Wait() ([]JobResult[T], []error) {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancel()

	results := make([]JobResult[T], len(p.results))
	copy(results, p.results)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	errs := make([]error, len(p.errors))
	copy(errs, p.errors)
	return results, errs
}

// Cancel stops jobs that have not started yet.
func (p *WorkerPool[T]) Cancel() {
	p.cancel()
}
