package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestWorkerPool_SubmitAndWait(t *testing.T) {
	ctx := context.Background()

	t.Run("results in submission order", func(t *testing.T) {
		pool := NewWorkerPool[int](ctx, 3, false)
		for i := 0; i < 6; i++ {
			n := i
			pool.Submit(fmt.Sprintf("job-%d", n), func(context.Context) (int, error) {
				// Later jobs finish first.
				time.Sleep(time.Duration(6-n) * time.Millisecond)
				return n * n, nil
			})
		}

		results, errs := pool.Wait()
		if len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
		if len(results) != 6 {
			t.Fatalf("expected 6 results, got %d", len(results))
		}
		for i, r := range results {
			if r.Index != i || r.Value != i*i || r.ID != fmt.Sprintf("job-%d", i) {
				t.Errorf("result %d = %+v", i, r)
			}
		}
	})

	t.Run("respects max workers limit", func(t *testing.T) {
		pool := NewWorkerPool[struct{}](ctx, 2, false)

		var mu sync.Mutex
		current, maxConcurrent := 0, 0
		for i := 0; i < 5; i++ {
			pool.Submit(fmt.Sprint(i), func(context.Context) (struct{}, error) {
				mu.Lock()
				current++
				if current > maxConcurrent {
					maxConcurrent = current
				}
				mu.Unlock()

				time.Sleep(10 * time.Millisecond)

				mu.Lock()
				current--
				mu.Unlock()
				return struct{}{}, nil
			})
		}
		pool.Wait()

		if maxConcurrent > 2 {
			t.Errorf("expected at most 2 concurrent jobs, got %d", maxConcurrent)
		}
	})

	t.Run("unlimited workers", func(t *testing.T) {
		pool := NewWorkerPool[int](ctx, 0, false)
		for i := 0; i < 4; i++ {
			n := i
			pool.Submit(fmt.Sprint(n), func(context.Context) (int, error) { return n, nil })
		}
		results, _ := pool.Wait()
		if len(results) != 4 {
			t.Errorf("expected 4 results, got %d", len(results))
		}
	})
}

func TestWorkerPool_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("errors are collected without failFast", func(t *testing.T) {
		pool := NewWorkerPool[int](ctx, 2, false)
		boom := errors.New("boom")
		pool.Submit("bad", func(context.Context) (int, error) { return 0, boom })
		pool.Submit("good", func(context.Context) (int, error) { return 1, nil })

		results, errs := pool.Wait()
		if len(errs) != 1 || !errors.Is(errs[0], boom) {
			t.Fatalf("errs = %v, want [boom]", errs)
		}
		if results[1].Err != nil || results[1].Value != 1 {
			t.Errorf("good job result = %+v", results[1])
		}
	})

	t.Run("failFast skips queued jobs", func(t *testing.T) {
		pool := NewWorkerPool[int](ctx, 1, true)
		pool.Submit("first", func(context.Context) (int, error) { return 0, errors.New("fail") })
		// Give the first job time to take the only slot and fail.
		time.Sleep(20 * time.Millisecond)
		ran := false
		pool.Submit("second", func(context.Context) (int, error) {
			ran = true
			return 0, nil
		})

		results, errs := pool.Wait()
		if len(errs) != 1 {
			t.Errorf("errs = %v, want one error", errs)
		}
		if ran {
			t.Error("second job ran after fail-fast cancellation")
		}
		if !results[1].Skipped || !errors.Is(results[1].Err, context.Canceled) {
			t.Errorf("second result = %+v, want skipped", results[1])
		}
	})
}

func TestWorkerPool_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool[int](ctx, 1, false)

	started := make(chan struct{})
	pool.Submit("blocking", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started
	pool.Submit("queued", func(context.Context) (int, error) { return 1, nil })
	cancel()

	results, _ := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("blocking job err = %v", results[0].Err)
	}
	if !results[1].Skipped {
		t.Errorf("queued job = %+v, want skipped", results[1])
	}
}
