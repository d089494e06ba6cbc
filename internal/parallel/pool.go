// Package parallel provides a generic bounded worker pool for concurrent
// processing with context cancellation.
package parallel

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Run executes fn for each item using at most workers concurrent
// goroutines. The onResult callback is called sequentially from a single
// goroutine as results complete, making it safe to write to stdout
// without additional synchronization. Results are returned in completion
// order.
//
// When ctx is cancelled, no further items are submitted; items already
// running finish (fn is expected to observe ctx itself for early exit)
// and their results are still collected and returned.
func Run[T any, R any](ctx context.Context, items []T, workers int, fn func(context.Context, T) R, onResult func(completed, total int, result R)) []R {
	total := len(items)
	if total == 0 {
		return nil
	}

	// Clamp workers to [1, len(items)].
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	// Sequential fast-path.
	if workers == 1 {
		results := make([]R, 0, total)
		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			r := fn(ctx, item)
			results = append(results, r)
			if onResult != nil {
				onResult(len(results), total, r)
			}
		}
		return results
	}

	resultsCh := make(chan R, total)
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	// Submit items until done or cancelled, then close the results
	// channel once all in-flight workers finish.
	go func() {
		for _, item := range items {
			if err := sem.Acquire(ctx, 1); err != nil {
				break // cancelled: stop submitting new work
			}
			wg.Add(1)
			go func(item T) {
				defer wg.Done()
				defer sem.Release(1)
				resultsCh <- fn(ctx, item)
			}(item)
		}
		wg.Wait()
		close(resultsCh)
	}()

	// Collect results sequentially, calling onResult for each.
	results := make([]R, 0, total)
	for r := range resultsCh {
		results = append(results, r)
		if onResult != nil {
			onResult(len(results), total, r)
		}
	}

	return results
}
