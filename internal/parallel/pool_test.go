package parallel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_Empty(t *testing.T) {
	results := Run(context.Background(), []int{}, 4, func(_ context.Context, n int) int {
		return n * 2
	}, nil)

	if results != nil {
		t.Errorf("expected nil for empty input, got %v", results)
	}
}

func TestRun_Sequential(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var callbackCount int

	results := Run(context.Background(), items, 1, func(_ context.Context, n int) int {
		return n * 2
	}, func(completed, total int, _ int) {
		callbackCount++
		if completed != callbackCount {
			t.Errorf("expected completed=%d, got %d", callbackCount, completed)
		}
		if total != 5 {
			t.Errorf("expected total=5, got %d", total)
		}
	})

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	// Sequential mode preserves input order.
	for i, r := range results {
		if r != items[i]*2 {
			t.Errorf("results[%d] = %d, want %d", i, r, items[i]*2)
		}
	}
	if callbackCount != 5 {
		t.Errorf("expected 5 callbacks, got %d", callbackCount)
	}
}

func TestRun_Parallel(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	results := Run(context.Background(), items, 8, func(_ context.Context, n int) int {
		return n + 100
	}, nil)

	if len(results) != 50 {
		t.Fatalf("expected 50 results, got %d", len(results))
	}
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		seen[r] = true
	}
	for _, n := range items {
		if !seen[n+100] {
			t.Errorf("missing result for item %d", n)
		}
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	const workers = 3
	var active, peak atomic.Int32

	items := make([]int, 20)
	Run(context.Background(), items, workers, func(_ context.Context, _ int) int {
		cur := active.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return 0
	}, nil)

	if got := peak.Load(); got > workers {
		t.Errorf("concurrency peaked at %d, limit is %d", got, workers)
	}
}

func TestRun_CallbackIsSequential(t *testing.T) {
	// The callback must never run concurrently with itself even when
	// workers complete simultaneously.
	var inCallback atomic.Int32
	items := make([]int, 30)

	Run(context.Background(), items, 8, func(_ context.Context, n int) int {
		return n
	}, func(completed, total int, _ int) {
		if inCallback.Add(1) != 1 {
			t.Error("callback ran concurrently")
		}
		time.Sleep(time.Millisecond)
		inCallback.Add(-1)
	})
}

func TestRun_CancellationStopsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	items := make([]int, 100)

	results := Run(ctx, items, 2, func(ctx context.Context, _ int) int {
		if started.Add(1) == 2 {
			cancel()
		}
		time.Sleep(5 * time.Millisecond)
		return 0
	}, nil)

	// In-flight work finishes and is collected, but most of the batch is
	// never started.
	if len(results) == 0 {
		t.Error("expected results from in-flight workers")
	}
	if int(started.Load()) == len(items) {
		t.Error("expected cancellation to stop submission")
	}
}

func TestRun_WorkerClampedToItems(t *testing.T) {
	results := Run(context.Background(), []int{1, 2}, 64, func(_ context.Context, n int) int {
		return n
	}, nil)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestRun_ZeroWorkersRunsSequentially(t *testing.T) {
	results := Run(context.Background(), []int{1, 2, 3}, 0, func(_ context.Context, n int) int {
		return n * n
	}, nil)
	want := []int{1, 4, 9}
	for i, r := range results {
		if r != want[i] {
			t.Errorf("results[%d] = %d, want %d", i, r, want[i])
		}
	}
}
