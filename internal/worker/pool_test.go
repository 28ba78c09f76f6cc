package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// mockJobs builds n tasks that sleep for delay and fail for the labels in
// failLabels.
func mockJobs(n int, delay time.Duration, failLabels map[string]bool, callCount *atomic.Int32) []Task {
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		label := fmt.Sprintf("job-%d", i)
		tasks = append(tasks, Task{
			Label: label,
			Run: func(ctx context.Context) error {
				callCount.Add(1)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				if failLabels[label] {
					return errors.New("simulated failure")
				}
				return nil
			},
		})
	}
	return tasks
}

func TestPool_BasicExecution(t *testing.T) {
	var calls atomic.Int32
	tasks := mockJobs(3, 10*time.Millisecond, nil, &calls)

	pool := New(Config{Workers: 2})

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.Label, r.Err)
		}
	}

	if calls.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d job calls, got %d", len(tasks), calls.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	// Use a longer delay to ensure parallelism is tested
	var calls atomic.Int32
	tasks := mockJobs(8, 50*time.Millisecond, nil, &calls)

	pool := New(Config{Workers: 4})

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// With 4 workers and 8 tasks at 50ms each, should take ~100ms (2 batches)
	// Allow some margin for overhead
	maxExpected := 200 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	t.Logf("Processed %d tasks with %d workers in %v", len(tasks), 4, elapsed)
}

func TestPool_ErrorHandling(t *testing.T) {
	failLabel := "job-1"
	var calls atomic.Int32
	tasks := mockJobs(3, 10*time.Millisecond, map[string]bool{failLabel: true}, &calls)

	pool := New(Config{Workers: 2})

	results := pool.Run(context.Background(), tasks)

	// Should still get all results
	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	// Count successes and failures
	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Label != failLabel {
				t.Errorf("Unexpected failure for %s", r.Task.Label)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	var calls atomic.Int32
	tasks := mockJobs(10, 100*time.Millisecond, nil, &calls)

	pool := New(Config{Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after a short time
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	// Should return early due to cancellation
	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}

	// Some results may have errors due to cancellation
	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}

	t.Logf("Completed with %d results (%d cancelled) in %v", len(results), cancelledCount, elapsed)
}

func TestPool_ProgressCallback(t *testing.T) {
	var calls atomic.Int32
	tasks := mockJobs(3, 10*time.Millisecond, nil, &calls)

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers: 2,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	pool.Run(context.Background(), tasks)

	// Should have received progress callbacks
	if progressCalls.Load() == 0 {
		t.Error("Expected progress callbacks, got none")
	}

	// Final callback should show all completed
	if lastCompleted != len(tasks) {
		t.Errorf("Expected lastCompleted=%d, got %d", len(tasks), lastCompleted)
	}
	if lastTotal != len(tasks) {
		t.Errorf("Expected lastTotal=%d, got %d", len(tasks), lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	pool := New(Config{Workers: 2})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
}
