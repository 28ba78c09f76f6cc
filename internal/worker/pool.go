// Package worker provides the parallel fan-out used by the pipeline's
// decode, composite, and reduce stages.
package worker

import (
	"context"
	"sync"
	"time"
)

// Task is one unit of stage work. Tasks within a stage operate on disjoint
// keys, so Run needs no locking.
type Task struct {
	// Label identifies the task in logs and results.
	Label string
	Run   func(ctx context.Context) error
}

// Result is the outcome of one task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	OnProgress ProgressFunc
}

// Pool runs stage tasks in parallel and gathers their results.
type Pool struct {
	workers    int
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers, onProgress: cfg.OnProgress}
}

// Run executes all tasks and returns their results. It blocks until every
// task completes; on context cancellation the remaining tasks report the
// context error without running.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
			}
		}
		close(taskCh)
	}()

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})
	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{Task: task, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		err := task.Run(ctx)
		results <- Result{Task: task, Err: err, Elapsed: time.Since(start)}
	}
}
