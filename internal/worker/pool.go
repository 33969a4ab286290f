package worker

import (
	"context"
	"sync"
)

// Task is a unit of work executed by the pool. Tasks must not share
// mutable state; everything a task needs is captured at construction.
type Task interface {
	Run(ctx context.Context) Outcome
}

// Outcome is the settled result of a task
type Outcome interface {
	Err() error
}

// Pool fans a batch of independent tasks out to a bounded set of
// workers and joins them. A batch is complete only when every
// submitted task has settled; cancellation skips tasks not yet
// started, but outcomes of tasks that did run are always returned.
type Pool struct {
	size int
}

// NewPool creates a pool with the given in-flight bound
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{size: size}
}

// Size returns the in-flight bound
func (p *Pool) Size() int {
	return p.size
}

// Run executes all tasks and blocks until the batch settles
func (p *Pool) Run(ctx context.Context, tasks []Task) []Outcome {
	if len(tasks) == 0 {
		return nil
	}

	queue := make(chan Task)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var outcomes []Outcome

	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				outcome := task.Run(ctx)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break feed
		case queue <- task:
		}
	}
	close(queue)

	wg.Wait()
	return outcomes
}
