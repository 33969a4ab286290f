package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingOutcome struct {
	id  int
	err error
}

func (o *countingOutcome) Err() error { return o.err }

type countingTask struct {
	id       int
	inflight *int32
	peak     *int32
	mu       *sync.Mutex
	delay    time.Duration
}

func (t *countingTask) Run(ctx context.Context) Outcome {
	cur := atomic.AddInt32(t.inflight, 1)
	t.mu.Lock()
	if cur > *t.peak {
		*t.peak = cur
	}
	t.mu.Unlock()
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	atomic.AddInt32(t.inflight, -1)
	return &countingOutcome{id: t.id}
}

func TestPool_RunsAllTasks(t *testing.T) {
	pool := NewPool(3)

	tasks := make([]Task, 10)
	var inflight, peak int32
	var mu sync.Mutex
	for i := range tasks {
		tasks[i] = &countingTask{id: i, inflight: &inflight, peak: &peak, mu: &mu}
	}

	outcomes := pool.Run(context.Background(), tasks)
	if len(outcomes) != 10 {
		t.Fatalf("expected 10 outcomes, got %d", len(outcomes))
	}

	seen := make(map[int]bool)
	for _, o := range outcomes {
		seen[o.(*countingOutcome).id] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected every task to settle exactly once, saw %d distinct", len(seen))
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	tasks := make([]Task, 8)
	var inflight, peak int32
	var mu sync.Mutex
	for i := range tasks {
		tasks[i] = &countingTask{id: i, inflight: &inflight, peak: &peak, mu: &mu, delay: 10 * time.Millisecond}
	}

	pool.Run(context.Background(), tasks)

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("observed %d tasks in flight, bound is 2", peak)
	}
}

func TestPool_CancelSkipsUnstartedTasks(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})

	tasks := []Task{
		taskFunc(func(context.Context) Outcome {
			close(started)
			<-release
			return &countingOutcome{id: 0}
		}),
		taskFunc(func(context.Context) Outcome {
			return &countingOutcome{id: 1}
		}),
		taskFunc(func(context.Context) Outcome {
			return &countingOutcome{id: 2}
		}),
	}

	go func() {
		<-started
		cancel()
		close(release)
	}()

	outcomes := pool.Run(ctx, tasks)
	if len(outcomes) >= len(tasks) {
		t.Errorf("expected unstarted tasks skipped after cancel, got %d outcomes", len(outcomes))
	}
	if len(outcomes) == 0 {
		t.Error("expected outcomes of started tasks to be returned")
	}
}

func TestPool_EmptyBatch(t *testing.T) {
	pool := NewPool(4)
	if outcomes := pool.Run(context.Background(), nil); outcomes != nil {
		t.Errorf("expected nil outcomes for empty batch, got %v", outcomes)
	}
}

func TestPool_SizeFloor(t *testing.T) {
	if got := NewPool(0).Size(); got != 1 {
		t.Errorf("expected pool size floored at 1, got %d", got)
	}
}

// taskFunc adapts a function to the Task interface for tests
type taskFunc func(ctx context.Context) Outcome

func (f taskFunc) Run(ctx context.Context) Outcome { return f(ctx) }

type errOutcome struct{ err error }

func (o *errOutcome) Err() error { return o.err }

func TestPool_MixedOutcomes(t *testing.T) {
	pool := NewPool(2)
	boom := errors.New("boom")

	tasks := []Task{
		taskFunc(func(context.Context) Outcome { return &errOutcome{} }),
		taskFunc(func(context.Context) Outcome { return &errOutcome{err: boom} }),
		taskFunc(func(context.Context) Outcome { return &errOutcome{} }),
	}

	var failed int
	for _, o := range pool.Run(context.Background(), tasks) {
		if o.Err() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 failed outcome, got %d", failed)
	}
}
