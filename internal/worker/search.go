package worker

import (
	"context"
	"time"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// Searcher is the external search capability as the runner needs it
type Searcher interface {
	Search(ctx context.Context, query model.Query) ([]model.SearchResult, error)
}

// SearchRunner executes a query batch concurrently. One query failing
// never aborts the batch: each query is retried up to the budget, then
// recorded as dropped with its failure reason.
type SearchRunner struct {
	searcher    Searcher
	pool        *Pool
	retries     int
	taskTimeout time.Duration
}

// NewSearchRunner creates a runner with concurrency bound W and retry
// budget R per query
func NewSearchRunner(searcher Searcher, workers, retries int, taskTimeout time.Duration) *SearchRunner {
	if retries <= 0 {
		retries = 1
	}
	return &SearchRunner{
		searcher:    searcher,
		pool:        NewPool(workers),
		retries:     retries,
		taskTimeout: taskTimeout,
	}
}

// searchOutcome is the settled state of one query
type searchOutcome struct {
	query    model.Query
	results  []model.SearchResult
	attempts int
	err      error
}

func (o *searchOutcome) Err() error { return o.err }

// searchTask retries one query until success or budget exhaustion
type searchTask struct {
	query  model.Query
	runner *SearchRunner
}

func (t *searchTask) Run(ctx context.Context) Outcome {
	outcome := &searchOutcome{query: t.query}

	for attempt := 1; attempt <= t.runner.retries; attempt++ {
		outcome.attempts = attempt

		attemptCtx := ctx
		cancel := func() {}
		if t.runner.taskTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, t.runner.taskTimeout)
		}
		results, err := t.runner.searcher.Search(attemptCtx, t.query)
		cancel()

		if err == nil {
			outcome.results = results
			outcome.err = nil
			return outcome
		}
		outcome.err = err

		// A cancelled batch is not retryable
		if ctx.Err() != nil {
			return outcome
		}
	}
	return outcome
}

// Run executes the batch and returns the union of results plus the
// queries dropped after exhausting their retry budget
func (r *SearchRunner) Run(ctx context.Context, queries []model.Query) ([]model.SearchResult, []model.DroppedQuery) {
	tasks := make([]Task, len(queries))
	for i, q := range queries {
		tasks[i] = &searchTask{query: q, runner: r}
	}

	var results []model.SearchResult
	var dropped []model.DroppedQuery

	for _, outcome := range r.pool.Run(ctx, tasks) {
		so := outcome.(*searchOutcome)
		if so.err != nil {
			dropped = append(dropped, model.DroppedQuery{
				Query:    so.query,
				Reason:   so.err.Error(),
				Attempts: so.attempts,
			})
			continue
		}
		results = append(results, so.results...)
	}
	return results, dropped
}
