package orchestrate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SwaroopMeher/deep-research-agent/internal/analyze"
	"github.com/SwaroopMeher/deep-research-agent/internal/halt"
	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/plan"
	"github.com/SwaroopMeher/deep-research-agent/internal/provider"
	"github.com/SwaroopMeher/deep-research-agent/internal/session"
	"github.com/SwaroopMeher/deep-research-agent/internal/synth"
	"github.com/SwaroopMeher/deep-research-agent/internal/validate"
	"github.com/SwaroopMeher/deep-research-agent/internal/worker"
)

// Orchestrator drives the research loop: it owns phase sequencing,
// is the only writer to the session store, and appends state solely at
// phase boundaries. Worker pools fan out inside a phase; phases are
// strictly sequential within an iteration.
type Orchestrator struct {
	store       *session.Store
	planner     *plan.Planner
	runner      *worker.SearchRunner
	analyzer    *analyze.Analyzer
	synthesizer *synth.Synthesizer
	validator   *validate.Validator
	evaluator   *halt.Evaluator

	phase   atomic.Value // model.Phase; empty when idle
	stopped atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc // cancels in-flight pool tasks on Stop
}

// New wires an orchestrator from configuration, a store, and the
// external capabilities
func New(cfg *model.Config, store *session.Store, caps *provider.Capabilities) *Orchestrator {
	analyzer := analyze.NewAnalyzer(
		caps.Fetcher,
		caps.Extractor,
		cfg.Research.DiveBudget,
		cfg.Concurrency.DiveWorkers,
		cfg.Research.TaskTimeout,
	)

	return &Orchestrator{
		store:   store,
		planner: plan.NewPlanner(cfg.Research),
		runner: worker.NewSearchRunner(
			caps.Searcher,
			cfg.Concurrency.SearchWorkers,
			cfg.Research.SearchRetries,
			cfg.Research.TaskTimeout,
		),
		analyzer:    analyzer,
		synthesizer: synth.NewSynthesizer(),
		validator:   validate.NewValidator(caps.Searcher, analyzer, cfg.Research.MaxValidations),
		evaluator:   halt.NewEvaluator(cfg.Research.MaxIterations),
	}
}

// Init creates a new session for the topic
func (o *Orchestrator) Init(topic, primaryQuestion string) (*model.Session, error) {
	return o.store.Create(topic, primaryQuestion)
}

// Stop requests a halt. It is observed at the next phase boundary;
// in-flight tasks are cancelled and settled results are preserved.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()
}

// Phase reports the phase currently executing, or empty when idle
func (o *Orchestrator) Phase() model.Phase {
	if p, ok := o.phase.Load().(model.Phase); ok {
		return p
	}
	return ""
}

// Run loops iterations until the session halts
func (o *Orchestrator) Run(ctx context.Context, sessionID string) (*model.Session, error) {
	for {
		sess, err := o.RunIteration(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.Status != model.StatusActive {
			return sess, nil
		}
	}
}

// RunIteration executes one full iteration and appends it to the
// session log. An EmptyPlanError leaves the session active and
// unchanged; a PersistenceError means the iteration was not recorded
// and state must not be considered advanced.
func (o *Orchestrator) RunIteration(ctx context.Context, sessionID string) (*model.Session, error) {
	sess, err := o.store.Load(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusActive {
		return nil, model.ErrSessionHalted
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
		o.phase.Store(model.Phase(""))
	}()

	pending := model.Iteration{
		Seq:       len(sess.Iterations) + 1,
		StartedAt: time.Now().UTC(),
	}

	// PLANNING
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	queries, err := o.planner.Plan(sess)
	if err != nil {
		return nil, err
	}
	pending.Queries = queries

	// SEARCHING: fan out, join, absorb per-query failures
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	pending.Results, pending.Dropped = o.runner.Run(runCtx, queries)

	// ANALYZING: deep-dive the selected results, skipping anything
	// already in the corpus
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	exclude := make(map[string]bool)
	for _, src := range sess.Corpus() {
		exclude[model.CanonicalURL(src.URL)] = true
	}
	pending.Analyzed = o.analyzer.Analyze(runCtx, pending.Results, exclude)

	// SYNTHESIZING: always over the full corpus
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	folded := foldWith(sess, pending)
	pending.Findings, pending.Gaps = o.synthesizer.Synthesize(
		sess.PrimaryQuestion,
		folded.Corpus(),
		folded.Coverage(),
	)

	// VALIDATING
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	pending.Validations = o.validator.Validate(runCtx, folded, pending.Findings)
	pending.Findings = validate.Apply(pending.Findings, pending.Validations)

	// DECIDING
	o.nextPhase()
	if o.stopRequested() {
		return o.closeByRequest(sess, pending)
	}
	pending.Halt = o.evaluator.Decide(sess, pending.Findings, pending.Gaps)

	return o.close(sess, pending)
}

// nextPhase steps the published phase through the iteration state
// machine; from idle or halted the cycle restarts at planning
func (o *Orchestrator) nextPhase() {
	next, err := halt.NextPhase(o.Phase())
	if err != nil {
		next = model.PhasePlanning
	}
	o.phase.Store(next)
}

// close appends the iteration and returns the advanced session fold
func (o *Orchestrator) close(sess *model.Session, pending model.Iteration) (*model.Session, error) {
	pending.ClosedAt = time.Now().UTC()
	if err := o.store.AppendIteration(sess.ID, pending); err != nil {
		return nil, err
	}
	return o.store.Load(sess.ID)
}

// closeByRequest records a user-requested halt, preserving whatever
// settled before the stop signal was observed
func (o *Orchestrator) closeByRequest(sess *model.Session, pending model.Iteration) (*model.Session, error) {
	o.phase.Store(model.PhaseHalted)
	pending.Halt = model.HaltDecision{Halt: true, Reason: model.HaltUserRequest}
	return o.close(sess, pending)
}

func (o *Orchestrator) stopRequested() bool {
	return o.stopped.Load()
}

// foldWith builds a read-only view of the session as if pending were
// already closed, for corpus and coverage folding mid-iteration
func foldWith(sess *model.Session, pending model.Iteration) *model.Session {
	folded := *sess
	folded.Iterations = make([]model.Iteration, 0, len(sess.Iterations)+1)
	folded.Iterations = append(folded.Iterations, sess.Iterations...)
	folded.Iterations = append(folded.Iterations, pending)
	return &folded
}
