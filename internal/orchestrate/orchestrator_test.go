package orchestrate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/provider"
	"github.com/SwaroopMeher/deep-research-agent/internal/session"
)

func testConfig() *model.Config {
	return &model.Config{
		Concurrency: model.ConcurrencyConfig{SearchWorkers: 2, DiveWorkers: 2},
		Research: model.ResearchConfig{
			MaxIterations:  5,
			MinQueries:     5,
			MaxQueries:     15,
			DiveBudget:     8,
			SearchRetries:  1,
			TaskTimeout:    5 * time.Second,
			MaxValidations: 5,
		},
	}
}

// page is one scripted source: where the searcher finds it and what
// claim its body yields
type page struct {
	url   string
	claim string
}

// fakeCapabilities backs all three external capabilities with a script
type fakeCapabilities struct {
	mu       sync.Mutex
	pages    []page // all pages returned for every query
	drip     bool   // hand out one page per search call instead
	next     int
	onSearch func() // observes the orchestrator mid-search
}

func (c *fakeCapabilities) Search(_ context.Context, q model.Query) ([]model.SearchResult, error) {
	if c.onSearch != nil {
		c.onSearch()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var batch []page
	if c.drip {
		if c.next < len(c.pages) {
			batch = c.pages[c.next : c.next+1]
			c.next++
		}
	} else {
		batch = c.pages
	}

	results := make([]model.SearchResult, len(batch))
	for i, p := range batch {
		results[i] = model.SearchResult{
			QueryHash: q.Hash(),
			QueryText: q.Text,
			URL:       p.url,
			Title:     p.claim,
			Relevance: 4.5,
			Priority:  model.DiveHigh,
			Category:  model.CategoryPrimaryTechnical,
		}
	}
	return results, nil
}

func (c *fakeCapabilities) Fetch(_ context.Context, url string) (*model.Document, error) {
	now := time.Now().UTC()
	return &model.Document{
		URL:         url,
		Body:        "<html><body><p>reference page</p></body></html>",
		ContentType: "text/html",
		FetchedAt:   now,
		PublishedAt: &now,
	}, nil
}

func (c *fakeCapabilities) Extract(_ context.Context, doc *model.Document, _ model.SourceCategory) ([]model.Claim, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pages {
		if p.url == doc.URL {
			return []model.Claim{{Text: p.claim}}, nil, nil
		}
	}
	return nil, nil, nil
}

func newTestOrchestrator(t *testing.T, cfg *model.Config, caps *fakeCapabilities) (*Orchestrator, *session.Store) {
	t.Helper()
	store := session.NewStore(t.TempDir())
	orch := New(cfg, store, &provider.Capabilities{
		Searcher:  caps,
		Fetcher:   caps,
		Extractor: caps,
	})
	return orch, store
}

func TestRun_HaltsAnsweredHigh(t *testing.T) {
	claim := "Redis is faster than Memcached for small payloads"
	caps := &fakeCapabilities{pages: []page{
		{url: "https://a.example/bench", claim: claim},
		{url: "https://b.example/review", claim: claim},
		{url: "https://c.example/report", claim: claim},
	}}

	orch, _ := newTestOrchestrator(t, testConfig(), caps)
	sess, err := orch.Init("redis vs memcached", "is Redis faster than Memcached for small payloads")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	final, err := orch.Run(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if final.Status != model.StatusHalted {
		t.Fatalf("status = %s, want halted", final.Status)
	}
	if got := final.HaltReason(); got != model.HaltAnsweredHigh {
		t.Fatalf("halt reason = %s, want answered-high", got)
	}
	if len(final.Iterations) != 1 {
		t.Errorf("expected a single iteration, got %d", len(final.Iterations))
	}

	findings := final.Findings()
	var primary *model.Finding
	for i := range findings {
		if findings[i].Primary {
			primary = &findings[i]
		}
	}
	if primary == nil {
		t.Fatal("no primary finding")
	}
	if primary.Confidence != model.ConfidenceHigh {
		t.Errorf("primary confidence = %s, want high", primary.Confidence)
	}
	if len(primary.Supporting) != 3 {
		t.Errorf("supporting = %d, want 3", len(primary.Supporting))
	}
}

func TestPhase_PublishedDuringRunClearedAfter(t *testing.T) {
	claim := "Redis is faster than Memcached for small payloads"
	caps := &fakeCapabilities{pages: []page{
		{url: "https://a.example/bench", claim: claim},
		{url: "https://b.example/review", claim: claim},
		{url: "https://c.example/report", claim: claim},
	}}

	orch, _ := newTestOrchestrator(t, testConfig(), caps)

	var once sync.Once
	var observed model.Phase
	caps.onSearch = func() {
		once.Do(func() { observed = orch.Phase() })
	}

	if orch.Phase() != "" {
		t.Error("idle orchestrator must publish no phase")
	}

	sess, err := orch.Init("redis vs memcached", "is Redis faster than Memcached for small payloads")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := orch.Run(context.Background(), sess.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if observed != model.PhaseSearching {
		t.Errorf("phase during search = %q, want searching", observed)
	}
	if orch.Phase() != "" {
		t.Error("phase must clear once the run finishes")
	}
}

func TestRun_HaltsSaturation(t *testing.T) {
	// No results anywhere: two consecutive iterations change nothing.
	// The primary question differs from the topic so iteration 2 still
	// has a fresh focus query to issue.
	caps := &fakeCapabilities{}

	orch, _ := newTestOrchestrator(t, testConfig(), caps)
	sess, err := orch.Init("obscure widget protocol", "why do widget frobnicators stall under load")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	final, err := orch.Run(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if final.HaltReason() != model.HaltSaturation {
		t.Fatalf("halt reason = %s, want saturation", final.HaltReason())
	}
	if len(final.Iterations) != 2 {
		t.Errorf("expected saturation after iteration 2, got %d iterations", len(final.Iterations))
	}
}

func TestRun_HaltsIterationLimit(t *testing.T) {
	// Each search call surfaces one new unrelated source, so every
	// iteration makes progress and only the cap stops the loop.
	caps := &fakeCapabilities{
		drip: true,
		pages: []page{
			{url: "https://h1.example/a", claim: "alpha brokers batch outgoing writes"},
			{url: "https://h2.example/b", claim: "beta caches compress stored values"},
			{url: "https://h3.example/c", claim: "gamma queues drop duplicate envelopes"},
			{url: "https://h4.example/d", claim: "delta proxies terminate idle streams"},
			{url: "https://h5.example/e", claim: "epsilon shards rebalance during upgrades"},
			{url: "https://h6.example/f", claim: "zeta journals checkpoint every minute"},
			{url: "https://h7.example/g", claim: "eta planners reorder join trees"},
			{url: "https://h8.example/h", claim: "theta meshes retry failed probes"},
		},
	}

	cfg := testConfig()
	cfg.Research.MaxIterations = 2

	orch, _ := newTestOrchestrator(t, cfg, caps)
	sess, err := orch.Init("distributed systems folklore", "which component is most fragile in production")
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	final, err := orch.Run(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if final.HaltReason() != model.HaltIterationLimit {
		t.Fatalf("halt reason = %s, want iteration-limit", final.HaltReason())
	}
	if len(final.Iterations) != 2 {
		t.Errorf("expected exactly 2 iterations at the cap, got %d", len(final.Iterations))
	}
}

func TestRunIteration_RefusesHaltedSession(t *testing.T) {
	caps := &fakeCapabilities{}
	orch, _ := newTestOrchestrator(t, testConfig(), caps)
	sess, _ := orch.Init("topic", "why do widget frobnicators stall under load")

	if _, err := orch.Run(context.Background(), sess.ID); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := orch.RunIteration(context.Background(), sess.ID); !errors.Is(err, model.ErrSessionHalted) {
		t.Errorf("expected ErrSessionHalted, got %v", err)
	}
}

func TestRunIteration_EmptyPlanLeavesSessionActive(t *testing.T) {
	// Primary question equals the topic, so after iteration 1 every
	// candidate query is already executed and no gap adds a new one.
	caps := &fakeCapabilities{}
	orch, store := newTestOrchestrator(t, testConfig(), caps)
	sess, _ := orch.Init("topic", "")

	if _, err := orch.RunIteration(context.Background(), sess.ID); err != nil {
		t.Fatalf("iteration 1: %v", err)
	}

	_, err := orch.RunIteration(context.Background(), sess.ID)
	var emptyErr *model.EmptyPlanError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyPlanError, got %v", err)
	}

	loaded, err := store.Load(sess.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Status != model.StatusActive {
		t.Errorf("status = %s, an empty plan must leave the session active", loaded.Status)
	}
	if len(loaded.Iterations) != 1 {
		t.Errorf("expected no iteration appended on empty plan, got %d", len(loaded.Iterations))
	}
}

func TestStop_ClosesByUserRequest(t *testing.T) {
	caps := &fakeCapabilities{pages: []page{
		{url: "https://a.example/x", claim: "alpha brokers batch outgoing writes"},
	}}
	orch, _ := newTestOrchestrator(t, testConfig(), caps)
	sess, _ := orch.Init("topic", "question")

	orch.Stop()

	final, err := orch.RunIteration(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("iteration: %v", err)
	}
	if final.Status != model.StatusHaltedByRequest {
		t.Fatalf("status = %s, want halted-by-request", final.Status)
	}
	if final.HaltReason() != model.HaltUserRequest {
		t.Errorf("halt reason = %s, want user-request", final.HaltReason())
	}
}

func TestRun_ResumesFromPersistedLog(t *testing.T) {
	caps := &fakeCapabilities{}
	cfg := testConfig()
	orch, store := newTestOrchestrator(t, cfg, caps)
	sess, _ := orch.Init("obscure widget protocol", "why do widget frobnicators stall under load")

	if _, err := orch.RunIteration(context.Background(), sess.ID); err != nil {
		t.Fatalf("iteration 1: %v", err)
	}

	// A second orchestrator over the same store picks up mid-session
	// from the log alone.
	resumed := New(cfg, store, &provider.Capabilities{Searcher: caps, Fetcher: caps, Extractor: caps})
	final, err := resumed.Run(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if final.HaltReason() != model.HaltSaturation {
		t.Errorf("halt reason = %s, want saturation after resume", final.HaltReason())
	}
	if len(final.Iterations) != 2 {
		t.Errorf("expected 2 iterations total, got %d", len(final.Iterations))
	}
}

func TestFoldWith_DoesNotMutateBase(t *testing.T) {
	sess := &model.Session{
		ID:         "s",
		Iterations: []model.Iteration{{Seq: 1}},
	}
	folded := foldWith(sess, model.Iteration{Seq: 2})

	if len(folded.Iterations) != 2 {
		t.Fatalf("folded iterations = %d, want 2", len(folded.Iterations))
	}
	if len(sess.Iterations) != 1 {
		t.Errorf("base session mutated: %d iterations", len(sess.Iterations))
	}
}
