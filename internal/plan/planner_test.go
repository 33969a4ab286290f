package plan

import (
	"errors"
	"testing"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

func newTestPlanner(minQ, maxQ int) *Planner {
	return NewPlanner(model.ResearchConfig{MinQueries: minQ, MaxQueries: maxQ})
}

func TestPlan_FirstIterationVariations(t *testing.T) {
	p := newTestPlanner(5, 15)
	sess := &model.Session{Topic: "rust async runtimes"}

	queries, err := p.Plan(sess)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(queries) < 5 {
		t.Fatalf("expected at least 5 queries on iteration 1, got %d", len(queries))
	}

	categories := make(map[model.SourceCategory]bool)
	strategies := make(map[string]bool)
	for i, q := range queries {
		if q.Priority != i {
			t.Errorf("query %d: priority %d, want batch order", i, q.Priority)
		}
		categories[q.Category] = true
		strategies[q.Strategy] = true
	}
	for _, cat := range model.AllCategories() {
		if !categories[cat] {
			t.Errorf("iteration 1 batch missing category %s", cat)
		}
	}
	for _, s := range []string{"terminology", "problem-solution", "comparison", "site-restriction", "recency"} {
		if !strategies[s] {
			t.Errorf("iteration 1 batch missing strategy %s", s)
		}
	}
}

func TestPlan_ClampsToMaxQueries(t *testing.T) {
	p := newTestPlanner(5, 6)
	queries, err := p.Plan(&model.Session{Topic: "topic"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(queries) != 6 {
		t.Errorf("expected batch clamped to 6, got %d", len(queries))
	}
}

func TestPlan_NeverReissuesExecutedQueries(t *testing.T) {
	p := newTestPlanner(5, 15)
	topic := "rust async runtimes"

	first, err := p.Plan(&model.Session{Topic: topic})
	if err != nil {
		t.Fatalf("plan iteration 1: %v", err)
	}

	// Record half the batch as executed, leave a gap so planning continues
	sess := &model.Session{
		Topic: topic,
		Iterations: []model.Iteration{{
			Seq:     1,
			Queries: first[:len(first)/2],
			Gaps: []model.Gap{{
				Kind:   model.GapOpenQuestion,
				Detail: "tokio scheduler fairness details",
			}},
		}},
	}

	second, err := p.Plan(sess)
	if err != nil {
		t.Fatalf("plan iteration 2: %v", err)
	}

	executed := sess.ExecutedHashes()
	for _, q := range second {
		if executed[q.Hash()] {
			t.Errorf("re-issued executed query %q", q.Text)
		}
	}
}

func TestPlan_GapDriven(t *testing.T) {
	p := newTestPlanner(5, 15)
	sess := &model.Session{
		Topic: "topic",
		Iterations: []model.Iteration{{
			Seq:  1,
			Halt: model.HaltDecision{NextFocus: "memory overhead under load"},
			Findings: []model.Finding{
				{ID: "f-low", Statement: "scheduler latency is unbounded under contention", Confidence: model.ConfidenceLow},
				{ID: "f-disp", Statement: "work stealing improves throughput", Disputed: true},
			},
			Gaps: []model.Gap{
				{Kind: model.GapUncoveredCategory, Category: model.CategoryAcademic},
				{Kind: model.GapLowConfidence, FindingID: "f-low"},
				{Kind: model.GapContradiction, FindingID: "f-disp"},
				{Kind: model.GapOpenQuestion, Detail: "how are timers multiplexed"},
			},
		}},
	}

	queries, err := p.Plan(sess)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if queries[0].Text != "memory overhead under load" || queries[0].Strategy != "focus" {
		t.Errorf("expected next focus to lead the batch, got %+v", queries[0])
	}

	byStrategy := make(map[string]model.Query)
	for _, q := range queries {
		byStrategy[q.Strategy] = q
	}
	if q, ok := byStrategy["category"]; !ok || q.Category != model.CategoryAcademic {
		t.Errorf("expected a category query for the uncovered category, got %+v", q)
	}
	if q, ok := byStrategy["low-confidence"]; !ok || q.Text != "scheduler latency is unbounded under contention evidence" {
		t.Errorf("unexpected low-confidence query %+v", q)
	}
	if q, ok := byStrategy["contradiction"]; !ok || q.Text != "work stealing improves throughput debate" {
		t.Errorf("unexpected contradiction query %+v", q)
	}
	if q, ok := byStrategy["open-question"]; !ok || q.Text != "how are timers multiplexed" {
		t.Errorf("unexpected open-question query %+v", q)
	}
}

func TestPlan_FallsBackToUnexploredWhenGapQueriesExhausted(t *testing.T) {
	p := newTestPlanner(5, 15)

	// The only gap repeats a query already executed, but three
	// categories have never been queried
	sess := &model.Session{
		Topic: "topic",
		Iterations: []model.Iteration{{
			Seq: 1,
			Queries: []model.Query{
				{Text: "how are timers multiplexed", Category: model.CategoryPrimaryTechnical},
				{Text: "topic latest news", Category: model.CategoryRealTime},
			},
			Gaps: []model.Gap{
				{Kind: model.GapOpenQuestion, Detail: "how are timers multiplexed"},
			},
		}},
	}

	queries, err := p.Plan(sess)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(queries) != 3 {
		t.Fatalf("expected 3 category queries for the unexplored categories, got %d", len(queries))
	}
	for _, q := range queries {
		if q.Strategy != "category" {
			t.Errorf("query %q: strategy %s, want category", q.Text, q.Strategy)
		}
	}
}

func TestPlan_EmptyPlanWhenExhausted(t *testing.T) {
	p := newTestPlanner(5, 15)
	topic := "topic"

	first, err := p.Plan(&model.Session{Topic: topic})
	if err != nil {
		t.Fatalf("plan iteration 1: %v", err)
	}

	// All variations executed, no gaps: the fallback category queries
	// share text with executed variations, so nothing new remains.
	sess := &model.Session{
		Topic: topic,
		Iterations: []model.Iteration{{
			Seq:     1,
			Queries: first,
		}},
	}

	_, err = p.Plan(sess)
	var emptyErr *model.EmptyPlanError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyPlanError, got %v", err)
	}
}

func TestPlan_DeduplicatesByNormalizedText(t *testing.T) {
	p := newTestPlanner(5, 15)
	sess := &model.Session{
		Topic: "topic",
		Iterations: []model.Iteration{{
			Seq: 1,
			Gaps: []model.Gap{
				{Kind: model.GapOpenQuestion, Detail: "How Are Timers Multiplexed?"},
				{Kind: model.GapOpenQuestion, Detail: "how are timers multiplexed"},
			},
		}},
	}

	queries, err := p.Plan(sess)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	count := 0
	for _, q := range queries {
		if model.NormalizeQueryText(q.Text) == "how are timers multiplexed" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected near-duplicate gap queries collapsed to 1, got %d", count)
	}
}
