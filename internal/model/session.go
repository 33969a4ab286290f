package model

import "time"

// SessionStatus is the terminal state of a research session
type SessionStatus string

const (
	StatusActive          SessionStatus = "active"
	StatusHalted          SessionStatus = "halted"
	StatusHaltedByRequest SessionStatus = "halted-by-request"
)

// Phase is one step of the per-iteration state machine
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseSearching    Phase = "searching"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseValidating   Phase = "validating"
	PhaseDeciding     Phase = "deciding"
	PhaseHalted       Phase = "halted"
)

// HaltReason explains why the evaluator stopped a session
type HaltReason string

const (
	HaltAnsweredHigh   HaltReason = "answered-high"   // Primary question has a high-confidence, non-disputed finding
	HaltSaturation     HaltReason = "saturation"      // Two consecutive iterations changed nothing
	HaltIterationLimit HaltReason = "iteration-limit" // Configured maximum reached
	HaltConfirmed      HaltReason = "confirmed"       // Primary finding has 3+ independent sources
	HaltUserRequest    HaltReason = "user-request"    // Stop signal observed
)

// HaltDecision is the evaluator verdict recorded at the end of an iteration
type HaltDecision struct {
	Halt      bool       `json:"halt"`
	Reason    HaltReason `json:"reason,omitempty"`
	NextFocus string     `json:"next_focus,omitempty"` // Guidance for the next planning pass
}

// DroppedQuery records a query whose retry budget was exhausted
type DroppedQuery struct {
	Query    Query  `json:"query"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// Iteration is one closed pass of the research loop. Immutable once
// appended to the session log; corrections go into later iterations.
type Iteration struct {
	Seq         int                `json:"seq"`
	Queries     []Query            `json:"queries"`
	Results     []SearchResult     `json:"results"`
	Dropped     []DroppedQuery     `json:"dropped,omitempty"`
	Analyzed    []AnalyzedSource   `json:"analyzed"`
	Findings    []Finding          `json:"findings"` // Snapshot after synthesis and validation
	Gaps        []Gap              `json:"gaps,omitempty"`
	Validations []ValidationRecord `json:"validations,omitempty"`
	Halt        HaltDecision       `json:"halt"`
	StartedAt   time.Time          `json:"started_at"`
	ClosedAt    time.Time          `json:"closed_at"`
}

// Session is the single source of truth for one research run. All
// cumulative state below is derived by folding over closed iterations.
type Session struct {
	ID              string        `json:"id"`
	Topic           string        `json:"topic"`
	PrimaryQuestion string        `json:"primary_question"` // Defaults to the topic when not set explicitly
	CreatedAt       time.Time     `json:"created_at"`
	Status          SessionStatus `json:"status"`
	Iterations      []Iteration   `json:"iterations"`
}

// Findings returns the latest findings snapshot (last closed iteration)
func (s *Session) Findings() []Finding {
	if len(s.Iterations) == 0 {
		return nil
	}
	return s.Iterations[len(s.Iterations)-1].Findings
}

// Corpus folds every AnalyzedSource accumulated across all iterations,
// including sources discovered during validation passes
func (s *Session) Corpus() []AnalyzedSource {
	var corpus []AnalyzedSource
	for _, it := range s.Iterations {
		corpus = append(corpus, it.Analyzed...)
		for _, vr := range it.Validations {
			corpus = append(corpus, vr.NewSources...)
		}
	}
	return corpus
}

// ExecutedHashes returns every query hash issued in the session:
// planned queries, dropped queries (a dropped query still counts as
// issued), and validation re-confirmation queries
func (s *Session) ExecutedHashes() map[string]bool {
	hashes := make(map[string]bool)
	for _, it := range s.Iterations {
		for _, q := range it.Queries {
			hashes[q.Hash()] = true
		}
		for _, vr := range it.Validations {
			if vr.Query != "" {
				hashes[Query{Text: vr.Query}.Hash()] = true
			}
		}
	}
	return hashes
}

// Coverage folds per-category breadth over all iterations
func (s *Session) Coverage() []CoverageEntry {
	byCat := make(map[SourceCategory]*CoverageEntry)
	for _, cat := range AllCategories() {
		byCat[cat] = &CoverageEntry{Category: cat}
	}
	ensure := func(cat SourceCategory) *CoverageEntry {
		if e, ok := byCat[cat]; ok {
			return e
		}
		e := &CoverageEntry{Category: cat}
		byCat[cat] = e
		return e
	}
	for _, it := range s.Iterations {
		for _, q := range it.Queries {
			ensure(q.Category).QueriesExecuted++
		}
		for _, r := range it.Results {
			if r.Category != "" {
				ensure(r.Category).ResultsFound++
			}
		}
		for _, a := range it.Analyzed {
			ensure(a.Category).DeepDives++
		}
	}
	entries := make([]CoverageEntry, 0, len(byCat))
	for _, cat := range AllCategories() {
		entries = append(entries, *byCat[cat])
	}
	return entries
}

// LastGaps returns the gap list from the most recent closed iteration
func (s *Session) LastGaps() []Gap {
	if len(s.Iterations) == 0 {
		return nil
	}
	return s.Iterations[len(s.Iterations)-1].Gaps
}

// HaltReason returns the recorded reason if the session is halted
func (s *Session) HaltReason() HaltReason {
	if s.Status == StatusHaltedByRequest {
		return HaltUserRequest
	}
	if s.Status != StatusHalted || len(s.Iterations) == 0 {
		return ""
	}
	return s.Iterations[len(s.Iterations)-1].Halt.Reason
}

// ConfidenceBreakdown counts findings per tier in the latest snapshot
func (s *Session) ConfidenceBreakdown() map[ConfidenceTier]int {
	breakdown := map[ConfidenceTier]int{
		ConfidenceLow:    0,
		ConfidenceMedium: 0,
		ConfidenceHigh:   0,
	}
	for _, f := range s.Findings() {
		breakdown[f.Confidence]++
	}
	return breakdown
}
