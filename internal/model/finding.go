package model

// ConfidenceTier is the aggregated support level of a Finding.
// It measures source agreement, not truth.
type ConfidenceTier string

const (
	ConfidenceLow    ConfidenceTier = "low"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceHigh   ConfidenceTier = "high"
)

// TierRank orders tiers for delta computation (low=1 .. high=3)
func TierRank(t ConfidenceTier) int {
	switch t {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// SourceRef points a Finding back at one supporting or contradicting
// AnalyzedSource, carrying just enough for tier computation
type SourceRef struct {
	URL             string      `json:"url"`
	Credibility     Credibility `json:"credibility"`
	LeadOrigin      string      `json:"lead_origin,omitempty"`
	StrongCertainty bool        `json:"strong_certainty,omitempty"`
}

// Chain returns the provenance chain for independence checks
func (r SourceRef) Chain() []string {
	chain := []string{CanonicalURL(r.URL)}
	if r.LeadOrigin != "" {
		chain = append(chain, CanonicalURL(r.LeadOrigin))
	}
	return chain
}

// Finding is a distinct claim with its aggregated support
type Finding struct {
	ID            string         `json:"id"`                      // Stable across re-synthesis (derived from the grouping key)
	Statement     string         `json:"statement"`               // Canonical claim text
	Key           string         `json:"key"`                     // Normalized grouping key
	Supporting    []SourceRef    `json:"supporting"`              // Sources asserting the statement
	Contradicting []SourceRef    `json:"contradicting,omitempty"` // Sources asserting its negation
	Confidence    ConfidenceTier `json:"confidence"`
	Disputed      bool           `json:"disputed,omitempty"` // Comparable-strength contradiction, left unresolved
	Primary       bool           `json:"primary,omitempty"`  // Directly addresses the session's primary question
}

// GapKind classifies a coverage or confidence gap found during synthesis
type GapKind string

const (
	GapUncoveredCategory GapKind = "uncovered-category" // Category with zero deep-dives
	GapLowConfidence     GapKind = "low-confidence"     // Finding stuck at low tier
	GapContradiction     GapKind = "contradiction"      // Unresolved disputed finding
	GapOpenQuestion      GapKind = "open-question"      // Question with no claims at all
)

// Gap is one entry in the gap list the planner feeds on
type Gap struct {
	Kind      GapKind        `json:"kind"`
	Category  SourceCategory `json:"category,omitempty"`
	FindingID string         `json:"finding_id,omitempty"`
	Detail    string         `json:"detail"`
}

// CoverageEntry tracks per-category breadth for gap analysis only
type CoverageEntry struct {
	Category        SourceCategory `json:"category"`
	QueriesExecuted int            `json:"queries_executed"`
	ResultsFound    int            `json:"results_found"`
	DeepDives       int            `json:"deep_dives"`
}

// ValidationMethod names how a Finding was independently re-checked
type ValidationMethod string

const (
	MethodFreshQuery    ValidationMethod = "fresh-query"    // New query distinct from prior support
	MethodPrimarySource ValidationMethod = "primary-source" // Fetched the original primary source
)

// ValidationRecord is the appended outcome of validating one Finding
type ValidationRecord struct {
	FindingID  string           `json:"finding_id"`
	Method     ValidationMethod `json:"method"`
	Query      string           `json:"query,omitempty"`    // Fresh-query text issued, counted against the session dedup set
	Delta      int              `json:"delta"`              // Tier steps moved: -1, 0, or +1
	Disputed   bool             `json:"disputed,omitempty"` // Validation surfaced a credible contradiction
	Note       string           `json:"note,omitempty"`
	NewSources []AnalyzedSource `json:"new_sources,omitempty"` // Fed into the next synthesis pass
}
