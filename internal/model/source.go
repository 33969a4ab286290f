package model

import (
	"net/url"
	"strings"
	"time"
)

// DivePriority hints how urgently a SearchResult deserves a deep dive
type DivePriority string

const (
	DiveHigh   DivePriority = "high"
	DiveMedium DivePriority = "medium"
	DiveLow    DivePriority = "low"
)

// SearchResult is a raw hit returned by the search capability
type SearchResult struct {
	QueryHash string         `json:"query_hash"`         // Hash of the originating query
	QueryText string         `json:"query_text"`         // Original query text (for traceability)
	URL       string         `json:"url"`                // Source URL or identifier
	Title     string         `json:"title,omitempty"`    // Result title if the provider supplies one
	Relevance float64        `json:"relevance"`          // Provider relevance score in [0,5]
	Excerpt   string         `json:"excerpt,omitempty"`  // Raw content excerpt
	Priority  DivePriority   `json:"priority"`           // Deep-dive priority hint
	Category  SourceCategory `json:"category,omitempty"` // Carried from the originating query
}

// Credibility is the assessed trustworthiness of an analyzed source
type Credibility string

const (
	CredibilityLow    Credibility = "low"
	CredibilityMedium Credibility = "medium"
	CredibilityHigh   Credibility = "high"
)

// AtLeast reports whether c is at or above the given floor
func (c Credibility) AtLeast(floor Credibility) bool {
	return credRank(c) >= credRank(floor)
}

func credRank(c Credibility) int {
	switch c {
	case CredibilityHigh:
		return 3
	case CredibilityMedium:
		return 2
	case CredibilityLow:
		return 1
	default:
		return 0
	}
}

// Claim is a single statement extracted from an analyzed source
type Claim struct {
	Text            string `json:"text"`                       // The claim text
	Subject         string `json:"subject,omitempty"`          // Normalized grouping key (derived when empty)
	Contradicts     bool   `json:"contradicts,omitempty"`      // Asserts the negation of the subject statement
	StrongCertainty bool   `json:"strong_certainty,omitempty"` // Source states the claim with explicit certainty
}

// AnalyzedSource is a SearchResult promoted via deep dive: fetched,
// template-extracted, and credibility-assessed
type AnalyzedSource struct {
	URL         string         `json:"url"`
	Title       string         `json:"title,omitempty"`
	Category    SourceCategory `json:"category"`
	Template    string         `json:"template"` // Extraction template applied (e.g., "qa-thread")
	Claims      []Claim        `json:"claims"`
	Credibility Credibility    `json:"credibility"`
	PublishedAt *time.Time     `json:"published_at,omitempty"` // Declared publication date, when present
	FetchedAt   time.Time      `json:"fetched_at"`
	Leads       []string       `json:"leads,omitempty"`       // Outbound URLs worth following
	LeadOrigin  string         `json:"lead_origin,omitempty"` // URL this source was discovered from ("" = direct search hit)
	Unreachable bool           `json:"unreachable,omitempty"` // Fetch failed after retries; no claims present
}

// ProvenanceChain returns the set of URLs this source's evidence descends
// from: its own canonical URL plus the lead it was discovered through.
// Sources whose chains intersect are not independent corroboration.
func (s AnalyzedSource) ProvenanceChain() []string {
	chain := []string{CanonicalURL(s.URL)}
	if s.LeadOrigin != "" {
		chain = append(chain, CanonicalURL(s.LeadOrigin))
	}
	return chain
}

// CanonicalURL reduces a URL to host+path for provenance comparison,
// dropping scheme, query string, fragment, and trailing slash.
func CanonicalURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	path := strings.TrimSuffix(parsed.Path, "/")
	return host + path
}

// Document is the raw payload returned by the fetch capability
type Document struct {
	URL         string     `json:"url"`
	Body        string     `json:"body"` // Raw text/markup
	ContentType string     `json:"content_type,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"` // Declared publication date, if the page carries one
}
