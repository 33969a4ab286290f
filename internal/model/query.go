package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// SourceCategory tags a query or source with the kind of venue it targets
type SourceCategory string

const (
	CategoryPrimaryTechnical SourceCategory = "primary-technical" // official docs, repositories, specs
	CategoryCommunity        SourceCategory = "community"         // forums, Q&A threads, discussions
	CategoryAcademic         SourceCategory = "academic"          // papers, preprints, proceedings
	CategoryInternational    SourceCategory = "international"     // non-English / regional coverage
	CategoryRealTime         SourceCategory = "real-time"         // news, release feeds, recent posts
)

// AllCategories lists every source category in planning order
func AllCategories() []SourceCategory {
	return []SourceCategory{
		CategoryPrimaryTechnical,
		CategoryCommunity,
		CategoryAcademic,
		CategoryInternational,
		CategoryRealTime,
	}
}

// Query is a single planned search query
type Query struct {
	Text     string         `json:"text"`               // The query text issued to the provider
	Category SourceCategory `json:"category"`           // Target source category
	Priority int            `json:"priority"`           // Lower is more urgent (0-based)
	Strategy string         `json:"strategy,omitempty"` // Variation strategy that produced it (e.g., "comparison")
}

// Hash returns the dedup key for the query: SHA-256 of the normalized text.
// A Session never issues two queries with the same hash.
func (q Query) Hash() string {
	sum := sha256.Sum256([]byte(NormalizeQueryText(q.Text)))
	return hex.EncodeToString(sum[:])
}

// NormalizeQueryText canonicalizes query text for dedup comparison:
// lowercase, punctuation stripped, whitespace collapsed.
func NormalizeQueryText(text string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
