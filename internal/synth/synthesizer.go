package synth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// nearDuplicateThreshold is the token-set overlap at which two claim
// keys are considered the same finding
const nearDuplicateThreshold = 0.6

// Synthesizer merges the full analyzed-source corpus into Findings
// with corroboration-derived confidence tiers, plus a gap list. It is
// deterministic: the same corpus always yields the same findings.
type Synthesizer struct{}

// NewSynthesizer creates a synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// group accumulates the claims that map to one finding
type group struct {
	key         string
	tokens      map[string]bool
	statement   string // first supporting claim text, else first seen
	fromSupport bool   // statement came from a supporting claim
	supporting  map[string]model.SourceRef
	contra      map[string]model.SourceRef
}

// Synthesize folds the corpus into findings and derives the gap list.
// Synthesis always runs over the full corpus, never an increment.
func (s *Synthesizer) Synthesize(primaryQuestion string, corpus []model.AnalyzedSource, coverage []model.CoverageEntry) ([]model.Finding, []model.Gap) {
	// Deterministic iteration order regardless of arrival order
	sorted := make([]model.AnalyzedSource, len(corpus))
	copy(sorted, corpus)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	var groups []*group
	for _, src := range sorted {
		if src.Unreachable {
			continue
		}
		ref := model.SourceRef{
			URL:         src.URL,
			Credibility: src.Credibility,
			LeadOrigin:  src.LeadOrigin,
		}
		for _, claim := range src.Claims {
			key, flipped := ClaimKey(claim.Text)
			if key == "" {
				continue
			}
			contradicts := claim.Contradicts != flipped

			g := findGroup(groups, key)
			if g == nil {
				g = &group{
					key:        key,
					tokens:     keyTokens(key),
					supporting: make(map[string]model.SourceRef),
					contra:     make(map[string]model.SourceRef),
				}
				groups = append(groups, g)
			}

			ref.StrongCertainty = claim.StrongCertainty
			if contradicts {
				if _, dup := g.contra[src.URL]; !dup {
					g.contra[src.URL] = ref
				}
				if g.statement == "" {
					g.statement = claim.Text
				}
			} else {
				if _, dup := g.supporting[src.URL]; !dup {
					g.supporting[src.URL] = ref
				}
				// A contradicting claim may have seeded the statement;
				// the first supporting claim replaces it so Statement
				// and Supporting always agree in polarity.
				if !g.fromSupport {
					g.statement = claim.Text
					g.fromSupport = true
				}
			}
		}
	}

	questionTokens := keyTokens(normalizedQuestionKey(primaryQuestion))

	findings := make([]model.Finding, 0, len(groups))
	for _, g := range groups {
		f := model.Finding{
			ID:            findingID(g.key),
			Statement:     g.statement,
			Key:           g.key,
			Supporting:    sortedRefs(g.supporting),
			Contradicting: sortedRefs(g.contra),
			Primary:       jaccard(g.tokens, questionTokens) >= 0.5,
		}
		f.Confidence = TierFor(f.Supporting, f.Contradicting)
		f.Disputed = disputed(f.Supporting, f.Contradicting)
		findings = append(findings, f)
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].ID < findings[j].ID })

	return findings, s.gaps(primaryQuestion, findings, coverage)
}

// TierFor computes the confidence tier as a pure function of the
// support set: high needs 3+ independent sources of at least medium
// credibility and no unresolved contradiction; medium needs exactly 2
// independent sources, or 1 high-credibility source with strong stated
// certainty; everything else is low.
func TierFor(supporting, contradicting []model.SourceRef) model.ConfidenceTier {
	independent := IndependentRefs(supporting)

	credible := 0
	for _, ref := range independent {
		if ref.Credibility.AtLeast(model.CredibilityMedium) {
			credible++
		}
	}

	if credible >= 3 && len(contradicting) == 0 {
		return model.ConfidenceHigh
	}
	if len(independent) == 2 {
		return model.ConfidenceMedium
	}
	if len(independent) == 1 && independent[0].Credibility == model.CredibilityHigh && independent[0].StrongCertainty {
		return model.ConfidenceMedium
	}
	// 3+ supports blocked from high by a contradiction still beat a single weak source
	if len(independent) >= 3 {
		return model.ConfidenceMedium
	}
	return model.ConfidenceLow
}

// IndependentRefs greedily keeps refs whose provenance chains do not
// overlap any already-kept ref. Two sources citing the same upstream
// URL count once.
func IndependentRefs(refs []model.SourceRef) []model.SourceRef {
	sorted := make([]model.SourceRef, len(refs))
	copy(sorted, refs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	used := make(map[string]bool)
	var kept []model.SourceRef
	for _, ref := range sorted {
		overlap := false
		for _, link := range ref.Chain() {
			if used[link] {
				overlap = true
				break
			}
		}
		if overlap {
			continue
		}
		for _, link := range ref.Chain() {
			used[link] = true
		}
		kept = append(kept, ref)
	}
	return kept
}

// disputed reports comparable-strength contradiction: both positions
// exist and their independent source counts are within one of each
// other. Disputed findings are retained, never resolved automatically.
func disputed(supporting, contradicting []model.SourceRef) bool {
	con := len(IndependentRefs(contradicting))
	if con == 0 {
		return false
	}
	sup := len(IndependentRefs(supporting))
	diff := sup - con
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

// gaps derives the planner's input: uncovered categories, findings
// stuck at low confidence, unresolved contradictions, and a primary
// question no finding addresses
func (s *Synthesizer) gaps(primaryQuestion string, findings []model.Finding, coverage []model.CoverageEntry) []model.Gap {
	var gaps []model.Gap

	for _, entry := range coverage {
		if entry.DeepDives == 0 {
			gaps = append(gaps, model.Gap{
				Kind:     model.GapUncoveredCategory,
				Category: entry.Category,
				Detail:   fmt.Sprintf("no deep dives into %s sources", entry.Category),
			})
		}
	}

	primaryAddressed := false
	for _, f := range findings {
		if f.Primary {
			primaryAddressed = true
		}
		if f.Disputed {
			gaps = append(gaps, model.Gap{
				Kind:      model.GapContradiction,
				FindingID: f.ID,
				Detail:    fmt.Sprintf("sources disagree on: %s", f.Statement),
			})
			continue
		}
		if f.Confidence == model.ConfidenceLow {
			gaps = append(gaps, model.Gap{
				Kind:      model.GapLowConfidence,
				FindingID: f.ID,
				Detail:    fmt.Sprintf("only weak support for: %s", f.Statement),
			})
		}
	}

	if !primaryAddressed {
		gaps = append(gaps, model.Gap{
			Kind:   model.GapOpenQuestion,
			Detail: primaryQuestion,
		})
	}
	return gaps
}

func findGroup(groups []*group, key string) *group {
	tokens := keyTokens(key)
	for _, g := range groups {
		if g.key == key || jaccard(g.tokens, tokens) >= nearDuplicateThreshold {
			return g
		}
	}
	return nil
}

func sortedRefs(byURL map[string]model.SourceRef) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(byURL))
	for _, ref := range byURL {
		refs = append(refs, ref)
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].URL < refs[j].URL })
	return refs
}

func normalizedQuestionKey(question string) string {
	key, _ := ClaimKey(question)
	return key
}

func findingID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}
