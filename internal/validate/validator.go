package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/synth"
)

// Searcher issues the fresh re-confirmation queries
type Searcher interface {
	Search(ctx context.Context, query model.Query) ([]model.SearchResult, error)
}

// Diver fetches and analyzes a single URL outside the batch flow
type Diver interface {
	DiveOne(ctx context.Context, url string, category model.SourceCategory, leadOrigin string) model.AnalyzedSource
}

// Validator independently re-checks high-impact findings. It can move
// a finding's tier by at most one step per pass and can flag it
// disputed, but it never deletes a finding. Sources it discovers are
// fed back into the next synthesis pass.
type Validator struct {
	searcher Searcher
	diver    Diver
	budget   int // findings validated per iteration
}

// NewValidator creates a validator with the given per-iteration budget
func NewValidator(searcher Searcher, diver Diver, budget int) *Validator {
	if budget <= 0 {
		budget = 5
	}
	return &Validator{searcher: searcher, diver: diver, budget: budget}
}

// Validate examines findings in priority order (session-critical and
// high first, then single-source low) and returns one record per
// finding examined. Provider failures never abort the pass.
func (v *Validator) Validate(ctx context.Context, sess *model.Session, findings []model.Finding) []model.ValidationRecord {
	selected := v.selectFindings(findings)

	corpus := indexCorpus(sess.Corpus())
	executed := sess.ExecutedHashes()

	var records []model.ValidationRecord
	for _, f := range selected {
		if ctx.Err() != nil {
			break
		}
		records = append(records, v.validateOne(ctx, f, corpus, executed))
	}
	return records
}

// selectFindings orders the validation queue: critical-and-high,
// remaining high, remaining critical, then single-source lows
func (v *Validator) selectFindings(findings []model.Finding) []model.Finding {
	rank := func(f model.Finding) int {
		switch {
		case f.Primary && f.Confidence == model.ConfidenceHigh:
			return 0
		case f.Confidence == model.ConfidenceHigh:
			return 1
		case f.Primary:
			return 2
		case f.Confidence == model.ConfidenceLow && len(f.Supporting) == 1:
			return 3
		default:
			return 4
		}
	}

	var pool []model.Finding
	for _, f := range findings {
		if rank(f) < 4 {
			pool = append(pool, f)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		ri, rj := rank(pool[i]), rank(pool[j])
		if ri != rj {
			return ri < rj
		}
		return pool[i].ID < pool[j].ID
	})

	if len(pool) > v.budget {
		pool = pool[:v.budget]
	}
	return pool
}

// validateOne attempts independent re-confirmation of one finding,
// preferring the cited primary source when current support is
// secondary, otherwise issuing a fresh query
func (v *Validator) validateOne(ctx context.Context, f model.Finding, corpus map[string]model.AnalyzedSource, executed map[string]bool) model.ValidationRecord {
	record := model.ValidationRecord{FindingID: f.ID}

	supportChains := make(map[string]bool)
	for _, ref := range f.Supporting {
		for _, link := range ref.Chain() {
			supportChains[link] = true
		}
	}

	var source model.AnalyzedSource
	var found bool

	if lead, origin, ok := primaryLead(f, corpus, supportChains); ok {
		record.Method = model.MethodPrimarySource
		source = v.diver.DiveOne(ctx, lead, model.CategoryPrimaryTechnical, origin)
		found = true
	} else {
		record.Method = model.MethodFreshQuery
		source, record.Query, found = v.freshQuery(ctx, f, supportChains, executed)
	}

	if !found || source.Unreachable {
		record.Note = "no independent source reachable"
		return record
	}

	record.NewSources = []model.AnalyzedSource{source}

	stance, matched := claimStance(source, f.Key)
	switch {
	case !matched:
		record.Note = "new source does not address the finding"
	case stance && source.Credibility.AtLeast(model.CredibilityMedium):
		if f.Confidence != model.ConfidenceHigh {
			record.Delta = 1
		}
		record.Note = fmt.Sprintf("independently confirmed by %s", source.URL)
	case !stance && source.Credibility.AtLeast(model.CredibilityMedium):
		if f.Confidence == model.ConfidenceHigh {
			record.Delta = -1
		}
		record.Disputed = true
		record.Note = fmt.Sprintf("credible contradiction from %s", source.URL)
	default:
		record.Note = "new source too weak to move confidence"
	}
	return record
}

// primaryLead looks for an outbound lead cited by current support that
// is not itself part of the support's provenance; chasing it checks
// the original primary source behind secondary coverage
func primaryLead(f model.Finding, corpus map[string]model.AnalyzedSource, supportChains map[string]bool) (lead, origin string, ok bool) {
	for _, ref := range f.Supporting {
		if ref.Credibility == model.CredibilityHigh {
			// Support already includes a primary-grade source
			return "", "", false
		}
	}
	for _, ref := range f.Supporting {
		src, known := corpus[ref.URL]
		if !known {
			continue
		}
		for _, l := range src.Leads {
			if !supportChains[model.CanonicalURL(l)] {
				return l, src.URL, true
			}
		}
	}
	return "", "", false
}

// freshQuery issues a re-confirmation query distinct from every query
// already executed in the session and dives the best new hit. The
// issued text is returned for the record so the session-wide dedup set
// covers it on later passes.
func (v *Validator) freshQuery(ctx context.Context, f model.Finding, supportChains map[string]bool, executed map[string]bool) (model.AnalyzedSource, string, bool) {
	words := strings.Fields(f.Statement)
	if len(words) > 8 {
		words = words[:8]
	}

	query := model.Query{
		Text:     strings.Join(words, " ") + " independent confirmation",
		Category: model.CategoryPrimaryTechnical,
		Strategy: "validation",
	}
	if executed[query.Hash()] {
		query.Text = strings.Join(words, " ") + " original source"
		if executed[query.Hash()] {
			return model.AnalyzedSource{}, "", false
		}
	}
	executed[query.Hash()] = true

	results, err := v.searcher.Search(ctx, query)
	if err != nil {
		return model.AnalyzedSource{}, query.Text, false
	}

	for _, r := range results {
		if supportChains[model.CanonicalURL(r.URL)] {
			continue
		}
		return v.diver.DiveOne(ctx, r.URL, r.Category, ""), query.Text, true
	}
	return model.AnalyzedSource{}, query.Text, false
}

// claimStance reports whether the source addresses the finding key
// and, if so, whether it supports (true) or contradicts (false) it
func claimStance(source model.AnalyzedSource, findingKey string) (supports, matched bool) {
	for _, claim := range source.Claims {
		key, flipped := synth.ClaimKey(claim.Text)
		if !synth.KeysMatch(key, findingKey) {
			continue
		}
		return !(claim.Contradicts != flipped), true
	}
	return false, false
}

// Apply folds validation records into the findings snapshot: tier
// moves are capped at one step per pass and disputed flags stick
func Apply(findings []model.Finding, records []model.ValidationRecord) []model.Finding {
	byID := make(map[string]int, len(findings))
	for i, f := range findings {
		byID[f.ID] = i
	}

	out := make([]model.Finding, len(findings))
	copy(out, findings)

	for _, rec := range records {
		idx, ok := byID[rec.FindingID]
		if !ok {
			continue
		}
		switch {
		case rec.Delta > 0:
			out[idx].Confidence = raiseTier(out[idx].Confidence)
		case rec.Delta < 0:
			out[idx].Confidence = lowerTier(out[idx].Confidence)
		}
		if rec.Disputed {
			out[idx].Disputed = true
		}
	}
	return out
}

func raiseTier(t model.ConfidenceTier) model.ConfidenceTier {
	switch t {
	case model.ConfidenceLow:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceHigh
	}
}

func lowerTier(t model.ConfidenceTier) model.ConfidenceTier {
	switch t {
	case model.ConfidenceHigh:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func indexCorpus(corpus []model.AnalyzedSource) map[string]model.AnalyzedSource {
	byURL := make(map[string]model.AnalyzedSource, len(corpus))
	for _, src := range corpus {
		byURL[src.URL] = src
	}
	return byURL
}
