package halt

import (
	"fmt"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/synth"
)

// Evaluator decides at the end of each iteration whether the session
// continues. The checks run in fixed priority order: AnsweredHigh,
// Saturation, IterationLimit, Confirmed, then continue.
type Evaluator struct {
	maxIterations int
}

// NewEvaluator creates an evaluator with the configured iteration cap
func NewEvaluator(maxIterations int) *Evaluator {
	if maxIterations <= 0 {
		maxIterations = 5
	}
	return &Evaluator{maxIterations: maxIterations}
}

// Decide evaluates the halt conditions over the full session fold plus
// the iteration about to close (its findings snapshot and gap list)
func (e *Evaluator) Decide(sess *model.Session, current []model.Finding, gaps []model.Gap) model.HaltDecision {
	// 1. AnsweredHigh: the primary question has a high-confidence,
	// non-disputed finding addressing it
	for _, f := range current {
		if f.Primary && f.Confidence == model.ConfidenceHigh && !f.Disputed {
			return model.HaltDecision{Halt: true, Reason: model.HaltAnsweredHigh}
		}
	}

	// 2. Saturation: this iteration and the previous one each added no
	// findings and changed no tiers
	closing := len(sess.Iterations) + 1
	if closing >= 2 {
		prev := snapshotAt(sess, len(sess.Iterations)-1)
		prevPrev := snapshotAt(sess, len(sess.Iterations)-2)
		if unchanged(prev, current) && unchanged(prevPrev, prev) {
			return model.HaltDecision{Halt: true, Reason: model.HaltSaturation}
		}
	}

	// 3. IterationLimit
	if closing >= e.maxIterations {
		return model.HaltDecision{Halt: true, Reason: model.HaltIterationLimit}
	}

	// 4. Confirmed: the primary finding has 3+ independent sources,
	// even when credibility keeps its tier at medium
	for _, f := range current {
		if f.Primary && len(synth.IndependentRefs(f.Supporting)) >= 3 {
			return model.HaltDecision{Halt: true, Reason: model.HaltConfirmed}
		}
	}

	return model.HaltDecision{NextFocus: nextFocus(gaps)}
}

// snapshotAt returns the findings snapshot of iteration idx, or nil
// when idx is before the first iteration
func snapshotAt(sess *model.Session, idx int) []model.Finding {
	if idx < 0 || idx >= len(sess.Iterations) {
		return nil
	}
	return sess.Iterations[idx].Findings
}

// unchanged reports whether next adds no findings and moves no tiers
// relative to prev. A disappeared finding also counts as change.
func unchanged(prev, next []model.Finding) bool {
	if len(prev) != len(next) {
		return false
	}
	prevByID := make(map[string]model.Finding, len(prev))
	for _, f := range prev {
		prevByID[f.ID] = f
	}
	for _, f := range next {
		old, ok := prevByID[f.ID]
		if !ok || old.Confidence != f.Confidence {
			return false
		}
	}
	return true
}

// nextFocus turns the most pressing gap into planner guidance:
// contradictions first, then low-confidence findings, then coverage
func nextFocus(gaps []model.Gap) string {
	byKind := func(kind model.GapKind) string {
		for _, g := range gaps {
			if g.Kind == kind {
				return g.Detail
			}
		}
		return ""
	}
	if focus := byKind(model.GapContradiction); focus != "" {
		return focus
	}
	if focus := byKind(model.GapOpenQuestion); focus != "" {
		return focus
	}
	if focus := byKind(model.GapLowConfidence); focus != "" {
		return focus
	}
	if focus := byKind(model.GapUncoveredCategory); focus != "" {
		return focus
	}
	return ""
}

// NextPhase maps the per-iteration state machine forward
func NextPhase(p model.Phase) (model.Phase, error) {
	switch p {
	case model.PhasePlanning:
		return model.PhaseSearching, nil
	case model.PhaseSearching:
		return model.PhaseAnalyzing, nil
	case model.PhaseAnalyzing:
		return model.PhaseSynthesizing, nil
	case model.PhaseSynthesizing:
		return model.PhaseValidating, nil
	case model.PhaseValidating:
		return model.PhaseDeciding, nil
	case model.PhaseDeciding:
		return model.PhasePlanning, nil
	default:
		return "", fmt.Errorf("no transition from phase %q", p)
	}
}
