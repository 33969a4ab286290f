package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/synth"
)

// Status is the health summary behind the status command
type Status struct {
	SessionID       string
	Topic           string
	Status          model.SessionStatus
	Phase           model.Phase // running phase, empty when idle
	Iterations      int
	FindingsCount   int
	Breakdown       map[model.ConfidenceTier]int
	CoveragePercent float64
	Warnings        []string
}

// BuildStatus folds a session into its status summary, including the
// health checks: low coverage, low source diversity, and findings that
// were never validated
func BuildStatus(sess *model.Session, phase model.Phase) Status {
	st := Status{
		SessionID:     sess.ID,
		Topic:         sess.Topic,
		Status:        sess.Status,
		Phase:         phase,
		Iterations:    len(sess.Iterations),
		FindingsCount: len(sess.Findings()),
		Breakdown:     sess.ConfidenceBreakdown(),
	}

	coverage := sess.Coverage()
	covered, diveCategories := 0, 0
	for _, entry := range coverage {
		if entry.QueriesExecuted > 0 {
			covered++
		}
		if entry.DeepDives > 0 {
			diveCategories++
		}
	}
	if len(coverage) > 0 {
		st.CoveragePercent = float64(covered) / float64(len(coverage)) * 100
	}

	if st.Iterations > 0 {
		if st.CoveragePercent < 25 {
			st.Warnings = append(st.Warnings, fmt.Sprintf("low source coverage: %.0f%%", st.CoveragePercent))
		}
		if diveCategories < 3 {
			st.Warnings = append(st.Warnings, fmt.Sprintf("low source diversity: %d categories deep-dived", diveCategories))
		}
		validated := 0
		for _, it := range sess.Iterations {
			validated += len(it.Validations)
		}
		if validated == 0 && st.FindingsCount > 0 {
			st.Warnings = append(st.Warnings, "no findings validated yet")
		}
	}
	return st
}

// RenderStatus formats a status summary for the terminal
func RenderStatus(st Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:    %s\n", st.SessionID)
	fmt.Fprintf(&b, "Topic:      %s\n", st.Topic)
	fmt.Fprintf(&b, "Status:     %s\n", st.Status)
	if st.Phase != "" {
		fmt.Fprintf(&b, "Phase:      %s\n", st.Phase)
	}
	fmt.Fprintf(&b, "Iterations: %d\n", st.Iterations)
	fmt.Fprintf(&b, "Findings:   %d (high %d / medium %d / low %d)\n",
		st.FindingsCount,
		st.Breakdown[model.ConfidenceHigh],
		st.Breakdown[model.ConfidenceMedium],
		st.Breakdown[model.ConfidenceLow],
	)
	fmt.Fprintf(&b, "Coverage:   %.0f%%\n", st.CoveragePercent)
	for _, w := range st.Warnings {
		fmt.Fprintf(&b, "Warning:    %s\n", w)
	}
	return b.String()
}

// RenderFinal produces the final markdown report: executive summary,
// findings grouped by consensus strength, retained contradictions with
// both positions, coverage matrix, and a source appendix
func RenderFinal(sess *model.Session) string {
	findings := sess.Findings()

	var consensus, disputedSet, single []model.Finding
	for _, f := range findings {
		switch {
		case f.Disputed:
			disputedSet = append(disputedSet, f)
		case len(f.Supporting) >= 2:
			consensus = append(consensus, f)
		default:
			single = append(single, f)
		}
	}
	sortByConfidence(consensus)
	sortByConfidence(single)

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Report: %s\n\n", sess.Topic)
	fmt.Fprintf(&b, "- Session: %s\n", sess.ID)
	fmt.Fprintf(&b, "- Iterations: %d\n", len(sess.Iterations))
	if reason := sess.HaltReason(); reason != "" {
		fmt.Fprintf(&b, "- Halted: %s\n", reason)
	}
	b.WriteString("\n## Executive Summary\n\n")
	b.WriteString(executiveSummary(sess, findings))
	b.WriteString("\n")

	if len(consensus) > 0 {
		b.WriteString("\n## Key Findings (consensus)\n\n")
		for _, f := range consensus {
			writeFinding(&b, f)
		}
	}

	if len(disputedSet) > 0 {
		b.WriteString("\n## Contradictions (unresolved)\n\n")
		b.WriteString("Both positions are retained; the evidence does not resolve them.\n\n")
		for _, f := range disputedSet {
			writeFinding(&b, f)
			for _, ref := range f.Contradicting {
				fmt.Fprintf(&b, "  - contradicted by: %s (%s credibility)\n", ref.URL, ref.Credibility)
			}
			b.WriteString("\n")
		}
	}

	if len(single) > 0 {
		b.WriteString("\n## Single-Source Findings\n\n")
		for _, f := range single {
			writeFinding(&b, f)
		}
	}

	b.WriteString("\n## Coverage\n\n")
	b.WriteString("| Category | Queries | Results | Deep dives |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, entry := range sess.Coverage() {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n",
			entry.Category, entry.QueriesExecuted, entry.ResultsFound, entry.DeepDives)
	}

	b.WriteString("\n## Sources\n\n")
	for _, src := range sortedCorpus(sess) {
		if src.Unreachable {
			fmt.Fprintf(&b, "- %s (unreachable)\n", src.URL)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s, %s credibility, %d claims)\n",
			src.URL, src.Template, src.Credibility, len(src.Claims))
	}

	return b.String()
}

// RenderIterationSummary formats one closed iteration for the terminal
func RenderIterationSummary(it model.Iteration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Iteration %d\n", it.Seq)
	fmt.Fprintf(&b, "  queries:    %d (%d dropped)\n", len(it.Queries), len(it.Dropped))
	fmt.Fprintf(&b, "  results:    %d\n", len(it.Results))
	fmt.Fprintf(&b, "  deep dives: %d\n", len(it.Analyzed))
	fmt.Fprintf(&b, "  findings:   %d\n", len(it.Findings))
	fmt.Fprintf(&b, "  validated:  %d\n", len(it.Validations))
	if it.Halt.Halt {
		fmt.Fprintf(&b, "  halted:     %s\n", it.Halt.Reason)
	} else if it.Halt.NextFocus != "" {
		fmt.Fprintf(&b, "  next focus: %s\n", it.Halt.NextFocus)
	}
	return b.String()
}

// executiveSummary leads with the best-supported primary finding, or
// states plainly that the question is unsettled
func executiveSummary(sess *model.Session, findings []model.Finding) string {
	var best *model.Finding
	for i := range findings {
		f := &findings[i]
		if !f.Primary || f.Disputed {
			continue
		}
		if best == nil || model.TierRank(f.Confidence) > model.TierRank(best.Confidence) {
			best = f
		}
	}
	if best == nil {
		return fmt.Sprintf("No finding with usable confidence directly addresses %q yet.\n", sess.PrimaryQuestion)
	}
	return fmt.Sprintf("%s (confidence: %s, %d independent sources)\n",
		best.Statement, best.Confidence, len(synth.IndependentRefs(best.Supporting)))
}

func writeFinding(b *strings.Builder, f model.Finding) {
	flags := string(f.Confidence)
	if f.Disputed {
		flags += ", disputed"
	}
	if f.Primary {
		flags += ", primary"
	}
	fmt.Fprintf(b, "- **%s** (%s)\n", f.Statement, flags)
	for _, ref := range f.Supporting {
		fmt.Fprintf(b, "  - %s (%s credibility)\n", ref.URL, ref.Credibility)
	}
}

func sortByConfidence(findings []model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := model.TierRank(findings[i].Confidence), model.TierRank(findings[j].Confidence)
		if ri != rj {
			return ri > rj
		}
		return len(findings[i].Supporting) > len(findings[j].Supporting)
	})
}

func sortedCorpus(sess *model.Session) []model.AnalyzedSource {
	corpus := sess.Corpus()
	sort.SliceStable(corpus, func(i, j int) bool { return corpus[i].URL < corpus[j].URL })
	return corpus
}
