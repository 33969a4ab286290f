package plan

import (
	"fmt"
	"strings"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// Planner turns a topic and the current session fold into the next
// batch of queries. It never re-issues a query the session has already
// executed (normalized-hash comparison).
type Planner struct {
	minQueries int
	maxQueries int
}

// NewPlanner creates a planner with the configured batch bounds
func NewPlanner(cfg model.ResearchConfig) *Planner {
	minQ, maxQ := cfg.MinQueries, cfg.MaxQueries
	if minQ <= 0 {
		minQ = 5
	}
	if maxQ < minQ {
		maxQ = minQ
	}
	return &Planner{minQueries: minQ, maxQueries: maxQ}
}

// candidate is a query proposal before dedup and clamping
type candidate struct {
	text     string
	category model.SourceCategory
	strategy string
}

// Plan produces the next prioritized query batch for the session.
// Iteration 1 applies the fixed variation strategies to the topic;
// later iterations derive queries from the previous gap list, falling
// back to unexplored categories. Returns EmptyPlanError when nothing
// new can be produced.
func (p *Planner) Plan(sess *model.Session) ([]model.Query, error) {
	executed := sess.ExecutedHashes()

	var candidates []candidate
	if len(sess.Iterations) == 0 {
		candidates = p.variations(sess.Topic)
	} else {
		candidates = p.fromGaps(sess)
	}

	queries := p.dedupe(candidates, executed)
	if len(queries) == 0 && len(sess.Iterations) > 0 {
		// Gap texts repeat across iterations and can dedupe away
		// entirely; unexplored categories still count as new ground
		queries = p.dedupe(p.unexplored(sess), executed)
	}

	if len(queries) == 0 {
		return nil, &model.EmptyPlanError{Reason: "all candidate queries already executed and no gaps remain"}
	}
	return queries, nil
}

// dedupe drops empty, batch-duplicate, and already-executed candidates
// and clamps the batch to the configured maximum
func (p *Planner) dedupe(candidates []candidate, executed map[string]bool) []model.Query {
	seen := make(map[string]bool)

	var queries []model.Query
	for _, c := range candidates {
		norm := model.NormalizeQueryText(c.text)
		if norm == "" || seen[norm] {
			continue
		}
		q := model.Query{
			Text:     c.text,
			Category: c.category,
			Priority: len(queries),
			Strategy: c.strategy,
		}
		if executed[q.Hash()] {
			continue
		}
		seen[norm] = true
		queries = append(queries, q)
		if len(queries) == p.maxQueries {
			break
		}
	}
	return queries
}

// variations applies the iteration-1 strategies: terminology,
// problem/solution framing, comparison, site restriction, recency
func (p *Planner) variations(topic string) []candidate {
	return []candidate{
		{topic, model.CategoryPrimaryTechnical, "terminology"},
		{topic + " overview", model.CategoryPrimaryTechnical, "terminology"},
		{topic + " documentation", model.CategoryPrimaryTechnical, "terminology"},
		{topic + " common problems", model.CategoryCommunity, "problem-solution"},
		{topic + " best practices", model.CategoryCommunity, "problem-solution"},
		{topic + " comparison", model.CategoryCommunity, "comparison"},
		{topic + " alternatives", model.CategoryCommunity, "comparison"},
		{topic + " site:github.com", model.CategoryPrimaryTechnical, "site-restriction"},
		{topic + " site:stackoverflow.com", model.CategoryCommunity, "site-restriction"},
		{topic + " site:arxiv.org", model.CategoryAcademic, "site-restriction"},
		{topic + " adoption worldwide", model.CategoryInternational, "terminology"},
		{topic + " latest news", model.CategoryRealTime, "recency"},
		{topic + " recent developments", model.CategoryRealTime, "recency"},
	}
}

// fromGaps derives queries from the previous iteration's gap list:
// uncovered categories, low-confidence findings, unresolved
// contradictions, and open questions, in that priority
func (p *Planner) fromGaps(sess *model.Session) []candidate {
	var candidates []candidate

	// A decided next focus leads the batch
	if n := len(sess.Iterations); n > 0 {
		if focus := sess.Iterations[n-1].Halt.NextFocus; focus != "" {
			candidates = append(candidates, candidate{focus, model.CategoryPrimaryTechnical, "focus"})
		}
	}

	findings := indexFindings(sess.Findings())
	for _, gap := range sess.LastGaps() {
		switch gap.Kind {
		case model.GapUncoveredCategory:
			candidates = append(candidates, categoryCandidate(sess.Topic, gap.Category))
		case model.GapLowConfidence:
			if f, ok := findings[gap.FindingID]; ok {
				candidates = append(candidates, candidate{
					text:     keywordQuery(f.Statement) + " evidence",
					category: model.CategoryPrimaryTechnical,
					strategy: "low-confidence",
				})
			}
		case model.GapContradiction:
			if f, ok := findings[gap.FindingID]; ok {
				candidates = append(candidates, candidate{
					text:     keywordQuery(f.Statement) + " debate",
					category: model.CategoryCommunity,
					strategy: "contradiction",
				})
			}
		case model.GapOpenQuestion:
			candidates = append(candidates, candidate{gap.Detail, model.CategoryPrimaryTechnical, "open-question"})
		}
	}
	return candidates
}

// unexplored falls back to source categories with no executed queries
func (p *Planner) unexplored(sess *model.Session) []candidate {
	var candidates []candidate
	for _, entry := range sess.Coverage() {
		if entry.QueriesExecuted == 0 {
			candidates = append(candidates, categoryCandidate(sess.Topic, entry.Category))
		}
	}
	return candidates
}

func categoryCandidate(topic string, cat model.SourceCategory) candidate {
	switch cat {
	case model.CategoryPrimaryTechnical:
		return candidate{topic + " site:github.com", cat, "category"}
	case model.CategoryCommunity:
		return candidate{topic + " site:stackoverflow.com", cat, "category"}
	case model.CategoryAcademic:
		return candidate{topic + " site:arxiv.org", cat, "category"}
	case model.CategoryInternational:
		return candidate{topic + " adoption worldwide", cat, "category"}
	case model.CategoryRealTime:
		return candidate{topic + " latest news", cat, "category"}
	default:
		return candidate{fmt.Sprintf("%s %s", topic, cat), cat, "category"}
	}
}

// keywordQuery reduces a finding statement to a short query
func keywordQuery(statement string) string {
	words := strings.Fields(statement)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func indexFindings(findings []model.Finding) map[string]model.Finding {
	byID := make(map[string]model.Finding, len(findings))
	for _, f := range findings {
		byID[f.ID] = f
	}
	return byID
}
