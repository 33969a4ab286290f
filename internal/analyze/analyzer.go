package analyze

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/worker"
)

// Fetcher is the external fetch capability as the analyzer needs it
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Document, error)
}

// Extractor optionally replaces the template claim heuristics
type Extractor interface {
	Extract(ctx context.Context, doc *model.Document, category model.SourceCategory) ([]model.Claim, []string, error)
}

// Analyzer promotes selected SearchResults to AnalyzedSources: fetch,
// template extraction, credibility assessment. Fetch failures yield an
// unreachable source, never a phase failure.
type Analyzer struct {
	fetcher     Fetcher
	extractor   Extractor // nil means template extraction only
	registry    *Registry
	pool        *worker.Pool
	budget      int
	taskTimeout time.Duration
}

// NewAnalyzer creates an analyzer with deep-dive budget D and a
// tighter concurrency bound than the search pool
func NewAnalyzer(fetcher Fetcher, extractor Extractor, budget, workers int, taskTimeout time.Duration) *Analyzer {
	if budget <= 0 {
		budget = 8
	}
	return &Analyzer{
		fetcher:     fetcher,
		extractor:   extractor,
		registry:    NewRegistry(),
		pool:        worker.NewPool(workers),
		budget:      budget,
		taskTimeout: taskTimeout,
	}
}

// diveOutcome settles one deep dive
type diveOutcome struct {
	source model.AnalyzedSource
}

func (o *diveOutcome) Err() error { return nil }

type diveTask struct {
	analyzer *Analyzer
	result   model.SearchResult
}

func (t *diveTask) Run(ctx context.Context) worker.Outcome {
	return &diveOutcome{source: t.analyzer.dive(ctx, t.result.URL, t.result.Category, "", t.result.Title)}
}

// Analyze selects results by priority (high, then medium) up to the
// budget, skipping URLs in exclude, and dives them concurrently
func (a *Analyzer) Analyze(ctx context.Context, results []model.SearchResult, exclude map[string]bool) []model.AnalyzedSource {
	selected := a.selectResults(results, exclude)

	tasks := make([]worker.Task, len(selected))
	for i, r := range selected {
		tasks[i] = &diveTask{analyzer: a, result: r}
	}

	outcomes := a.pool.Run(ctx, tasks)
	sources := make([]model.AnalyzedSource, 0, len(outcomes))
	for _, o := range outcomes {
		sources = append(sources, o.(*diveOutcome).source)
	}
	return sources
}

// DiveOne analyzes a single URL outside a batch; the validator uses it
// to chase primary sources, recording where the lead came from
func (a *Analyzer) DiveOne(ctx context.Context, url string, category model.SourceCategory, leadOrigin string) model.AnalyzedSource {
	return a.dive(ctx, url, category, leadOrigin, "")
}

// selectResults filters to diveable priorities, dedupes by canonical
// URL, orders by priority then relevance, and clamps to the budget
func (a *Analyzer) selectResults(results []model.SearchResult, exclude map[string]bool) []model.SearchResult {
	seen := make(map[string]bool)
	var pick []model.SearchResult
	for _, r := range results {
		if r.Priority == model.DiveLow {
			continue
		}
		canon := model.CanonicalURL(r.URL)
		if canon == "" || seen[canon] || exclude[canon] {
			continue
		}
		seen[canon] = true
		pick = append(pick, r)
	}

	sort.SliceStable(pick, func(i, j int) bool {
		pi, pj := pick[i].Priority, pick[j].Priority
		if pi != pj {
			return pi == model.DiveHigh
		}
		return pick[i].Relevance > pick[j].Relevance
	})

	if len(pick) > a.budget {
		pick = pick[:a.budget]
	}
	return pick
}

// dive fetches and extracts one URL. Any failure produces an
// unreachable AnalyzedSource with no claims.
func (a *Analyzer) dive(ctx context.Context, url string, category model.SourceCategory, leadOrigin, title string) model.AnalyzedSource {
	diveCtx := ctx
	cancel := func() {}
	if a.taskTimeout > 0 {
		diveCtx, cancel = context.WithTimeout(ctx, a.taskTimeout)
	}
	defer cancel()

	source := model.AnalyzedSource{
		URL:        url,
		Title:      title,
		Category:   category,
		FetchedAt:  time.Now().UTC(),
		LeadOrigin: leadOrigin,
	}
	if source.Category == "" {
		source.Category = model.CategoryPrimaryTechnical
	}

	doc, err := a.fetcher.Fetch(diveCtx, url)
	if err != nil {
		source.Unreachable = true
		source.Credibility = model.CredibilityLow
		source.Template = a.registry.Resolve(url, "").Name()
		return source
	}

	template := a.registry.Resolve(url, doc.ContentType)
	source.Template = template.Name()
	source.FetchedAt = doc.FetchedAt
	source.PublishedAt = doc.PublishedAt

	parsed, parseErr := html.Parse(strings.NewReader(doc.Body))
	if parseErr != nil {
		source.Credibility = model.CredibilityLow
		return source
	}

	source.Credibility = template.Credibility(parsed, doc.PublishedAt)

	if a.extractor != nil {
		claims, leads, err := a.extractor.Extract(diveCtx, doc, source.Category)
		if err == nil {
			source.Claims = claims
			source.Leads = leads
			return source
		}
		// Extractor failure falls back to the template heuristics
	}

	source.Claims, source.Leads = template.Extract(parsed, url)
	return source
}
