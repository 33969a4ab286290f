package model

import "testing"

func sessionWithIterations() *Session {
	return &Session{
		ID:    "s1",
		Topic: "redis vs memcached",
		Iterations: []Iteration{
			{
				Seq: 1,
				Queries: []Query{
					{Text: "redis vs memcached", Category: CategoryPrimaryTechnical},
					{Text: "redis vs memcached site:stackoverflow.com", Category: CategoryCommunity},
				},
				Results: []SearchResult{
					{URL: "https://a.example/x", Category: CategoryPrimaryTechnical},
				},
				Analyzed: []AnalyzedSource{
					{URL: "https://a.example/x", Category: CategoryPrimaryTechnical},
				},
				Findings: []Finding{{ID: "f1", Confidence: ConfidenceLow}},
			},
			{
				Seq:     2,
				Queries: []Query{{Text: "redis latency", Category: CategoryRealTime}},
				Analyzed: []AnalyzedSource{
					{URL: "https://b.example/y", Category: CategoryCommunity},
				},
				Validations: []ValidationRecord{
					{
						FindingID:  "f1",
						Query:      "redis persistence independent confirmation",
						NewSources: []AnalyzedSource{{URL: "https://c.example/z", Category: CategoryAcademic}},
					},
				},
				Findings: []Finding{
					{ID: "f1", Confidence: ConfidenceMedium},
					{ID: "f2", Confidence: ConfidenceLow},
				},
			},
		},
	}
}

func TestSession_Corpus_IncludesValidationSources(t *testing.T) {
	sess := sessionWithIterations()
	corpus := sess.Corpus()

	if len(corpus) != 3 {
		t.Fatalf("expected 3 corpus sources, got %d", len(corpus))
	}
	found := false
	for _, src := range corpus {
		if src.URL == "https://c.example/z" {
			found = true
		}
	}
	if !found {
		t.Error("expected corpus to include sources discovered during validation")
	}
}

func TestSession_Findings_LatestSnapshot(t *testing.T) {
	sess := sessionWithIterations()
	if got := len(sess.Findings()); got != 2 {
		t.Errorf("expected latest snapshot with 2 findings, got %d", got)
	}

	empty := &Session{}
	if empty.Findings() != nil {
		t.Error("expected nil findings for a session with no iterations")
	}
}

func TestSession_ExecutedHashes(t *testing.T) {
	sess := sessionWithIterations()
	hashes := sess.ExecutedHashes()

	if len(hashes) != 4 {
		t.Fatalf("expected 4 executed hashes, got %d", len(hashes))
	}
	q := Query{Text: "REDIS VS MEMCACHED"}
	if !hashes[q.Hash()] {
		t.Error("expected normalized re-issue of an executed query to be present")
	}
	vq := Query{Text: "redis persistence independent confirmation"}
	if !hashes[vq.Hash()] {
		t.Error("expected validation queries counted against the dedup set")
	}
}

func TestSession_Coverage(t *testing.T) {
	sess := sessionWithIterations()
	coverage := sess.Coverage()

	if len(coverage) != len(AllCategories()) {
		t.Fatalf("expected one entry per category, got %d", len(coverage))
	}

	byCat := make(map[SourceCategory]CoverageEntry)
	for _, entry := range coverage {
		byCat[entry.Category] = entry
	}

	pt := byCat[CategoryPrimaryTechnical]
	if pt.QueriesExecuted != 1 || pt.ResultsFound != 1 || pt.DeepDives != 1 {
		t.Errorf("unexpected primary-technical coverage: %+v", pt)
	}
	if byCat[CategoryAcademic].QueriesExecuted != 0 {
		t.Error("expected academic category untouched by queries")
	}
	if byCat[CategoryCommunity].DeepDives != 1 {
		t.Error("expected community deep dive counted")
	}
}

func TestSession_ConfidenceBreakdown(t *testing.T) {
	sess := sessionWithIterations()
	breakdown := sess.ConfidenceBreakdown()

	if breakdown[ConfidenceMedium] != 1 || breakdown[ConfidenceLow] != 1 || breakdown[ConfidenceHigh] != 0 {
		t.Errorf("unexpected breakdown: %v", breakdown)
	}
}
