package analyze

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

func parse(t *testing.T, body string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/user/repo", "technical-repository"},
		{"https://gitlab.com/group/project", "technical-repository"},
		{"https://arxiv.org/abs/2401.00001", "paper"},
		{"https://dl.acm.org/doi/10.1145/123", "paper"},
		{"https://stackoverflow.com/questions/42", "qa-thread"},
		{"https://unix.stackexchange.com/questions/1", "qa-thread"},
		{"https://news.ycombinator.com/item?id=1", "forum-thread"},
		{"https://old.reddit.com/r/golang/comments/x", "forum-thread"},
		{"https://example.com/blog/post", "generic-page"},
	}
	for _, tt := range tests {
		if got := reg.Resolve(tt.url, "text/html").Name(); got != tt.want {
			t.Errorf("Resolve(%s) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestExtractClaimSentences(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>Redis is faster than Memcached for small payloads. The weather is nice today.
		Benchmarks show the new allocator outperforms the old one.</p>
		<script>var x = "this engine is faster than that one";</script>
	</body></html>`)

	claims := extractClaimSentences(doc)
	if len(claims) != 2 {
		t.Fatalf("expected 2 claims, got %d: %v", len(claims), claims)
	}
	if !strings.Contains(claims[0].Text, "Redis is faster") {
		t.Errorf("unexpected first claim %q", claims[0].Text)
	}
	if !claims[1].StrongCertainty {
		t.Error("expected the benchmark sentence flagged as strong certainty")
	}
	if claims[0].StrongCertainty {
		t.Error("plain comparative must not carry strong certainty")
	}
}

func TestExtractClaimSentences_ShortAndDuplicate(t *testing.T) {
	doc := parse(t, `<html><body>
		<p>It is faster.</p>
		<p>The driver supports batched inserts natively. The driver supports batched inserts natively.</p>
	</body></html>`)

	claims := extractClaimSentences(doc)
	if len(claims) != 1 {
		t.Fatalf("expected short sentences dropped and duplicates collapsed, got %v", claims)
	}
}

func TestOutboundLinks(t *testing.T) {
	doc := parse(t, `<html><body>
		<a href="https://other.example/ref">ref</a>
		<a href="https://self.example/internal">internal</a>
		<a href="/relative">relative</a>
		<a href="https://other.example/ref">dup</a>
	</body></html>`)

	leads := outboundLinks(doc, "https://self.example/page")
	if len(leads) != 1 || leads[0] != "https://other.example/ref" {
		t.Errorf("leads = %v, want the single off-host absolute link", leads)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1,234", 1234, true},
		{"1.2k", 1200, true},
		{"3k", 3000, true},
		{"2M", 2000000, true},
		{"42 stars", 42, true},
		{"", 0, false},
		{"nope", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseCount(%q) = %d,%v, want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRepositoryCredibility(t *testing.T) {
	popular := parse(t, `<html><body><span id="repo-stars-counter-star">12.4k</span></body></html>`)
	modest := parse(t, `<html><body><span id="repo-stars-counter-star">87</span></body></html>`)
	bare := parse(t, `<html><body><p>a repo page with no counter</p></body></html>`)

	tmpl := &repositoryTemplate{}
	if got := tmpl.Credibility(popular, nil); got != model.CredibilityHigh {
		t.Errorf("12.4k stars = %s, want high", got)
	}
	if got := tmpl.Credibility(modest, nil); got != model.CredibilityMedium {
		t.Errorf("87 stars = %s, want medium", got)
	}
	if got := tmpl.Credibility(bare, nil); got != model.CredibilityLow {
		t.Errorf("no signal = %s, want low", got)
	}
}

func TestQAThreadCredibility(t *testing.T) {
	accepted := parse(t, `<html><body><div class="js-vote-count">312</div></body></html>`)
	weak := parse(t, `<html><body><div class="js-vote-count">3</div></body></html>`)

	tmpl := &qaThreadTemplate{}
	if got := tmpl.Credibility(accepted, nil); got != model.CredibilityHigh {
		t.Errorf("312 votes = %s, want high", got)
	}
	if got := tmpl.Credibility(weak, nil); got != model.CredibilityLow {
		t.Errorf("3 votes = %s, want low", got)
	}
}

func TestForumCredibilityNeverHigh(t *testing.T) {
	hot := parse(t, `<html><body><span class="score">2,481</span></body></html>`)

	if got := (&forumTemplate{}).Credibility(hot, nil); got != model.CredibilityMedium {
		t.Errorf("hot thread = %s, want medium at most", got)
	}
}

func TestPaperCredibility(t *testing.T) {
	doc := parse(t, `<html><body><p>abstract</p></body></html>`)
	published := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	tmpl := &paperTemplate{}
	if got := tmpl.Credibility(doc, &published); got != model.CredibilityHigh {
		t.Errorf("dated paper = %s, want high", got)
	}
	if got := tmpl.Credibility(doc, nil); got != model.CredibilityMedium {
		t.Errorf("undated paper = %s, want medium", got)
	}
}

func TestGenericCredibility(t *testing.T) {
	doc := parse(t, `<html><body><p>post</p></body></html>`)
	recent := time.Now().UTC().Add(-30 * 24 * time.Hour)
	stale := time.Now().UTC().Add(-2 * 365 * 24 * time.Hour)

	tmpl := &genericTemplate{}
	if got := tmpl.Credibility(doc, &recent); got != model.CredibilityMedium {
		t.Errorf("recent page = %s, want medium", got)
	}
	if got := tmpl.Credibility(doc, &stale); got != model.CredibilityLow {
		t.Errorf("stale page = %s, want low", got)
	}
	if got := tmpl.Credibility(doc, nil); got != model.CredibilityLow {
		t.Errorf("undated page = %s, want low", got)
	}
}
