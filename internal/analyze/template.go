package analyze

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// Template is a source-category-specific extraction recipe. Each
// template knows how to pull claims, leads, and explicit credibility
// signals out of one page shape.
type Template interface {
	// Name identifies the template in AnalyzedSource records
	Name() string

	// CanHandle checks whether this template fits the URL/content type
	CanHandle(url, contentType string) bool

	// Extract pulls claims and outbound leads from the parsed document
	Extract(doc *html.Node, rawURL string) ([]model.Claim, []string)

	// Credibility derives an assessment from explicit page signals
	// (votes, stars, venue, date). Low when no signals are present;
	// signals are never fabricated.
	Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility
}

// Registry resolves the best template for a URL, falling back to the
// generic page template
type Registry struct {
	templates []Template
	generic   Template
}

// NewRegistry creates the built-in template set
func NewRegistry() *Registry {
	return &Registry{
		templates: []Template{
			&repositoryTemplate{},
			&paperTemplate{},
			&qaThreadTemplate{},
			&forumTemplate{},
		},
		generic: &genericTemplate{},
	}
}

// Resolve finds the template for a URL and content type
func (r *Registry) Resolve(url, contentType string) Template {
	for _, t := range r.templates {
		if t.CanHandle(url, contentType) {
			return t
		}
	}
	return r.generic
}

// claim keywords shared by the heuristic templates
var claimKeywords = []string{
	"is faster", "is slower", "outperforms", "supports", "does not support",
	"requires", "released", "introduced", "deprecated", "removed",
	"is the default", "originated", "according to", "benchmarks show",
	"is recommended", "is designed", "implements", "provides",
}

var certaintyMarkers = []string{
	"officially", "documented", "confirmed", "always", "definitely",
	"the specification states", "benchmarks show", "measured",
}

// extractClaimSentences runs the shared keyword heuristic over the
// visible text of a node
func extractClaimSentences(root *html.Node) []model.Claim {
	text := visibleText(root)
	var claims []model.Claim
	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, keyword := range claimKeywords {
			if strings.Contains(lower, keyword) {
				claims = append(claims, model.Claim{
					Text:            strings.TrimSpace(sentence),
					StrongCertainty: hasCertaintyMarker(lower),
				})
				break
			}
		}
	}
	return dedupeClaims(claims)
}

func hasCertaintyMarker(lower string) bool {
	for _, marker := range certaintyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var out []model.Claim
	for _, c := range claims {
		key := strings.ToLower(strings.TrimSpace(c.Text))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// visibleText walks text nodes, skipping script/style/nav chrome
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// splitSentences is a simple terminator-based splitter
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if len(strings.Fields(sentence)) >= 4 {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if sentence := strings.TrimSpace(current.String()); len(strings.Fields(sentence)) >= 4 {
		sentences = append(sentences, sentence)
	}
	return sentences
}

// outboundLinks collects http(s) hrefs pointing off the current host
func outboundLinks(root *html.Node, rawURL string) []string {
	host := hostOf(rawURL)
	seen := make(map[string]bool)
	var leads []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
				if hostOf(href) != host && !seen[href] {
					seen[href] = true
					leads = append(leads, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(leads) > 20 {
		leads = leads[:20]
	}
	return leads
}

func hostOf(rawURL string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimPrefix(strings.ToLower(trimmed), "www.")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// firstNumber finds the first integer in the text of nodes matching
// the predicate; used for star/vote counts
func firstNumber(root *html.Node, match func(*html.Node) bool) (int, bool) {
	var found *int
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if match(n) {
			if v, ok := parseCount(visibleText(n)); ok {
				found = &v
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if found == nil {
		return 0, false
	}
	return *found, true
}

// parseCount reads counts like "1,234", "1.2k", "3k"
func parseCount(text string) (int, bool) {
	field := strings.TrimSpace(text)
	if idx := strings.IndexByte(field, ' '); idx > 0 {
		field = field[:idx]
	}
	field = strings.ReplaceAll(field, ",", "")
	if field == "" {
		return 0, false
	}

	mult := 1.0
	switch field[len(field)-1] {
	case 'k', 'K':
		mult = 1000
		field = field[:len(field)-1]
	case 'm', 'M':
		mult = 1000000
		field = field[:len(field)-1]
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, false
	}
	return int(v * mult), true
}

func hasCSSClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// recentWithin reports whether a declared date falls inside the window
func recentWithin(publishedAt *time.Time, window time.Duration) bool {
	if publishedAt == nil {
		return false
	}
	return time.Since(*publishedAt) <= window
}
