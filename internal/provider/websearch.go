package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

const searchEndpoint = "https://html.duckduckgo.com/html/"

// WebSearcher is the default Search capability, scraping the
// DuckDuckGo HTML endpoint. Requests are idempotent and retry-safe.
type WebSearcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewWebSearcher creates a searcher from HTTP configuration
func NewWebSearcher(cfg model.HTTPConfig) *WebSearcher {
	return &WebSearcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// Search executes one query and maps the result page to SearchResults
func (s *WebSearcher) Search(ctx context.Context, query model.Query) ([]model.SearchResult, error) {
	endpoint := searchEndpoint + "?q=" + url.QueryEscape(query.Text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &model.ProviderError{Op: "search", Target: query.Text, Err: err}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Op: "search", Target: query.Text, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.ProviderError{Op: "search", Target: query.Text, Err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, &model.ProviderError{Op: "search", Target: query.Text, Err: fmt.Errorf("read body: %w", err)}
	}

	hits, err := parseResultPage(string(body))
	if err != nil {
		return nil, &model.ProviderError{Op: "search", Target: query.Text, Err: err}
	}

	results := make([]model.SearchResult, 0, len(hits))
	for rank, hit := range hits {
		results = append(results, model.SearchResult{
			QueryHash: query.Hash(),
			QueryText: query.Text,
			URL:       hit.url,
			Title:     hit.title,
			Relevance: relevanceForRank(rank),
			Excerpt:   hit.snippet,
			Priority:  priorityForRank(rank),
			Category:  query.Category,
		})
	}
	return results, nil
}

type pageHit struct {
	url     string
	title   string
	snippet string
}

// parseResultPage walks the result list markup: anchors classed
// result__a carry title and href, result__snippet the excerpt
func parseResultPage(body string) ([]pageHit, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse result page: %w", err)
	}

	var hits []pageHit
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attrValue(n, "href")
			if target := resolveRedirect(href); target != "" {
				hits = append(hits, pageHit{url: target, title: nodeText(n)})
			}
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") && len(hits) > 0 {
			if hits[len(hits)-1].snippet == "" {
				hits[len(hits)-1].snippet = nodeText(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hits, nil
}

// resolveRedirect unwraps the uddg redirect parameter when present
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return href
	}
	return ""
}

// relevanceForRank maps result rank to the [0,5] relevance scale
func relevanceForRank(rank int) float64 {
	rel := 5.0 - float64(rank)*0.5
	if rel < 0 {
		return 0
	}
	return rel
}

func priorityForRank(rank int) model.DivePriority {
	switch {
	case rank < 3:
		return model.DiveHigh
	case rank < 8:
		return model.DiveMedium
	default:
		return model.DiveLow
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, c := range strings.Fields(attr.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := nodeText(c); text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
