package analyze

import (
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// repositoryTemplate handles code hosting pages. Credibility signal:
// star count.
type repositoryTemplate struct{}

func (t *repositoryTemplate) Name() string { return "technical-repository" }

func (t *repositoryTemplate) CanHandle(url, contentType string) bool {
	host := hostOf(url)
	return host == "github.com" || host == "gitlab.com" || host == "codeberg.org" ||
		strings.HasSuffix(host, ".github.io")
}

func (t *repositoryTemplate) Extract(doc *html.Node, rawURL string) ([]model.Claim, []string) {
	return extractClaimSentences(doc), outboundLinks(doc, rawURL)
}

func (t *repositoryTemplate) Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility {
	stars, ok := firstNumber(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == "repo-stars-counter-star"
	})
	if !ok {
		return model.CredibilityLow
	}
	switch {
	case stars >= 1000:
		return model.CredibilityHigh
	case stars >= 50:
		return model.CredibilityMedium
	default:
		return model.CredibilityLow
	}
}

// paperTemplate handles academic pages. Credibility signal: known
// venue host plus a declared date.
type paperTemplate struct{}

func (t *paperTemplate) Name() string { return "paper" }

var paperHosts = map[string]bool{
	"arxiv.org":           true,
	"dl.acm.org":          true,
	"ieeexplore.ieee.org": true,
	"link.springer.com":   true,
	"doi.org":             true,
	"openreview.net":      true,
}

func (t *paperTemplate) CanHandle(url, contentType string) bool {
	return paperHosts[hostOf(url)]
}

func (t *paperTemplate) Extract(doc *html.Node, rawURL string) ([]model.Claim, []string) {
	return extractClaimSentences(doc), outboundLinks(doc, rawURL)
}

func (t *paperTemplate) Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility {
	// Venue recognition is itself the signal; anything reachable here
	// came from a known academic host
	if publishedAt != nil {
		return model.CredibilityHigh
	}
	return model.CredibilityMedium
}

// qaThreadTemplate handles Q&A sites. Credibility signal: accepted
// answer votes.
type qaThreadTemplate struct{}

func (t *qaThreadTemplate) Name() string { return "qa-thread" }

func (t *qaThreadTemplate) CanHandle(url, contentType string) bool {
	host := hostOf(url)
	return host == "stackoverflow.com" || strings.HasSuffix(host, ".stackexchange.com") ||
		host == "superuser.com" || host == "serverfault.com"
}

func (t *qaThreadTemplate) Extract(doc *html.Node, rawURL string) ([]model.Claim, []string) {
	return extractClaimSentences(doc), outboundLinks(doc, rawURL)
}

func (t *qaThreadTemplate) Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility {
	votes, ok := firstNumber(doc, func(n *html.Node) bool {
		return hasCSSClass(n, "js-vote-count")
	})
	if !ok {
		return model.CredibilityLow
	}
	switch {
	case votes >= 100:
		return model.CredibilityHigh
	case votes >= 10:
		return model.CredibilityMedium
	default:
		return model.CredibilityLow
	}
}

// forumTemplate handles discussion threads. Credibility signal: point
// score where the markup exposes one, otherwise recency.
type forumTemplate struct{}

func (t *forumTemplate) Name() string { return "forum-thread" }

func (t *forumTemplate) CanHandle(url, contentType string) bool {
	host := hostOf(url)
	return host == "reddit.com" || host == "old.reddit.com" ||
		host == "news.ycombinator.com" || host == "lobste.rs"
}

func (t *forumTemplate) Extract(doc *html.Node, rawURL string) ([]model.Claim, []string) {
	return extractClaimSentences(doc), outboundLinks(doc, rawURL)
}

func (t *forumTemplate) Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility {
	score, ok := firstNumber(doc, func(n *html.Node) bool {
		return hasCSSClass(n, "score") || hasCSSClass(n, "score-likes")
	})
	if ok && score >= 100 {
		return model.CredibilityMedium
	}
	// Forum content is never high on its own
	return model.CredibilityLow
}

// genericTemplate is the fallback for any page. Credibility signal:
// declared publication date only.
type genericTemplate struct{}

func (t *genericTemplate) Name() string { return "generic-page" }

func (t *genericTemplate) CanHandle(url, contentType string) bool { return true }

func (t *genericTemplate) Extract(doc *html.Node, rawURL string) ([]model.Claim, []string) {
	return extractClaimSentences(doc), outboundLinks(doc, rawURL)
}

func (t *genericTemplate) Credibility(doc *html.Node, publishedAt *time.Time) model.Credibility {
	if recentWithin(publishedAt, 365*24*time.Hour) {
		return model.CredibilityMedium
	}
	return model.CredibilityLow
}
