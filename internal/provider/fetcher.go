package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/SwaroopMeher/deep-research-agent/internal/cache"
	"github.com/SwaroopMeher/deep-research-agent/internal/model"
	"github.com/SwaroopMeher/deep-research-agent/internal/worker"
)

// HTTPFetcher is the default Fetch capability: a robots-aware,
// per-host rate-limited HTTP client with a layered cache in front
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	limiter   *worker.Limiter
	robots    *robotsGate
	cache     cache.Cache // nil disables caching
}

// NewHTTPFetcher creates a fetcher from configuration
func NewHTTPFetcher(httpCfg model.HTTPConfig, rateCfg model.RateLimitConfig, fetchCache cache.Cache) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		limiter:   worker.NewLimiter(rateCfg.RequestsPerSecond, rateCfg.Burst),
		robots:    newRobotsGate(httpCfg.UserAgent, httpCfg.Timeout),
		cache:     fetchCache,
	}
}

// Fetch retrieves a document, consulting the cache first
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.Document, error) {
	if f.cache != nil {
		if data, found := f.cache.Get(cache.Key(rawURL)); found {
			var doc model.Document
			if err := json.Unmarshal(data, &doc); err == nil {
				return &doc, nil
			}
		}
	}

	allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: err}
	}
	if !allowed {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: fmt.Errorf("disallowed by robots.txt")}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: err}
	}
	if crawlDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: ctx.Err()}
		case <-time.After(crawlDelay):
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &model.ProviderError{Op: "fetch", Target: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	doc := &model.Document{
		URL:         resp.Request.URL.String(),
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now().UTC(),
		PublishedAt: sniffPublishedAt(resp.Header.Get("Last-Modified"), string(body)),
	}

	if f.cache != nil {
		if data, err := json.Marshal(doc); err == nil {
			_ = f.cache.Set(cache.Key(rawURL), data, 0)
		}
	}

	return doc, nil
}

// sniffPublishedAt looks for a declared publication date, preferring
// in-document metadata over the Last-Modified header
func sniffPublishedAt(lastModified, body string) *time.Time {
	if t := parseMetaDate(body); t != nil {
		return t
	}
	if lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			return &t
		}
	}
	return nil
}

// parseMetaDate scans the document for article:published_time meta
// tags or <time datetime="..."> elements
func parseMetaDate(body string) *time.Time {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var found *time.Time
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var prop, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property", "name":
						prop = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if (prop == "article:published_time" || prop == "date" || prop == "og:updated_time") && content != "" {
					if t := parseFlexibleDate(content); t != nil {
						found = t
						return
					}
				}
			case "time":
				for _, attr := range n.Attr {
					if attr.Key == "datetime" {
						if t := parseFlexibleDate(attr.Val); t != nil {
							found = t
							return
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func parseFlexibleDate(value string) *time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
