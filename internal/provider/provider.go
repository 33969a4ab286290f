package provider

import (
	"context"
	"fmt"

	"github.com/SwaroopMeher/deep-research-agent/internal/cache"
	"github.com/SwaroopMeher/deep-research-agent/internal/model"
)

// Searcher executes one query against an external search source.
// Implementations must be safe for concurrent use and safe to retry.
type Searcher interface {
	Search(ctx context.Context, query model.Query) ([]model.SearchResult, error)
}

// Fetcher retrieves a document from a URL. Implementations must be
// safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Document, error)
}

// Extractor turns a fetched document into claims and follow-up leads.
// The deep-dive analyzer falls back to its built-in templates when no
// extractor is configured; an extractor may be backed by heuristics or
// a language model, the contract is the same.
type Extractor interface {
	Extract(ctx context.Context, doc *model.Document, category model.SourceCategory) ([]model.Claim, []string, error)
}

// Capabilities bundles the pluggable external capabilities the
// research loop depends on
type Capabilities struct {
	Searcher  Searcher
	Fetcher   Fetcher
	Extractor Extractor // optional; nil means template extraction only
}

// NewCapabilities wires the default capability set from configuration:
// a web searcher and a robots-aware, rate-limited, cached HTTP fetcher,
// plus an LLM extractor when one is configured.
func NewCapabilities(cfg *model.Config) (*Capabilities, error) {
	var fetchCache cache.Cache
	if !cfg.Cache.Disabled {
		fetchCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	fetcher := NewHTTPFetcher(cfg.HTTP, cfg.RateLimit, fetchCache)

	caps := &Capabilities{
		Searcher: NewWebSearcher(cfg.HTTP),
		Fetcher:  fetcher,
	}

	if cfg.LLM.Provider != "" {
		extractor, err := NewLLMExtractor(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("init llm extractor: %w", err)
		}
		caps.Extractor = extractor
	}

	return caps, nil
}
