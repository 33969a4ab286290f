package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the full runtime configuration, layered by the CLI as
// flags > DEEPRESEARCH_* env > config file > these defaults
type Config struct {
	Sessions    SessionsConfig    `yaml:"sessions" mapstructure:"sessions"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Research    ResearchConfig    `yaml:"research" mapstructure:"research"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// SessionsConfig controls where session logs live
type SessionsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// HTTPConfig controls the fetch capability's HTTP client
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// ConcurrencyConfig bounds the worker pools
type ConcurrencyConfig struct {
	SearchWorkers int `yaml:"search_workers" mapstructure:"search_workers"` // W: in-flight search queries
	DiveWorkers   int `yaml:"dive_workers" mapstructure:"dive_workers"`     // tighter bound for same-host fetches
}

// ResearchConfig bounds the research loop itself
type ResearchConfig struct {
	MaxIterations  int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	MinQueries     int           `yaml:"min_queries" mapstructure:"min_queries"`
	MaxQueries     int           `yaml:"max_queries" mapstructure:"max_queries"`
	DiveBudget     int           `yaml:"dive_budget" mapstructure:"dive_budget"`         // deep dives per iteration
	SearchRetries  int           `yaml:"search_retries" mapstructure:"search_retries"`   // attempts before a query is dropped
	TaskTimeout    time.Duration `yaml:"task_timeout" mapstructure:"task_timeout"`       // per-task timeout in the pools
	MaxValidations int           `yaml:"max_validations" mapstructure:"max_validations"` // findings validated per iteration
}

// RateLimitConfig throttles fetches per host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the layered fetch cache
type CacheConfig struct {
	Disabled  bool          `yaml:"disabled" mapstructure:"disabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// LLMConfig configures the optional language-model-backed capability
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".deepresearch")

	return &Config{
		Sessions: SessionsConfig{
			Dir: filepath.Join(base, "sessions"),
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "DeepResearch/0.1 (+https://github.com/SwaroopMeher/deep-research-agent)",
			MaxBodyBytes: 2 << 20, // 2 MiB
		},
		Concurrency: ConcurrencyConfig{
			SearchWorkers: 5,
			DiveWorkers:   3,
		},
		Research: ResearchConfig{
			MaxIterations:  5,
			MinQueries:     5,
			MaxQueries:     15,
			DiveBudget:     8,
			SearchRetries:  3,
			TaskTimeout:    30 * time.Second,
			MaxValidations: 5,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Cache: CacheConfig{
			Dir:       filepath.Join(base, "cache"),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   60 * time.Second,
			MaxTokens: 1024,
		},
	}
}
