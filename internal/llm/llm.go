// Package llm provides chat-completion clients and the decorators composed around them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinPrompt/internal/domain/repository"
	"FinPrompt/internal/service/ratelimit"
	"FinPrompt/pkg/cache"
	"FinPrompt/pkg/logger"
)

// Provider names a completion backend.
type Provider string

const (
	OpenAI Provider = "openai"
	Claude Provider = "claude"
	Gemini Provider = "gemini"
)

const (
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.1
	DefaultBaseURL     = "https://api.deepseek.com"
	defaultMaxTokens   = 1024
)

var errEmptyReply = errors.New("empty reply")

// Config selects and configures a provider.
type Config struct {
	Provider  Provider
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
	Timeout   time.Duration

	// RPS <= 0 disables rate limiting.
	RPS   float64
	Burst int

	CacheTTL time.Duration
}

func (c *Config) setDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Provider == "" {
		c.Provider = DetectProvider(c.Model)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
}

// DetectProvider picks a provider from a model name, defaulting to OpenAI-compatible.
func DetectProvider(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"), strings.HasPrefix(m, "claude/"), strings.HasPrefix(m, "anthropic/"):
		return Claude
	case strings.HasPrefix(m, "gemini-"), strings.HasPrefix(m, "gemini/"), strings.HasPrefix(m, "google/"):
		return Gemini
	default:
		return OpenAI
	}
}

// NormalizeModel strips a provider prefix such as "claude/".
func NormalizeModel(model string) string {
	for _, p := range []string{"claude/", "anthropic/", "gemini/", "google/", "openai/"} {
		if strings.HasPrefix(strings.ToLower(model), p) {
			return model[len(p):]
		}
	}
	return model
}

// Option adds a decorator dependency to New.
type Option func(*options)

type options struct {
	cache   cache.Service
	limiter *ratelimit.Limiter
	metrics repository.Metrics
	log     *logger.Logger
}

// WithCache memoizes replies in c.
func WithCache(c cache.Service) Option {
	return func(o *options) { o.cache = c }
}

// WithLimiter throttles calls through l, keyed by provider.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithMetrics records completion counters and latency.
func WithMetrics(m repository.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger logs each completion at debug and failures at error.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// New builds the provider client and wraps it: instrumentation, then cache, then rate limit.
func New(ctx context.Context, cfg Config, opts ...Option) (repository.Completer, error) {
	cfg.setDefaults()
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var (
		base repository.Completer
		err  error
	)
	switch cfg.Provider {
	case OpenAI:
		base = NewOpenAIClient(cfg)
	case Claude:
		base = NewClaudeClient(cfg)
	case Gemini:
		base, err = NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	c := base
	if o.limiter != nil && o.limiter.Enabled() {
		c = NewRateLimited(c, o.limiter, string(cfg.Provider))
	}
	if o.cache != nil {
		c = NewCached(c, o.cache, string(cfg.Provider), cfg.Model, cfg.CacheTTL)
	}
	if o.metrics != nil || o.log != nil {
		c = NewInstrumented(c, string(cfg.Provider), o.metrics, o.log)
	}
	return c, nil
}
