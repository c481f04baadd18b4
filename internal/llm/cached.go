package llm

import (
	"context"
	"strconv"
	"time"

	"FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/cache"
)

// Cached memoizes successful replies. Failures are never stored.
type Cached struct {
	next     repository.Completer
	store    cache.Service
	provider string
	model    string
	ttl      time.Duration
}

func NewCached(next repository.Completer, store cache.Service, provider, model string, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, provider: provider, model: model, ttl: ttl}
}

func (c *Cached) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	key := c.Key(system, user, temperature)
	if reply, err := c.store.Get(ctx, key); err == nil {
		return reply, nil
	}

	reply, err := c.next.Complete(ctx, system, user, temperature)
	if err != nil {
		return "", err
	}
	// a cache write failure must not fail the completion
	_ = c.store.Set(ctx, key, reply, c.ttl)
	return reply, nil
}

// Key identifies a request: provider, model, temperature, system and user prompt.
func (c *Cached) Key(system, user string, temperature float64) string {
	return cache.GenerateKey("completion", cache.HashKey(
		c.provider,
		c.model,
		strconv.FormatFloat(temperature, 'f', -1, 64),
		system,
		user,
	))
}
