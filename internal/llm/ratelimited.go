package llm

import (
	"context"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/repository"
	"FinPrompt/internal/service/ratelimit"
)

// RateLimited waits for a token before each call.
type RateLimited struct {
	next    repository.Completer
	limiter *ratelimit.Limiter
	key     string
}

func NewRateLimited(next repository.Completer, limiter *ratelimit.Limiter, key string) *RateLimited {
	return &RateLimited{next: next, limiter: limiter, key: key}
}

func (r *RateLimited) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if err := r.limiter.Wait(ctx, r.key); err != nil {
		return "", apperr.CompletionFailure(r.key, err)
	}
	return r.next.Complete(ctx, system, user, temperature)
}
