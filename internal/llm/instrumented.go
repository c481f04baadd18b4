package llm

import (
	"context"
	"time"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/logger"
)

// Instrumented records metrics and logs around each completion.
type Instrumented struct {
	next     repository.Completer
	provider string
	metrics  repository.Metrics
	log      *logger.Logger
}

func NewInstrumented(next repository.Completer, provider string, metrics repository.Metrics, log *logger.Logger) *Instrumented {
	if log == nil {
		log = logger.Nop()
	}
	return &Instrumented{next: next, provider: provider, metrics: metrics, log: log}
}

func (i *Instrumented) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	start := time.Now()
	reply, err := i.next.Complete(ctx, system, user, temperature)
	elapsed := time.Since(start)

	if i.metrics != nil {
		i.metrics.RecordLatency("complete", elapsed.Seconds())
	}
	if err != nil {
		if i.metrics != nil {
			i.metrics.RecordCompletion(i.provider, "error")
			kind := apperr.KindOf(err)
			if kind == "" {
				kind = "unknown"
			}
			i.metrics.RecordError(string(kind))
		}
		i.log.Error("completion failed",
			logger.String("provider", i.provider),
			logger.Duration("elapsed_ms", elapsed),
			logger.Error(err))
		return "", err
	}

	if i.metrics != nil {
		i.metrics.RecordCompletion(i.provider, "ok")
	}
	i.log.Debug("completion",
		logger.String("provider", i.provider),
		logger.Float64("temperature", temperature),
		logger.Int("prompt_chars", len(user)),
		logger.Int("reply_chars", len(reply)),
		logger.Duration("elapsed_ms", elapsed))
	return reply, nil
}
