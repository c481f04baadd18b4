package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/logger"
)

const DefaultFanOutWorkers = 10

// Taggable rows can be labelled with the entity they were produced for.
type Taggable[R any] interface {
	WithTicker(ticker string) R
}

type FanOutParams struct {
	Op       string
	Entities []string
	Workers  int
}

// EntityFunc produces the rows of one entity.
type EntityFunc[R any] func(ctx context.Context, entity string) ([]R, error)

// FanOut runs fn for every entity on a bounded pool. Rows are tagged and
// appended in completion order by a single collector; each entity's rows stay
// contiguous. Failed entities are logged and omitted.
func FanOut[R Taggable[R]](
	ctx context.Context,
	p FanOutParams,
	fn EntityFunc[R],
	log *logger.Logger,
	metrics domrepo.Metrics,
) []R {
	out := []R{}
	if len(p.Entities) == 0 {
		return out
	}
	if p.Workers <= 0 {
		p.Workers = DefaultFanOutWorkers
	}
	if log == nil {
		log = logger.Nop()
	}

	results := make(chan []R)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for rows := range results {
			out = append(out, rows...)
		}
	}()

	var g errgroup.Group
	g.SetLimit(p.Workers)
	for _, entity := range p.Entities {
		g.Go(func() error {
			rows, err := fn(ctx, entity)
			if err != nil {
				log.Warn(fmt.Sprintf("[%s] %s failed: %v", entity, p.Op, err),
					logger.String("op", p.Op),
					logger.String("ticker", entity),
					logger.String("kind", string(kindLabel(err))))
				if metrics != nil {
					metrics.RecordEntity(p.Op, "failed")
				}
				return nil
			}
			tagged := make([]R, len(rows))
			for i, r := range rows {
				tagged[i] = r.WithTicker(entity)
			}
			if metrics != nil {
				metrics.RecordEntity(p.Op, "ok")
			}
			results <- tagged
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-done

	return out
}
