package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/parser"
	"FinPrompt/internal/prompt"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/util"
)

const DefaultWindowSize = 30

// RenderFunc turns a window of closes into a prompt.
type RenderFunc func(window []models.PricePoint) (string, error)

type WindowParams struct {
	Task        string
	Ticker      string
	Points      []models.PricePoint
	Size        int
	Workers     int
	Temperature float64
}

// RunWindows slides a fixed-size window over points, one completion per window.
// Windows whose render, completion or parse fails are logged and skipped.
// Records come back in chronological order with EstimatedDate filled in.
func RunWindows[T any](
	ctx context.Context,
	p WindowParams,
	render RenderFunc,
	completer domrepo.Completer,
	parse parser.Func[T],
	log *logger.Logger,
	metrics domrepo.Metrics,
) []models.Prediction[T] {
	if p.Size <= 0 {
		p.Size = DefaultWindowSize
	}
	if log == nil {
		log = logger.Nop()
	}
	n := len(p.Points)
	if n <= p.Size {
		return []models.Prediction[T]{}
	}

	slots := make([]*models.Prediction[T], n-p.Size)
	process := func(ctx context.Context, i int) {
		window := p.Points[i-p.Size : i]
		last := window[len(window)-1]

		est, err := runWindow(ctx, window, render, completer, parse, p.Temperature)
		if err != nil {
			log.Warn("window skipped",
				logger.String("task", p.Task),
				logger.String("ticker", p.Ticker),
				logger.Date("last_date", last.Date),
				logger.Error(err))
			if metrics != nil {
				metrics.RecordWindow(p.Task, string(kindLabel(err)))
			}
			return
		}
		if metrics != nil {
			metrics.RecordWindow(p.Task, "ok")
		}
		slots[i-p.Size] = &models.Prediction[T]{
			Ticker:    p.Ticker,
			Task:      p.Task,
			Estimated: est,
			LastDate:  last.Date,
			LastClose: last.Close,
		}
	}

	if p.Workers <= 1 {
		for i := p.Size; i < n; i++ {
			if ctx.Err() != nil {
				break
			}
			process(ctx, i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.Workers)
		for i := p.Size; i < n; i++ {
			g.Go(func() error {
				process(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make([]models.Prediction[T], 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	fillEstimatedDates(out)
	return out
}

func runWindow[T any](ctx context.Context, window []models.PricePoint, render RenderFunc, completer domrepo.Completer, parse parser.Func[T], temperature float64) (T, error) {
	var zero T
	userPrompt, err := render(window)
	if err != nil {
		return zero, err
	}
	reply, err := completer.Complete(ctx, prompt.SystemPrompt, userPrompt, temperature)
	if err != nil {
		return zero, err
	}
	return parse(reply)
}

// fillEstimatedDates points each record at the next record's last date;
// the final record moves one business day forward.
func fillEstimatedDates[T any](preds []models.Prediction[T]) {
	for i := range preds {
		if i+1 < len(preds) {
			preds[i].EstimatedDate = preds[i+1].LastDate
			continue
		}
		preds[i].EstimatedDate = util.NextBusinessDay(preds[i].LastDate)
	}
}

func kindLabel(err error) apperr.Kind {
	if k := apperr.KindOf(err); k != "" {
		return k
	}
	return "error"
}
