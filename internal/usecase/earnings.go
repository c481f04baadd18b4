package usecase

import (
	"context"
	"strings"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/parser"
	"FinPrompt/internal/prompt"
	"FinPrompt/pkg/logger"
)

const (
	earningsStatementQuarters  = 2
	earningsTranscriptQuarters = 1
)

// EarningsUseCase forecasts next-quarter revenue and EPS.
type EarningsUseCase struct {
	statements  domrepo.StatementSource
	transcripts domrepo.TranscriptSource
	news        domrepo.NewsSource
	completer   domrepo.Completer
	log         *logger.Logger
	metrics     domrepo.Metrics
	opts        Options
}

func NewEarningsUseCase(statements domrepo.StatementSource, transcripts domrepo.TranscriptSource, news domrepo.NewsSource, completer domrepo.Completer, log *logger.Logger, metrics domrepo.Metrics, opts Options) *EarningsUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &EarningsUseCase{
		statements:  statements,
		transcripts: transcripts,
		news:        news,
		completer:   completer,
		log:         log,
		metrics:     metrics,
		opts:        opts.withDefaults(),
	}
}

type EarningsParams struct {
	Ticker  string
	Year    int
	Quarter string
}

type EarningsTickersParams struct {
	Tickers []string
	Year    int
	Quarter string
}

// EstimateEarnings builds the prompt from the two previous quarters of statements,
// the previous earnings call and the news of the target quarter.
func (uc *EarningsUseCase) EstimateEarnings(ctx context.Context, p EarningsParams) (models.EarningsEstimate, error) {
	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := requireTicker("earnings", ticker); err != nil {
		return models.EarningsEstimate{}, err
	}
	q, err := models.ParseQuarter(p.Quarter)
	if err != nil {
		return models.EarningsEstimate{}, err
	}
	if p.Year <= 0 {
		return models.EarningsEstimate{}, apperr.InvalidParameter("earnings", "invalid year %d", p.Year)
	}
	start, end, err := models.QuarterRange(p.Year, q)
	if err != nil {
		return models.EarningsEstimate{}, err
	}

	calls, err := uc.transcripts.PreviousQuarters(ticker, p.Year, q, earningsTranscriptQuarters)
	if err != nil {
		return models.EarningsEstimate{}, err
	}
	statements, err := uc.statements.PreviousQuarters(ticker, p.Year, q, earningsStatementQuarters)
	if err != nil {
		return models.EarningsEstimate{}, err
	}
	news := uc.news.TickerNews(ticker, start, end)

	uc.log.Debug("earnings prompt inputs",
		logger.String("ticker", ticker),
		logger.String("quarter", string(q)),
		logger.Int("year", p.Year),
		logger.Int("statements", len(statements)),
		logger.Int("transcripts", len(calls)),
		logger.Int("news", len(news)))

	userPrompt, err := prompt.RenderEarnings(statements, calls, news)
	if err != nil {
		return models.EarningsEstimate{}, err
	}
	reply, err := uc.completer.Complete(ctx, prompt.SystemPrompt, userPrompt, uc.opts.Temperature)
	if err != nil {
		return models.EarningsEstimate{}, err
	}
	e, err := parser.ParseEarnings(reply)
	if err != nil {
		return models.EarningsEstimate{}, err
	}

	uc.log.Debug("earnings estimated",
		logger.String("ticker", ticker),
		logger.Int64("est_revenue", e.Revenue),
		logger.String("est_eps", e.EPS.String()))

	return models.EarningsEstimate{
		Ticker:     ticker,
		EstRevenue: e.Revenue,
		EstEPS:     e.EPS,
		Year:       p.Year,
		Quarter:    q,
	}, nil
}

// EstimateEarningsTickers fans EstimateEarnings out over tickers.
func (uc *EarningsUseCase) EstimateEarningsTickers(ctx context.Context, p EarningsTickersParams) ([]models.EarningsEstimate, error) {
	tickers, err := requireTickers("earnings", p.Tickers)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseQuarter(p.Quarter); err != nil {
		return nil, err
	}

	return FanOut(ctx, FanOutParams{Op: "earnings", Entities: tickers, Workers: uc.opts.Workers},
		func(ctx context.Context, ticker string) ([]models.EarningsEstimate, error) {
			est, err := uc.EstimateEarnings(ctx, EarningsParams{Ticker: ticker, Year: p.Year, Quarter: p.Quarter})
			if err != nil {
				return nil, err
			}
			return []models.EarningsEstimate{est}, nil
		}, uc.log, uc.metrics), nil
}

// StatementTickers lists tickers with financial statements, for "all tickers" runs.
func (uc *EarningsUseCase) StatementTickers() []string {
	return uc.statements.Tickers()
}
