package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/parser"
	"FinPrompt/internal/prompt"
	"FinPrompt/pkg/logger"
)

const TaskPrice = "price"

// ForecastUseCase predicts next-day closes window by window.
type ForecastUseCase struct {
	prices    domrepo.PriceSource
	sentiment domrepo.SentimentSource
	completer domrepo.Completer
	log       *logger.Logger
	metrics   domrepo.Metrics
	opts      Options
}

// NewForecastUseCase wires the forecast pipeline. sentiment may be nil.
func NewForecastUseCase(prices domrepo.PriceSource, sentiment domrepo.SentimentSource, completer domrepo.Completer, log *logger.Logger, metrics domrepo.Metrics, opts Options) *ForecastUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ForecastUseCase{prices: prices, sentiment: sentiment, completer: completer, log: log, metrics: metrics, opts: opts.withDefaults()}
}

type ForecastParams struct {
	Ticker     string
	Range      DateRange
	WindowSize int
	WithNews   bool
}

type ForecastTickersParams struct {
	Tickers    []string
	Range      DateRange
	WindowSize int
	WithNews   bool
}

// Forecast runs one completion per window of the ticker's closes in the range.
func (uc *ForecastUseCase) Forecast(ctx context.Context, p ForecastParams) ([]models.Prediction[decimal.Decimal], error) {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := requireTicker("forecast", p.Ticker); err != nil {
		return nil, err
	}
	if err := p.Range.validate("forecast"); err != nil {
		return nil, err
	}
	if p.WindowSize <= 0 {
		p.WindowSize = uc.opts.WindowSize
	}

	points := uc.prices.TickerPrices(p.Ticker, p.Range.Start, p.Range.End)
	render := RenderFunc(prompt.RenderPrice)
	if p.WithNews {
		render = func(window []models.PricePoint) (string, error) {
			var scores []models.SentimentScore
			if uc.sentiment != nil {
				scores = uc.sentiment.Scores(p.Ticker, window[0].Date, window[len(window)-1].Date)
			}
			return prompt.RenderPriceNews(window, scores)
		}
	}

	uc.log.Info("forecast started",
		logger.String("ticker", p.Ticker),
		logger.Int("points", len(points)),
		logger.Int("window_size", p.WindowSize),
		logger.Bool("with_news", p.WithNews))

	return RunWindows(ctx, WindowParams{
		Task:        TaskPrice,
		Ticker:      p.Ticker,
		Points:      points,
		Size:        p.WindowSize,
		Workers:     uc.opts.WindowWorkers,
		Temperature: uc.opts.Temperature,
	}, render, uc.completer, parser.Price, uc.log, uc.metrics), nil
}

// ForecastTickers fans Forecast out over tickers.
func (uc *ForecastUseCase) ForecastTickers(ctx context.Context, p ForecastTickersParams) ([]models.Prediction[decimal.Decimal], error) {
	tickers, err := requireTickers("forecast", p.Tickers)
	if err != nil {
		return nil, err
	}
	if err := p.Range.validate("forecast"); err != nil {
		return nil, err
	}

	return FanOut(ctx, FanOutParams{Op: "forecast", Entities: tickers, Workers: uc.opts.Workers},
		func(ctx context.Context, ticker string) ([]models.Prediction[decimal.Decimal], error) {
			return uc.Forecast(ctx, ForecastParams{Ticker: ticker, Range: p.Range, WindowSize: p.WindowSize, WithNews: p.WithNews})
		}, uc.log, uc.metrics), nil
}
