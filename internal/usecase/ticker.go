package usecase

import (
	"context"
	"strings"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/parser"
	"FinPrompt/internal/prompt"
	"FinPrompt/pkg/logger"
)

const TaskTicker = "ticker"

// TickerUseCase asks the model which ticker a window of closes belongs to.
type TickerUseCase struct {
	prices    domrepo.PriceSource
	completer domrepo.Completer
	log       *logger.Logger
	metrics   domrepo.Metrics
	opts      Options
}

func NewTickerUseCase(prices domrepo.PriceSource, completer domrepo.Completer, log *logger.Logger, metrics domrepo.Metrics, opts Options) *TickerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &TickerUseCase{prices: prices, completer: completer, log: log, metrics: metrics, opts: opts.withDefaults()}
}

type EstimateTickerParams struct {
	Ticker     string
	Range      DateRange
	WindowSize int
}

type EstimateTickersParams struct {
	Tickers    []string
	Range      DateRange
	WindowSize int
}

// EstimateTicker guesses the ticker of every window of the given ticker's closes.
func (uc *TickerUseCase) EstimateTicker(ctx context.Context, p EstimateTickerParams) ([]models.Prediction[string], error) {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := requireTicker("estimate", p.Ticker); err != nil {
		return nil, err
	}
	if err := p.Range.validate("estimate"); err != nil {
		return nil, err
	}
	if p.WindowSize <= 0 {
		p.WindowSize = uc.opts.WindowSize
	}

	points := uc.prices.TickerPrices(p.Ticker, p.Range.Start, p.Range.End)
	return RunWindows(ctx, WindowParams{
		Task:        TaskTicker,
		Ticker:      p.Ticker,
		Points:      points,
		Size:        p.WindowSize,
		Workers:     uc.opts.WindowWorkers,
		Temperature: uc.opts.Temperature,
	}, prompt.RenderTicker, uc.completer, parser.Ticker, uc.log, uc.metrics), nil
}

// EstimateTickers fans EstimateTicker out over tickers.
func (uc *TickerUseCase) EstimateTickers(ctx context.Context, p EstimateTickersParams) ([]models.Prediction[string], error) {
	tickers, err := requireTickers("estimate", p.Tickers)
	if err != nil {
		return nil, err
	}
	if err := p.Range.validate("estimate"); err != nil {
		return nil, err
	}

	return FanOut(ctx, FanOutParams{Op: "estimate", Entities: tickers, Workers: uc.opts.Workers},
		func(ctx context.Context, ticker string) ([]models.Prediction[string], error) {
			return uc.EstimateTicker(ctx, EstimateTickerParams{Ticker: ticker, Range: p.Range, WindowSize: p.WindowSize})
		}, uc.log, uc.metrics), nil
}
