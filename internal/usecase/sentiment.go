package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/parser"
	"FinPrompt/internal/prompt"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/util"
)

// SentimentUseCase scores news articles one completion at a time.
type SentimentUseCase struct {
	news      domrepo.NewsSource
	completer domrepo.Completer
	log       *logger.Logger
	metrics   domrepo.Metrics
	opts      Options
}

func NewSentimentUseCase(news domrepo.NewsSource, completer domrepo.Completer, log *logger.Logger, metrics domrepo.Metrics, opts Options) *SentimentUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &SentimentUseCase{news: news, completer: completer, log: log, metrics: metrics, opts: opts.withDefaults()}
}

type SentimentParams struct {
	Ticker string
	Range  DateRange
}

type SentimentTickersParams struct {
	Tickers []string
	Range   DateRange
}

// AnalyzeSentiment scores a single news item.
func (uc *SentimentUseCase) AnalyzeSentiment(ctx context.Context, item models.NewsItem) (models.SentimentRecord, error) {
	userPrompt, err := prompt.RenderNews(item)
	if err != nil {
		return models.SentimentRecord{}, err
	}
	reply, err := uc.completer.Complete(ctx, prompt.SystemPrompt, userPrompt, uc.opts.Temperature)
	if err != nil {
		return models.SentimentRecord{}, err
	}
	s, err := parser.ParseSentiment(reply)
	if err != nil {
		return models.SentimentRecord{}, err
	}
	return models.SentimentRecord{
		Ticker:     item.Ticker,
		Date:       item.Date,
		Headline:   item.Headline,
		Summary:    item.Summary,
		Score:      s.Score,
		Confidence: s.Confidence,
		Reason:     s.Reason,
	}, nil
}

// AnalyzeTickerSentiments scores every article of a ticker in the range on a
// bounded pool. Failed articles are logged and dropped.
func (uc *SentimentUseCase) AnalyzeTickerSentiments(ctx context.Context, p SentimentParams) ([]models.SentimentRecord, error) {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := requireTicker("sentiment", p.Ticker); err != nil {
		return nil, err
	}
	if err := p.Range.validate("sentiment"); err != nil {
		return nil, err
	}

	items := uc.news.TickerNews(p.Ticker, p.Range.Start, p.Range.End)
	out := make([]models.SentimentRecord, 0, len(items))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(uc.opts.NewsWorkers)
	for _, item := range items {
		g.Go(func() error {
			rec, err := uc.AnalyzeSentiment(ctx, item)
			if err != nil {
				uc.log.Warn(fmt.Sprintf("[%s | %s] sentiment failed: %v", item.Ticker, util.FormatDate(item.Date), err),
					logger.String("ticker", item.Ticker),
					logger.Date("date", item.Date),
					logger.String("kind", string(kindLabel(err))))
				return nil
			}
			mu.Lock()
			out = append(out, rec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// AnalyzeTickersSentiments fans AnalyzeTickerSentiments out over tickers.
func (uc *SentimentUseCase) AnalyzeTickersSentiments(ctx context.Context, p SentimentTickersParams) ([]models.SentimentRecord, error) {
	tickers, err := requireTickers("sentiment", p.Tickers)
	if err != nil {
		return nil, err
	}
	if err := p.Range.validate("sentiment"); err != nil {
		return nil, err
	}

	return FanOut(ctx, FanOutParams{Op: "sentiment", Entities: tickers, Workers: uc.opts.Workers},
		func(ctx context.Context, ticker string) ([]models.SentimentRecord, error) {
			return uc.AnalyzeTickerSentiments(ctx, SentimentParams{Ticker: ticker, Range: p.Range})
		}, uc.log, uc.metrics), nil
}
