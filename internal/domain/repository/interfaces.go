package repository

import (
	"context"
	"time"

	"FinPrompt/internal/domain/models"
)

// PriceSource exposes read-only daily close history.
type PriceSource interface {
	TickerPrices(ticker string, start, end time.Time) []models.PricePoint
	TickersPrices(tickers []string, start, end time.Time) map[string][]models.PricePoint
	Statistics(ticker string, start, end time.Time) (models.TickerStatistics, error)
	Universe(start, end *time.Time, minCount int) []models.UniverseEntry
}

// NewsSource exposes read-only news history.
type NewsSource interface {
	TickerNews(ticker string, start, end time.Time) []models.NewsItem
	TickersNews(tickers []string, start, end time.Time) map[string][]models.NewsItem
	Universe(start, end *time.Time, minCount int) []models.UniverseEntry
}

// TranscriptSource exposes earnings-call transcripts.
type TranscriptSource interface {
	PreviousQuarters(ticker string, year int, q models.Quarter, n int) ([]models.Transcript, error)
}

// StatementSource exposes quarterly financial statements.
type StatementSource interface {
	Tickers() []string
	PreviousQuarters(ticker string, year int, q models.Quarter, n int) ([]models.QuarterStatements, error)
}

// SentimentSource exposes previously exported sentiment scores.
type SentimentSource interface {
	Scores(ticker string, start, end time.Time) []models.SentimentScore
}

// Completer is a single-attempt chat completion.
type Completer interface {
	Complete(ctx context.Context, system, user string, temperature float64) (string, error)
}

// ResultPublisher ships result rows to downstream consumers.
type ResultPublisher interface {
	PublishResults(ctx context.Context, kind string, rows []ResultRow) error
	Close() error
}

// ResultRow is a tagged result row ready to publish.
type ResultRow struct {
	Ticker  string
	Payload interface{}
}

// JobQueue accepts pipeline jobs for asynchronous processing.
type JobQueue interface {
	Enqueue(ctx context.Context, id string, payload []byte) error
}

// Metrics records pipeline counters and latencies.
type Metrics interface {
	RecordCompletion(provider, result string)
	RecordWindow(task, result string)
	RecordEntity(op, result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
