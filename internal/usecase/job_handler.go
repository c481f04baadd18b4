package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	pkgkafka "FinPrompt/pkg/kafka"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/util"
)

// Job kinds accepted on the jobs topic. They double as the result kind.
const (
	JobForecast  = "forecast"
	JobEstimate  = "estimate"
	JobSentiment = "sentiment"
	JobEarnings  = "earnings"
)

// Job is the JSON schema of a pipeline request on the jobs topic.
type Job struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Tickers    []string `json:"tickers"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	WindowSize int      `json:"window_size"`
	WithNews   bool     `json:"with_news"`
	Year       int      `json:"year"`
	Quarter    string   `json:"quarter"`
}

// JobHandler consumes pipeline jobs from Kafka and publishes their results.
type JobHandler struct {
	topic     string
	forecast  *ForecastUseCase
	ticker    *TickerUseCase
	sentiment *SentimentUseCase
	earnings  *EarningsUseCase
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
}

var _ pkgkafka.MessageHandler = (*JobHandler)(nil)

type JobHandlerParams struct {
	Topic     string
	Forecast  *ForecastUseCase
	Ticker    *TickerUseCase
	Sentiment *SentimentUseCase
	Earnings  *EarningsUseCase
	Publisher domrepo.ResultPublisher
	Metrics   domrepo.Metrics
	Log       *logger.Logger
}

func NewJobHandler(p JobHandlerParams) *JobHandler {
	if p.Log == nil {
		p.Log = logger.Nop()
	}
	return &JobHandler{
		topic:     p.Topic,
		forecast:  p.Forecast,
		ticker:    p.Ticker,
		sentiment: p.Sentiment,
		earnings:  p.Earnings,
		publisher: p.Publisher,
		metrics:   p.Metrics,
		log:       p.Log,
	}
}

func (h *JobHandler) Topic() string { return h.topic }

// Handle runs one job. Malformed jobs are permanent failures; completion and
// publish failures are returned as-is so the consumer retries them.
func (h *JobHandler) Handle(ctx context.Context, b []byte) error {
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		h.recordError("job_unmarshal")
		return pkgkafka.Permanent(apperr.InvalidParameter("job", "decode: %v", err))
	}
	if job.ID != "" && pkgkafka.RunIDFrom(ctx) == "" {
		ctx = pkgkafka.WithRunID(ctx, job.ID)
	}

	start := time.Now()
	rows, err := h.run(ctx, job)
	if h.metrics != nil {
		h.metrics.RecordLatency("job_"+job.Kind, time.Since(start).Seconds())
	}
	if err != nil {
		h.recordError("job_" + string(kindLabel(err)))
		switch apperr.KindOf(err) {
		case apperr.KindInvalidParameter, apperr.KindDataNotFound:
			return pkgkafka.Permanent(err)
		}
		return err
	}

	if err := h.publisher.PublishResults(ctx, job.Kind, rows); err != nil {
		h.recordError("job_publish")
		return fmt.Errorf("publish %s results: %w", job.Kind, err)
	}
	h.log.Info("job done",
		logger.String("id", job.ID),
		logger.String("kind", job.Kind),
		logger.Strings("tickers", job.Tickers),
		logger.Int("rows", len(rows)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (h *JobHandler) run(ctx context.Context, job Job) ([]domrepo.ResultRow, error) {
	switch job.Kind {
	case JobForecast:
		r, err := job.dateRange()
		if err != nil {
			return nil, err
		}
		out, err := h.forecast.ForecastTickers(ctx, ForecastTickersParams{Tickers: job.Tickers, Range: r, WindowSize: job.WindowSize, WithNews: job.WithNews})
		return ResultRows(out, func(p models.Prediction[decimal.Decimal]) string { return p.Ticker }), err
	case JobEstimate:
		r, err := job.dateRange()
		if err != nil {
			return nil, err
		}
		out, err := h.ticker.EstimateTickers(ctx, EstimateTickersParams{Tickers: job.Tickers, Range: r, WindowSize: job.WindowSize})
		return ResultRows(out, func(p models.Prediction[string]) string { return p.Ticker }), err
	case JobSentiment:
		r, err := job.dateRange()
		if err != nil {
			return nil, err
		}
		out, err := h.sentiment.AnalyzeTickersSentiments(ctx, SentimentTickersParams{Tickers: job.Tickers, Range: r})
		return ResultRows(out, func(s models.SentimentRecord) string { return s.Ticker }), err
	case JobEarnings:
		tickers := job.Tickers
		if len(tickers) == 0 {
			tickers = h.earnings.StatementTickers()
		}
		out, err := h.earnings.EstimateEarningsTickers(ctx, EarningsTickersParams{Tickers: tickers, Year: job.Year, Quarter: job.Quarter})
		return ResultRows(out, func(e models.EarningsEstimate) string { return e.Ticker }), err
	default:
		return nil, apperr.InvalidParameter("job", "unknown kind %q", job.Kind)
	}
}

// SubmitJob validates job and enqueues it, returning the job id.
func SubmitJob(ctx context.Context, q domrepo.JobQueue, job Job) (string, error) {
	if err := job.validate(); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	b, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.Enqueue(ctx, job.ID, b); err != nil {
		return "", fmt.Errorf("enqueue %s job: %w", job.Kind, err)
	}
	return job.ID, nil
}

func (j *Job) validate() error {
	switch j.Kind {
	case JobForecast, JobEstimate, JobSentiment:
		r, err := j.dateRange()
		if err != nil {
			return err
		}
		if err := r.validate("job"); err != nil {
			return err
		}
		tickers, err := requireTickers("job", j.Tickers)
		if err != nil {
			return err
		}
		j.Tickers = tickers
		if j.WindowSize < 0 {
			return apperr.InvalidParameter("job", "window_size must not be negative")
		}
	case JobEarnings:
		if j.Year <= 0 {
			return apperr.InvalidParameter("job", "year is required")
		}
		if _, err := models.ParseQuarter(j.Quarter); err != nil {
			return err
		}
		if len(j.Tickers) > 0 {
			tickers, err := requireTickers("job", j.Tickers)
			if err != nil {
				return err
			}
			j.Tickers = tickers
		}
	default:
		return apperr.InvalidParameter("job", "unknown kind %q", j.Kind)
	}
	return nil
}

func (j Job) dateRange() (DateRange, error) {
	start, ok := util.ParseDate(j.Start)
	if !ok {
		return DateRange{}, apperr.InvalidParameter("job", "invalid start date %q", j.Start)
	}
	end, ok := util.ParseDate(j.End)
	if !ok {
		return DateRange{}, apperr.InvalidParameter("job", "invalid end date %q", j.End)
	}
	return DateRange{Start: start, End: end}, nil
}

func (h *JobHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

// ResultRows tags each row with its ticker for publishing.
func ResultRows[R any](rows []R, ticker func(R) string) []domrepo.ResultRow {
	out := make([]domrepo.ResultRow, len(rows))
	for i, r := range rows {
		out[i] = domrepo.ResultRow{Ticker: ticker(r), Payload: r}
	}
	return out
}
