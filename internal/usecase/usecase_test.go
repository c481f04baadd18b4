package usecase

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/extractor"
	pkgkafka "FinPrompt/pkg/kafka"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/util"
)

type stubCompleter struct {
	reply func(user string) (string, error)
	calls atomic.Int32

	mu      sync.Mutex
	prompts []string
	temps   []float64
}

func (s *stubCompleter) Complete(_ context.Context, _, user string, temperature float64) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.prompts = append(s.prompts, user)
	s.temps = append(s.temps, temperature)
	s.mu.Unlock()
	return s.reply(user)
}

func constReply(reply string) *stubCompleter {
	return &stubCompleter{reply: func(string) (string, error) { return reply, nil }}
}

type fakeMetrics struct {
	mu      sync.Mutex
	windows map[string]int
	errs    map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{windows: map[string]int{}, errs: map[string]int{}}
}

func (m *fakeMetrics) RecordCompletion(string, string) {}
func (m *fakeMetrics) RecordEntity(string, string)     {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) RecordWindow(task, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[task+"/"+result]++
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func day(s string) time.Time {
	t, _ := util.ParseDate(s)
	return t
}

// businessDays returns n consecutive weekdays starting at start.
func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := start
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func priceRows(ticker string, dates []time.Time) []models.PriceRow {
	rows := make([]models.PriceRow, len(dates))
	for i, d := range dates {
		rows[i] = models.PriceRow{Ticker: ticker, Date: d, Close: decimal.NewFromInt(int64(100 + i))}
	}
	return rows
}

func fullRange() DateRange {
	return DateRange{Start: day("2024-01-01"), End: day("2024-12-31")}
}

func TestForecastWindows(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 32)
	prices := extractor.NewPriceExtractor(priceRows("AAPL", dates))
	completer := constReply("Reasoning...\n###!PRICE!### 101.50")

	uc := NewForecastUseCase(prices, nil, completer, nil, nil, DefaultOptions())
	out, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "aapl", Range: fullRange(), WindowSize: 30})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualValues(t, 2, completer.calls.Load())

	assert.Equal(t, "101.5", out[0].Estimated.String())
	assert.Equal(t, "AAPL", out[0].Ticker)
	assert.Equal(t, TaskPrice, out[0].Task)
	assert.True(t, out[0].LastDate.Equal(dates[29]))
	assert.Equal(t, "129", out[0].LastClose.String())
	assert.True(t, out[0].EstimatedDate.Equal(out[1].LastDate))
	assert.True(t, out[1].LastDate.Equal(dates[30]))
	assert.True(t, out[1].EstimatedDate.Equal(util.NextBusinessDay(dates[30])))
	assert.Equal(t, []float64{0.1, 0.1}, completer.temps)
}

func TestForecastTooFewPoints(t *testing.T) {
	prices := extractor.NewPriceExtractor(priceRows("AAPL", businessDays(day("2024-01-01"), 30)))
	completer := constReply("###!PRICE!### 1")

	uc := NewForecastUseCase(prices, nil, completer, nil, nil, DefaultOptions())
	out, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "AAPL", Range: fullRange(), WindowSize: 30})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Zero(t, completer.calls.Load())
}

func TestForecastSkipsMalformedWindow(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 32)
	prices := extractor.NewPriceExtractor(priceRows("AAPL", dates))
	badDate := util.FormatDate(dates[30])
	completer := &stubCompleter{reply: func(user string) (string, error) {
		if strings.Contains(user, badDate) {
			return "I cannot predict prices.", nil
		}
		return "###!PRICE!### 130", nil
	}}
	metrics := newFakeMetrics()

	uc := NewForecastUseCase(prices, nil, completer, nil, metrics, DefaultOptions())
	out, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "AAPL", Range: fullRange(), WindowSize: 30})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].LastDate.Equal(dates[29]))
	assert.True(t, out[0].EstimatedDate.Equal(util.NextBusinessDay(dates[29])))
	assert.Equal(t, 1, metrics.windows["price/ok"])
	assert.Equal(t, 1, metrics.windows["price/"+string(apperr.KindMalformedReply)])
}

func TestForecastConcurrentWindowsKeepOrder(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 60)
	prices := extractor.NewPriceExtractor(priceRows("MSFT", dates))
	completer := constReply("###!PRICE!### 42")

	opts := DefaultOptions()
	opts.WindowWorkers = 8
	uc := NewForecastUseCase(prices, nil, completer, nil, nil, opts)
	out, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "MSFT", Range: fullRange(), WindowSize: 10})
	require.NoError(t, err)
	require.Len(t, out, 50)
	for i := range out {
		assert.True(t, out[i].LastDate.Equal(dates[i+9]), i)
		if i+1 < len(out) {
			assert.True(t, out[i].EstimatedDate.Equal(out[i+1].LastDate), i)
		}
	}
}

func TestForecastWithNewsIncludesWindowSentiment(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 4)
	prices := extractor.NewPriceExtractor(priceRows("NVDA", dates))
	sentiment := extractor.NewSentimentExtractor([]models.SentimentScore{
		{Ticker: "NVDA", Date: dates[1], Score: 8, Confidence: "High"},
		{Ticker: "NVDA", Date: day("2023-06-01"), Score: -9, Confidence: "Low"},
	})
	completer := constReply("###!PRICE!### 500")

	uc := NewForecastUseCase(prices, sentiment, completer, nil, nil, DefaultOptions())
	out, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "NVDA", Range: fullRange(), WindowSize: 3, WithNews: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, completer.prompts, 1)
	assert.Contains(t, completer.prompts[0], `"score": 8`)
	assert.NotContains(t, completer.prompts[0], `"score": -9`)
}

func TestForecastInvalidParams(t *testing.T) {
	uc := NewForecastUseCase(extractor.NewPriceExtractor(nil), nil, constReply(""), nil, nil, DefaultOptions())

	_, err := uc.Forecast(context.Background(), ForecastParams{Ticker: " ", Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = uc.Forecast(context.Background(), ForecastParams{Ticker: "AAPL", Range: DateRange{Start: day("2024-02-01"), End: day("2024-01-01")}})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = uc.ForecastTickers(context.Background(), ForecastTickersParams{Tickers: []string{"", " "}, Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))
}

func TestForecastTickersFansOut(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 5)
	rows := append(priceRows("AAPL", dates), priceRows("MSFT", dates)...)
	prices := extractor.NewPriceExtractor(rows)
	completer := constReply("###!PRICE!### 1")

	uc := NewForecastUseCase(prices, nil, completer, nil, nil, DefaultOptions())
	out, err := uc.ForecastTickers(context.Background(), ForecastTickersParams{Tickers: []string{"aapl", "MSFT", "AAPL", "ZZZZ"}, Range: fullRange(), WindowSize: 3})
	require.NoError(t, err)
	require.Len(t, out, 4)

	byTicker := map[string]int{}
	for _, p := range out {
		byTicker[p.Ticker]++
	}
	assert.Equal(t, map[string]int{"AAPL": 2, "MSFT": 2}, byTicker)
}

func TestFanOutDropsFailedEntities(t *testing.T) {
	metrics := newFakeMetrics()
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logs, zerolog.WarnLevel)
	out := FanOut(context.Background(), FanOutParams{Op: "sentiment", Entities: []string{"AAPL", "FAIL", "MSFT"}, Workers: 2},
		func(_ context.Context, entity string) ([]models.SentimentRecord, error) {
			if entity == "FAIL" {
				return nil, apperr.CompletionFailure("openai", errors.New("502"))
			}
			return []models.SentimentRecord{{Score: 1}, {Score: 2}}, nil
		}, log, metrics)

	require.Len(t, out, 4)
	for i := 0; i < len(out); i += 2 {
		assert.Equal(t, out[i].Ticker, out[i+1].Ticker, "rows of one entity stay contiguous")
		assert.NotEqual(t, "FAIL", out[i].Ticker)
	}
	assert.Contains(t, logs.String(), "[FAIL] sentiment failed")
	assert.NotContains(t, logs.String(), "[AAPL]")
	assert.NotContains(t, logs.String(), "[MSFT]")
}

func TestMalformedTickersAreRejected(t *testing.T) {
	completer := constReply("###!PRICE!### 1")
	prices := extractor.NewPriceExtractor(priceRows("AAPL", businessDays(day("2024-01-01"), 5)))
	uc := NewForecastUseCase(prices, nil, completer, nil, nil, DefaultOptions())

	_, err := uc.Forecast(context.Background(), ForecastParams{Ticker: "A$B; DROP", Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = uc.ForecastTickers(context.Background(), ForecastTickersParams{Tickers: []string{"AAPL", "!!!", "@@"}, Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = NewDataUseCase(prices, extractor.NewNewsExtractor(nil)).Statistics(StatisticsParams{Ticker: "../etc", Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	out, err := uc.ForecastTickers(context.Background(), ForecastTickersParams{Tickers: []string{"brk.b", "aapl"}, Range: fullRange(), WindowSize: 3})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFanOutEmpty(t *testing.T) {
	out := FanOut(context.Background(), FanOutParams{Op: "forecast"},
		func(context.Context, string) ([]models.SentimentRecord, error) { return nil, nil }, nil, nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestEstimateTicker(t *testing.T) {
	dates := businessDays(day("2024-03-01"), 4)
	prices := extractor.NewPriceExtractor(priceRows("GOOGL", dates))
	completer := constReply("###!TICKER!### GOOGLE")

	uc := NewTickerUseCase(prices, completer, nil, nil, DefaultOptions())
	out, err := uc.EstimateTicker(context.Background(), EstimateTickerParams{Ticker: "googl", Range: fullRange(), WindowSize: 2})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "GOOGL", out[0].Estimated)
	assert.Equal(t, TaskTicker, out[0].Task)
	assert.Equal(t, "estimated_ticker", out[0].Header()[0])
}

func newsFixture() *extractor.NewsExtractor {
	return extractor.NewNewsExtractor([]models.NewsItem{
		{Ticker: "TSLA", Date: day("2024-01-10"), Headline: "Deliveries beat", Summary: "Q4 deliveries up"},
		{Ticker: "TSLA", Date: day("2024-01-11"), Headline: "Price cuts", Summary: "Margins at risk"},
		{Ticker: "TSLA", Date: day("2024-01-12"), Headline: "Recall", Summary: "2M vehicles"},
		{Ticker: "TSLA", Date: day("2024-03-01"), Headline: "Out of range", Summary: ""},
	})
}

func TestAnalyzeTickerSentiments(t *testing.T) {
	completer := &stubCompleter{reply: func(user string) (string, error) {
		switch {
		case strings.Contains(user, "Deliveries beat"):
			return "###!SENTIMENT!### 6 | High | deliveries beat consensus", nil
		case strings.Contains(user, "Price cuts"):
			return "###!SENTIMENT!### -3 | medium | margin pressure", nil
		default:
			return "", apperr.CompletionFailure("openai", errors.New("timeout"))
		}
	}}

	uc := NewSentimentUseCase(newsFixture(), completer, nil, nil, DefaultOptions())
	out, err := uc.AnalyzeTickerSentiments(context.Background(), SentimentParams{
		Ticker: "TSLA",
		Range:  DateRange{Start: day("2024-01-01"), End: day("2024-01-31")},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualValues(t, 3, completer.calls.Load())

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	assert.Equal(t, 6, out[0].Score)
	assert.Equal(t, "Deliveries beat", out[0].Headline)
	assert.Equal(t, "Medium", out[1].Confidence)
	assert.Equal(t, "margin pressure", out[1].Reason)
}

func TestAnalyzeSentimentMalformed(t *testing.T) {
	uc := NewSentimentUseCase(newsFixture(), constReply("Positive overall."), nil, nil, DefaultOptions())
	_, err := uc.AnalyzeSentiment(context.Background(), models.NewsItem{Ticker: "TSLA", Headline: "x"})
	assert.Equal(t, apperr.KindMalformedReply, apperr.KindOf(err))
}

func earningsFixture(completer domrepo.Completer) *EarningsUseCase {
	line := func(year int, q models.Quarter, st models.Statement, metric string, v float64) models.StatementLine {
		return models.StatementLine{Ticker: "AAPL", Year: year, Quarter: q, Statement: st, Metric: metric, Value: v}
	}
	statements := extractor.NewStatementExtractor([]models.StatementLine{
		line(2023, models.Q2, models.IncomeStatement, "Revenue", 81797000),
		line(2023, models.Q3, models.IncomeStatement, "Revenue", 89498000),
		line(2023, models.Q3, models.BalanceSheet, "Cash", 29965000),
		line(2023, models.Q4, models.IncomeStatement, "Revenue", 119575000),
		line(2024, models.Q1, models.IncomeStatement, "Revenue", 90753000),
	})
	transcripts := extractor.NewTranscriptExtractor([]models.Transcript{
		{Ticker: "AAPL", Year: 2023, Quarter: models.Q3, Transcript: "third quarter call"},
		{Ticker: "AAPL", Year: 2023, Quarter: models.Q4, Transcript: "holiday quarter call"},
	})
	news := extractor.NewNewsExtractor([]models.NewsItem{
		{Ticker: "AAPL", Date: day("2024-02-15"), Headline: "Vision Pro launches"},
		{Ticker: "AAPL", Date: day("2023-12-15"), Headline: "Previous quarter news"},
	})
	return NewEarningsUseCase(statements, transcripts, news, completer, nil, nil, DefaultOptions())
}

func TestEstimateEarnings(t *testing.T) {
	completer := constReply("Given the trend...\n###EARNINGS### 90500000 | 1.52")
	uc := earningsFixture(completer)

	est, err := uc.EstimateEarnings(context.Background(), EarningsParams{Ticker: "aapl", Year: 2024, Quarter: "Q1"})
	require.NoError(t, err)
	assert.Equal(t, models.EarningsEstimate{
		Ticker:     "AAPL",
		EstRevenue: 90500000,
		EstEPS:     decimal.RequireFromString("1.52"),
		Year:       2024,
		Quarter:    models.Q1,
	}.Row(), est.Row())

	require.Len(t, completer.prompts, 1)
	p := completer.prompts[0]
	assert.Contains(t, p, "89498000")
	assert.Contains(t, p, "119575000")
	assert.NotContains(t, p, "81797000")
	assert.NotContains(t, p, "90753000")
	assert.Contains(t, p, "holiday quarter call")
	assert.NotContains(t, p, "third quarter call")
	assert.Contains(t, p, "Vision Pro launches")
	assert.NotContains(t, p, "Previous quarter news")
}

func TestEstimateEarningsInvalidQuarter(t *testing.T) {
	completer := constReply("")
	uc := earningsFixture(completer)

	_, err := uc.EstimateEarnings(context.Background(), EarningsParams{Ticker: "AAPL", Year: 2024, Quarter: "Q5"})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = uc.EstimateEarningsTickers(context.Background(), EarningsTickersParams{Tickers: []string{"AAPL"}, Year: 2024, Quarter: "H1"})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))
	assert.Zero(t, completer.calls.Load())
}

func TestEstimateEarningsTickersDropsFailures(t *testing.T) {
	uc := earningsFixture(constReply("no marker here"))
	out, err := uc.EstimateEarningsTickers(context.Background(), EarningsTickersParams{Tickers: []string{"AAPL"}, Year: 2024, Quarter: "Q1"})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []string{"AAPL"}, uc.StatementTickers())
}

func TestDataUseCaseValidation(t *testing.T) {
	dates := businessDays(day("2024-01-01"), 5)
	uc := NewDataUseCase(extractor.NewPriceExtractor(priceRows("AAPL", dates)), newsFixture())

	_, err := uc.Statistics(StatisticsParams{Ticker: "", Range: fullRange()})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	_, err = uc.PriceUniverse(UniverseParams{MinCount: -1})
	assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))

	entries, err := uc.NewsUniverse(UniverseParams{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TSLA", entries[0].Ticker)
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
	rows  []domrepo.ResultRow
	runID string
	err   error
}

func (p *recordingPublisher) PublishResults(ctx context.Context, kind string, rows []domrepo.ResultRow) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.kinds = append(p.kinds, kind)
	p.rows = append(p.rows, rows...)
	p.runID = pkgkafka.RunIDFrom(ctx)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newJobHandler(completer domrepo.Completer, pub domrepo.ResultPublisher) *JobHandler {
	dates := businessDays(day("2024-01-01"), 5)
	prices := extractor.NewPriceExtractor(priceRows("AAPL", dates))
	opts := DefaultOptions()
	return NewJobHandler(JobHandlerParams{
		Topic:     "finprompt.jobs",
		Forecast:  NewForecastUseCase(prices, nil, completer, nil, nil, opts),
		Ticker:    NewTickerUseCase(prices, completer, nil, nil, opts),
		Sentiment: NewSentimentUseCase(newsFixture(), completer, nil, nil, opts),
		Earnings:  earningsFixture(completer),
		Publisher: pub,
		Metrics:   newFakeMetrics(),
	})
}

func TestJobHandlerForecast(t *testing.T) {
	pub := &recordingPublisher{}
	h := newJobHandler(constReply("###!PRICE!### 7"), pub)
	assert.Equal(t, "finprompt.jobs", h.Topic())

	job := `{"id":"job-1","kind":"forecast","tickers":["aapl"],"start":"2024-01-01","end":"2024-12-31","window_size":3}`
	require.NoError(t, h.Handle(context.Background(), []byte(job)))

	assert.Equal(t, []string{JobForecast}, pub.kinds)
	require.Len(t, pub.rows, 2)
	assert.Equal(t, "AAPL", pub.rows[0].Ticker)
	pred, ok := pub.rows[0].Payload.(models.Prediction[decimal.Decimal])
	require.True(t, ok)
	assert.Equal(t, "7", pred.Estimated.String())
	assert.Equal(t, "job-1", pub.runID)
}

func TestJobHandlerEarningsDefaultsToStatementTickers(t *testing.T) {
	pub := &recordingPublisher{}
	h := newJobHandler(constReply("###EARNINGS### 1 | 0.5"), pub)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"kind":"earnings","year":2024,"quarter":"Q1"}`)))
	require.Len(t, pub.rows, 1)
	assert.Equal(t, "AAPL", pub.rows[0].Ticker)
}

func TestJobHandlerPermanentFailures(t *testing.T) {
	h := newJobHandler(constReply(""), &recordingPublisher{})

	cases := map[string]string{
		"bad json":     `{"kind":`,
		"unknown kind": `{"kind":"backtest","tickers":["AAPL"]}`,
		"bad date":     `{"kind":"sentiment","tickers":["TSLA"],"start":"yesterday","end":"2024-01-31"}`,
		"no tickers":   `{"kind":"estimate","start":"2024-01-01","end":"2024-01-31"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := h.Handle(context.Background(), []byte(body))
			require.Error(t, err)
			assert.True(t, pkgkafka.IsPermanent(err))
		})
	}
}

func TestJobHandlerPublishFailureIsRetryable(t *testing.T) {
	h := newJobHandler(constReply("###!SENTIMENT!### 1 | Low | meh"), &recordingPublisher{err: errors.New("broker down")})

	err := h.Handle(context.Background(), []byte(`{"kind":"sentiment","tickers":["TSLA"],"start":"2024-01-01","end":"2024-01-31"}`))
	require.Error(t, err)
	assert.False(t, pkgkafka.IsPermanent(err))
}
