package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Prediction is the outcome of one window: an estimate for the next business day.
type Prediction[T any] struct {
	Ticker        string          `json:"ticker,omitempty"`
	Task          string          `json:"task"`
	Estimated     T               `json:"estimated"`
	LastDate      time.Time       `json:"last_date"`
	LastClose     decimal.Decimal `json:"last_close"`
	EstimatedDate time.Time       `json:"estimated_date"`
}

func (p Prediction[T]) WithTicker(ticker string) Prediction[T] {
	p.Ticker = ticker
	return p
}

func (p Prediction[T]) Header() []string {
	return []string{"estimated_" + p.Task, "last_date", "last_close", "estimated_date", "ticker"}
}

func (p Prediction[T]) Row() []string {
	return []string{
		fmt.Sprint(p.Estimated),
		p.LastDate.Format(dateLayout),
		p.LastClose.String(),
		p.EstimatedDate.Format(dateLayout),
		p.Ticker,
	}
}

// SentimentRecord scores a single news item.
type SentimentRecord struct {
	Ticker     string    `json:"ticker"`
	Date       time.Time `json:"date"`
	Headline   string    `json:"headline"`
	Summary    string    `json:"summary"`
	Score      int       `json:"score"`
	Confidence string    `json:"confidence"`
	Reason     string    `json:"reason"`
}

func (r SentimentRecord) WithTicker(ticker string) SentimentRecord {
	r.Ticker = ticker
	return r
}

func (r SentimentRecord) Header() []string {
	return []string{"score", "confidence", "reason", "ticker", "headline", "summary", "date"}
}

func (r SentimentRecord) Row() []string {
	return []string{
		strconv.Itoa(r.Score),
		r.Confidence,
		r.Reason,
		r.Ticker,
		r.Headline,
		r.Summary,
		r.Date.Format(dateLayout),
	}
}

// EarningsEstimate is a revenue (thousands USD) and EPS forecast for one quarter.
type EarningsEstimate struct {
	Ticker     string          `json:"ticker"`
	EstRevenue int64           `json:"est_revenue"`
	EstEPS     decimal.Decimal `json:"est_eps"`
	Year       int             `json:"year"`
	Quarter    Quarter         `json:"quarter"`
}

func (e EarningsEstimate) WithTicker(ticker string) EarningsEstimate {
	e.Ticker = ticker
	return e
}

func (e EarningsEstimate) Header() []string {
	return []string{"ticker", "est_revenue", "est_eps", "year", "quarter"}
}

func (e EarningsEstimate) Row() []string {
	return []string{
		e.Ticker,
		strconv.FormatInt(e.EstRevenue, 10),
		e.EstEPS.String(),
		strconv.Itoa(e.Year),
		string(e.Quarter),
	}
}

// TickerStatistics summarizes closes and daily returns over a date window.
// Percent values are already multiplied by 100 and rounded to 4 decimals.
type TickerStatistics struct {
	Ticker              string    `json:"ticker"`
	MinPrice            float64   `json:"min_price"`
	MinPriceDate        time.Time `json:"min_price_date"`
	MaxPrice            float64   `json:"max_price"`
	MaxPriceDate        time.Time `json:"max_price_date"`
	MaxSingleDayDropPct float64   `json:"max_single_day_drop_pct"`
	MaxSingleDayGainPct float64   `json:"max_single_day_gain_pct"`
	VolatilityPct       float64   `json:"volatility_pct"`
	VaR95Pct            float64   `json:"var_95_pct"`
}

func (s TickerStatistics) Header() []string {
	return []string{
		"ticker", "min_price", "min_price_date", "max_price", "max_price_date",
		"max_single_day_drop_pct", "max_single_day_gain_pct", "volatility_pct", "var_95_pct",
	}
}

func (s TickerStatistics) Row() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		s.Ticker, f(s.MinPrice), s.MinPriceDate.Format(dateLayout), f(s.MaxPrice), s.MaxPriceDate.Format(dateLayout),
		f(s.MaxSingleDayDropPct), f(s.MaxSingleDayGainPct), f(s.VolatilityPct), f(s.VaR95Pct),
	}
}

// UniverseEntry describes the coverage of one ticker in a data set.
type UniverseEntry struct {
	Ticker    string    `json:"ticker"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

func (u UniverseEntry) Header() []string {
	return []string{"ticker", "start_date", "end_date", "days"}
}

func (u UniverseEntry) Row() []string {
	return []string{u.Ticker, u.StartDate.Format(dateLayout), u.EndDate.Format(dateLayout), strconv.Itoa(u.Days)}
}
