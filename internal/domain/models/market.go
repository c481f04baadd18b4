package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily close of a ticker.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceRow is a normalized row of the price history.
type PriceRow struct {
	Ticker string          `json:"ticker"`
	Date   time.Time       `json:"date"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Point drops ticker and volume.
func (r PriceRow) Point() PricePoint {
	return PricePoint{Date: r.Date, Close: r.Close}
}

// NewsItem is a single news article about a ticker.
type NewsItem struct {
	Ticker   string    `json:"ticker"`
	Date     time.Time `json:"date"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary"`
}

// Transcript is an earnings-call transcript for one fiscal quarter.
type Transcript struct {
	Ticker     string    `json:"ticker"`
	Year       int       `json:"year"`
	Quarter    Quarter   `json:"quarter"`
	Date       time.Time `json:"date,omitempty"`
	Transcript string    `json:"transcript"`
}

// Statement names the financial statement a line item belongs to.
type Statement string

const (
	BalanceSheet    Statement = "balance_sheet"
	IncomeStatement Statement = "income_statement"
)

// StatementLine is one metric of a quarterly financial statement (thousands USD).
type StatementLine struct {
	Ticker    string
	Year      int
	Quarter   Quarter
	Date      time.Time
	Statement Statement
	Metric    string
	Value     float64
}

// QuarterStatements groups statement lines of one quarter.
type QuarterStatements struct {
	Year            int                `json:"year"`
	Quarter         Quarter            `json:"quarter"`
	Date            time.Time          `json:"date"`
	BalanceSheet    map[string]float64 `json:"balance_sheet"`
	IncomeStatement map[string]float64 `json:"income_statement"`
}

// SentimentScore is a previously computed sentiment row joined into price prompts.
type SentimentScore struct {
	Ticker     string    `json:"ticker"`
	Date       time.Time `json:"date"`
	Score      int       `json:"score"`
	Confidence string    `json:"confidence"`
}
