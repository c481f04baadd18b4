// Package parser extracts structured results from marker-tagged completion replies.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"FinPrompt/internal/domain/apperr"
)

const (
	PriceMarker     = "###!PRICE!###"
	TickerMarker    = "###!TICKER!###"
	SentimentMarker = "###!SENTIMENT!###"
	EarningsMarker  = "###EARNINGS###"
)

var (
	priceRe    = regexp.MustCompile(`###!PRICE!###\s*(\d+\.?\d*)`)
	tickerRe   = regexp.MustCompile(`###!TICKER!###\s*([A-Z]{1,5})`)
	earningsRe = regexp.MustCompile(`###EARNINGS###\s*(\d+)\s*\|\s*([0-9.]+)`)
	integerRe  = regexp.MustCompile(`^-?\d+$`)
)

// Func turns a raw reply into T. It never returns a partially filled value.
type Func[T any] func(reply string) (T, error)

// Sentiment is the parsed outcome of a news sentiment reply.
type Sentiment struct {
	Score      int
	Confidence string
	Reason     string
}

// Earnings is the parsed outcome of an earnings estimate reply.
type Earnings struct {
	Revenue int64
	EPS     decimal.Decimal
}

var (
	_ Func[decimal.Decimal] = Price
	_ Func[string]          = Ticker
	_ Func[Sentiment]       = ParseSentiment
	_ Func[Earnings]        = ParseEarnings
)

// Price returns the first number following the price marker.
func Price(reply string) (decimal.Decimal, error) {
	m := priceRe.FindStringSubmatch(reply)
	if m == nil {
		return decimal.Decimal{}, apperr.MalformedReply("parse_price", "price marker not found")
	}
	v, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Decimal{}, apperr.MalformedReply("parse_price", "invalid price %q", m[1])
	}
	return v, nil
}

// Ticker returns the 1-5 upper-case letters following the ticker marker.
func Ticker(reply string) (string, error) {
	m := tickerRe.FindStringSubmatch(reply)
	if m == nil {
		return "", apperr.MalformedReply("parse_ticker", "ticker marker not found")
	}
	return m[1], nil
}

// ParseSentiment expects a single line: marker, then "score | confidence | reason".
func ParseSentiment(reply string) (Sentiment, error) {
	line := strings.TrimSpace(reply)
	if !strings.HasPrefix(line, SentimentMarker) {
		return Sentiment{}, apperr.MalformedReply("parse_sentiment", "line does not start with %s", SentimentMarker)
	}

	payload := strings.TrimSpace(strings.ReplaceAll(line, SentimentMarker, ""))
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return Sentiment{}, apperr.MalformedReply("parse_sentiment", "expected 3 fields separated by '|', got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if !integerRe.MatchString(parts[0]) {
		return Sentiment{}, apperr.MalformedReply("parse_sentiment", "score is not an integer: %q", parts[0])
	}
	score, err := strconv.Atoi(parts[0])
	if err != nil {
		return Sentiment{}, apperr.MalformedReply("parse_sentiment", "score out of range: %q", parts[0])
	}

	confidence := titleCase(parts[1])
	switch confidence {
	case "High", "Medium", "Low":
	default:
		return Sentiment{}, apperr.MalformedReply("parse_sentiment", "confidence must be High, Medium or Low, got %q", confidence)
	}

	return Sentiment{Score: score, Confidence: confidence, Reason: parts[2]}, nil
}

// ParseEarnings returns revenue (thousands USD) and EPS following the earnings marker.
func ParseEarnings(reply string) (Earnings, error) {
	m := earningsRe.FindStringSubmatch(reply)
	if m == nil {
		return Earnings{}, apperr.MalformedReply("parse_earnings", "earnings marker not found or improperly formatted")
	}
	revenue, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Earnings{}, apperr.MalformedReply("parse_earnings", "invalid revenue %q", m[1])
	}
	eps, err := decimal.NewFromString(m[2])
	if err != nil {
		return Earnings{}, apperr.MalformedReply("parse_earnings", "invalid eps %q", m[2])
	}
	return Earnings{Revenue: revenue, EPS: eps}, nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
