// Package prompt renders the analysis prompts sent to the completion endpoint.
package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	"FinPrompt/pkg/util"
)

// SystemPrompt is sent as the system message of every completion.
const SystemPrompt = "You are a professional financial analyst."

// Kind selects a prompt template.
type Kind string

const (
	Price     Kind = "price"
	PriceNews Kind = "price_news"
	News      Kind = "news"
	Ticker    Kind = "ticker"
	Earnings  Kind = "earnings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompt").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"))

// Kinds lists every template kind.
func Kinds() []Kind {
	return []Kind{Price, PriceNews, News, Ticker, Earnings}
}

// PriceData feeds the Price and Ticker templates.
type PriceData struct {
	WindowSize int
	PriceData  string
}

// PriceNewsData feeds the PriceNews template.
type PriceNewsData struct {
	WindowSize    int
	PriceData     string
	SentimentData string
}

// NewsData feeds the News template.
type NewsData struct {
	NewsData string
}

// EarningsData feeds the Earnings template.
type EarningsData struct {
	StatementQuarters  int
	TranscriptQuarters int
	PrevFinancials     string
	PrevEarningsCall   string
	NewsData           string
}

// Render executes the template of the given kind with data.
func Render(kind Kind, data interface{}) (string, error) {
	t := templates.Lookup(string(kind) + ".tmpl")
	if t == nil {
		return "", apperr.InvalidParameter("prompt.render", "unknown template kind %q", kind)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompt.render %s: %w", kind, err)
	}
	return buf.String(), nil
}

// RenderPrice renders the price forecast prompt for a window.
func RenderPrice(window []models.PricePoint) (string, error) {
	payload, err := PricesJSON(window)
	if err != nil {
		return "", err
	}
	return Render(Price, PriceData{WindowSize: len(window), PriceData: payload})
}

// RenderPriceNews renders the price forecast prompt with the sentiment summary of the window.
func RenderPriceNews(window []models.PricePoint, scores []models.SentimentScore) (string, error) {
	prices, err := PricesJSON(window)
	if err != nil {
		return "", err
	}
	sentiment, err := SentimentJSON(scores)
	if err != nil {
		return "", err
	}
	return Render(PriceNews, PriceNewsData{WindowSize: len(window), PriceData: prices, SentimentData: sentiment})
}

// RenderTicker renders the ticker identification prompt for a window.
func RenderTicker(window []models.PricePoint) (string, error) {
	payload, err := PricesJSON(window)
	if err != nil {
		return "", err
	}
	return Render(Ticker, PriceData{WindowSize: len(window), PriceData: payload})
}

// RenderNews renders the sentiment prompt for a single article.
func RenderNews(item models.NewsItem) (string, error) {
	payload, err := marshal(newsJSON(item))
	if err != nil {
		return "", err
	}
	return Render(News, NewsData{NewsData: payload})
}

// RenderEarnings renders the earnings estimate prompt.
func RenderEarnings(statements []models.QuarterStatements, calls []models.Transcript, news []models.NewsItem) (string, error) {
	fin := make([]statementPayload, 0, len(statements))
	for _, s := range statements {
		fin = append(fin, statementPayload{
			Year:            s.Year,
			Quarter:         s.Quarter,
			Date:            util.FormatDate(s.Date),
			BalanceSheet:    nonNil(s.BalanceSheet),
			IncomeStatement: nonNil(s.IncomeStatement),
		})
	}
	transcripts := make([]transcriptPayload, 0, len(calls))
	for _, c := range calls {
		transcripts = append(transcripts, transcriptPayload{Year: c.Year, Quarter: c.Quarter, Transcript: c.Transcript})
	}
	articles := make([]newsPayload, 0, len(news))
	for _, n := range news {
		articles = append(articles, newsJSON(n))
	}

	data := EarningsData{StatementQuarters: len(statements), TranscriptQuarters: len(calls)}
	var err error
	if data.PrevFinancials, err = marshal(fin); err != nil {
		return "", err
	}
	if data.PrevEarningsCall, err = marshal(transcripts); err != nil {
		return "", err
	}
	if data.NewsData, err = marshal(articles); err != nil {
		return "", err
	}
	return Render(Earnings, data)
}

type pricePayload struct {
	Date  string          `json:"date"`
	Close json.RawMessage `json:"close"`
}

type sentimentPayload struct {
	Date       string `json:"date"`
	Score      int    `json:"score"`
	Confidence string `json:"confidence"`
}

type newsPayload struct {
	Ticker   string `json:"ticker"`
	Date     string `json:"date"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
}

type statementPayload struct {
	Year            int                `json:"year"`
	Quarter         models.Quarter     `json:"quarter"`
	Date            string             `json:"date"`
	BalanceSheet    map[string]float64 `json:"balance_sheet"`
	IncomeStatement map[string]float64 `json:"income_statement"`
}

type transcriptPayload struct {
	Year       int            `json:"year"`
	Quarter    models.Quarter `json:"quarter"`
	Transcript string         `json:"transcript"`
}

// PricesJSON encodes a window as [{"date":"YYYY-MM-DD","close":<number>}].
func PricesJSON(window []models.PricePoint) (string, error) {
	rows := make([]pricePayload, 0, len(window))
	for _, p := range window {
		rows = append(rows, pricePayload{Date: util.FormatDate(p.Date), Close: json.RawMessage(p.Close.String())})
	}
	return marshal(rows)
}

// SentimentJSON encodes sentiment scores as [{"date","score","confidence"}].
func SentimentJSON(scores []models.SentimentScore) (string, error) {
	rows := make([]sentimentPayload, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, sentimentPayload{Date: util.FormatDate(s.Date), Score: s.Score, Confidence: s.Confidence})
	}
	return marshal(rows)
}

func newsJSON(n models.NewsItem) newsPayload {
	return newsPayload{Ticker: n.Ticker, Date: util.FormatDate(n.Date), Headline: n.Headline, Summary: n.Summary}
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func marshal(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("prompt: encode payload: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
