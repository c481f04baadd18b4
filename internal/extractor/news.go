package extractor

import (
	"fmt"
	"strconv"
	"time"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"
)

// NewsExtractor slices news history by ticker and date window.
type NewsExtractor struct {
	items    []models.NewsItem
	byTicker map[string][]models.NewsItem
}

// LoadNews reads news_history.csv. The publication timestamp comes from "datetime"
// (falling back to "date") and is truncated to its calendar date.
func LoadNews(path string) (*NewsExtractor, error) {
	tb, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load news: %w", err)
	}
	dateCol := "datetime"
	if !tb.Has(dateCol) {
		dateCol = "date"
	}
	if err := tb.Require(dateCol, "ticker", "headline", "summary"); err != nil {
		return nil, apperr.InvalidParameter("load news", "%s: %v", path, err)
	}

	items := make([]models.NewsItem, 0, tb.Len())
	for _, r := range tb.Records() {
		d, ok := parseNewsDate(r.String(dateCol))
		if !ok {
			continue
		}
		items = append(items, models.NewsItem{
			Ticker:   r.String("ticker"),
			Date:     d,
			Headline: r.String("headline"),
			Summary:  r.String("summary"),
		})
	}
	return NewNewsExtractor(items), nil
}

func parseNewsDate(s string) (time.Time, bool) {
	if d, ok := util.ParseDate(s); ok {
		return d, true
	}
	// finnhub exports carry unix seconds (or millis)
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ts <= 0 {
		return time.Time{}, false
	}
	if ts > 1e11 {
		ts /= 1000
	}
	return util.Day(time.Unix(ts, 0).UTC()), true
}

// NewNewsExtractor indexes items by ticker, sorted ascending by date.
func NewNewsExtractor(items []models.NewsItem) *NewsExtractor {
	sorted := table.SortBy(items, func(a, b models.NewsItem) int { return a.Date.Compare(b.Date) })
	return &NewsExtractor{
		items:    sorted,
		byTicker: table.GroupBy(sorted, func(n models.NewsItem) string { return n.Ticker }),
	}
}

// TickerNews returns the news of ticker with start <= date <= end.
func (n *NewsExtractor) TickerNews(ticker string, start, end time.Time) []models.NewsItem {
	start, end = util.Day(start), util.Day(end)
	return table.Where(n.byTicker[ticker], func(it models.NewsItem) bool {
		return util.InRange(it.Date, start, end)
	})
}

// TickersNews groups the window of each requested ticker; tickers without news are absent.
func (n *NewsExtractor) TickersNews(tickers []string, start, end time.Time) map[string][]models.NewsItem {
	out := make(map[string][]models.NewsItem, len(tickers))
	for _, t := range tickers {
		if items := n.TickerNews(t, start, end); len(items) > 0 {
			out[t] = items
		}
	}
	return out
}

// Universe lists per-ticker coverage of the news history.
func (n *NewsExtractor) Universe(start, end *time.Time, minCount int) []models.UniverseEntry {
	return universe(n.items,
		func(it models.NewsItem) string { return it.Ticker },
		func(it models.NewsItem) time.Time { return it.Date },
		start, end, minCount)
}

var _ domrepo.NewsSource = (*NewsExtractor)(nil)
