package extractor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/services/features"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"

	"github.com/shopspring/decimal"
)

// PriceExtractor slices the daily price history by ticker and date window.
// It is immutable after construction and safe for concurrent readers.
type PriceExtractor struct {
	rows     []models.PriceRow
	byTicker map[string][]models.PriceRow
}

// LoadPrices reads stock_price_history.csv. Only date, close, ticker and volume are kept;
// rows with an unparseable date or close are skipped.
func LoadPrices(path string) (*PriceExtractor, error) {
	tb, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	if err := tb.Require("date", "close", "ticker"); err != nil {
		return nil, apperr.InvalidParameter("load prices", "%s: %v", path, err)
	}

	rows := make([]models.PriceRow, 0, tb.Len())
	for _, r := range tb.Records() {
		d, err := r.Date("date")
		if err != nil {
			continue
		}
		c, err := decimal.NewFromString(r.String("close"))
		if err != nil {
			continue
		}
		vol, _ := r.Int("volume")
		rows = append(rows, models.PriceRow{
			Ticker: r.String("ticker"),
			Date:   d,
			Close:  c,
			Volume: vol,
		})
	}
	return NewPriceExtractor(rows), nil
}

// NewPriceExtractor indexes rows by ticker, sorted ascending by date.
func NewPriceExtractor(rows []models.PriceRow) *PriceExtractor {
	sorted := table.SortBy(rows, func(a, b models.PriceRow) int { return a.Date.Compare(b.Date) })
	return &PriceExtractor{
		rows:     sorted,
		byTicker: table.GroupBy(sorted, func(r models.PriceRow) string { return r.Ticker }),
	}
}

// TickerPrices returns the closes of ticker with start <= date <= end.
func (p *PriceExtractor) TickerPrices(ticker string, start, end time.Time) []models.PricePoint {
	start, end = util.Day(start), util.Day(end)
	var out []models.PricePoint
	for _, r := range p.byTicker[ticker] {
		if util.InRange(r.Date, start, end) {
			out = append(out, r.Point())
		}
	}
	return out
}

// TickersPrices groups the window of each requested ticker; tickers without rows are absent.
func (p *PriceExtractor) TickersPrices(tickers []string, start, end time.Time) map[string][]models.PricePoint {
	out := make(map[string][]models.PricePoint, len(tickers))
	for _, t := range tickers {
		if pts := p.TickerPrices(t, start, end); len(pts) > 0 {
			out[t] = pts
		}
	}
	return out
}

// Statistics summarizes closes and daily returns of ticker in the window.
func (p *PriceExtractor) Statistics(ticker string, start, end time.Time) (models.TickerStatistics, error) {
	pts := p.TickerPrices(ticker, start, end)
	if len(pts) == 0 {
		return models.TickerStatistics{}, apperr.DataNotFound("statistics",
			"no data for %s between %s and %s", ticker, util.FormatDate(start), util.FormatDate(end))
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

	closes := make([]float64, len(pts))
	for i, pt := range pts {
		closes[i] = pt.Close.InexactFloat64()
	}
	rets := features.PctReturns(closes)
	minIdx, maxIdx := features.ArgMin(closes), features.ArgMax(closes)

	return models.TickerStatistics{
		Ticker:              ticker,
		MinPrice:            features.Round(closes[minIdx], 4),
		MinPriceDate:        pts[minIdx].Date,
		MaxPrice:            features.Round(closes[maxIdx], 4),
		MaxPriceDate:        pts[maxIdx].Date,
		MaxSingleDayDropPct: features.Round(features.MinOf(rets)*100, 4),
		MaxSingleDayGainPct: features.Round(features.MaxOf(rets)*100, 4),
		VolatilityPct:       features.Round(features.SampleStdDev(rets)*100, 4),
		VaR95Pct:            features.Round(features.Quantile(rets, 0.05)*100, 4),
	}, nil
}

// Universe lists per-ticker coverage of the price history.
func (p *PriceExtractor) Universe(start, end *time.Time, minCount int) []models.UniverseEntry {
	return universe(p.rows,
		func(r models.PriceRow) string { return r.Ticker },
		func(r models.PriceRow) time.Time { return r.Date },
		start, end, minCount)
}

var _ domrepo.PriceSource = (*PriceExtractor)(nil)

// LoadPricesFromStore builds a PriceExtractor from an external price store.
func LoadPricesFromStore(ctx context.Context, store domrepo.PriceStore) (*PriceExtractor, error) {
	rows, err := store.LoadPriceRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return NewPriceExtractor(rows), nil
}
