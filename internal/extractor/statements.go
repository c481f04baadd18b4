package extractor

import (
	"cmp"
	"fmt"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/table"
)

// StatementExtractor groups financial-statement line items by fiscal quarter.
type StatementExtractor struct {
	tickers  []string
	byTicker map[string][]models.StatementLine
}

// LoadStatements reads financial_statement_history.csv
// (ticker, year, quarter, date, financial_statement, metric, value).
func LoadStatements(path string) (*StatementExtractor, error) {
	tb, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load statements: %w", err)
	}
	if err := tb.Require("ticker", "year", "quarter", "date", "financial_statement", "metric", "value"); err != nil {
		return nil, apperr.InvalidParameter("load statements", "%s: %v", path, err)
	}

	lines := make([]models.StatementLine, 0, tb.Len())
	for _, r := range tb.Records() {
		year, err := r.Int("year")
		if err != nil || year == 0 {
			continue
		}
		q, err := models.ParseQuarter(r.String("quarter"))
		if err != nil {
			continue
		}
		v, err := r.Float("value")
		if err != nil {
			continue
		}
		d, _ := r.Date("date")
		lines = append(lines, models.StatementLine{
			Ticker:    r.String("ticker"),
			Year:      int(year),
			Quarter:   q,
			Date:      d,
			Statement: models.Statement(r.String("financial_statement")),
			Metric:    r.String("metric"),
			Value:     v,
		})
	}
	return NewStatementExtractor(lines), nil
}

func NewStatementExtractor(lines []models.StatementLine) *StatementExtractor {
	return &StatementExtractor{
		tickers:  table.SortBy(table.Unique(lines, func(l models.StatementLine) string { return l.Ticker }), cmp.Compare[string]),
		byTicker: table.GroupBy(lines, func(l models.StatementLine) string { return l.Ticker }),
	}
}

// Tickers returns every ticker with statements, sorted.
func (e *StatementExtractor) Tickers() []string {
	return append([]string(nil), e.tickers...)
}

// PreviousQuarters returns the n most recent quarters strictly before (year, q),
// each with its balance sheet and income statement metrics, in chronological order.
func (e *StatementExtractor) PreviousQuarters(ticker string, year int, q models.Quarter, n int) ([]models.QuarterStatements, error) {
	if q.Num() == 0 {
		return nil, apperr.InvalidParameter("previous statements", "invalid quarter: %q", string(q))
	}
	current := models.QuarterKey(year, q)
	lines := table.Where(e.byTicker[ticker], func(l models.StatementLine) bool {
		return models.QuarterKey(l.Year, l.Quarter) < current
	})

	keys := table.Unique(lines, func(l models.StatementLine) int { return models.QuarterKey(l.Year, l.Quarter) })
	keys = table.SortBy(keys, func(a, b int) int { return cmp.Compare(b, a) })
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}

	grouped := table.GroupBy(lines, func(l models.StatementLine) int { return models.QuarterKey(l.Year, l.Quarter) })
	chrono := table.SortBy(keys, func(a, b int) int { return cmp.Compare(a, b) })

	out := make([]models.QuarterStatements, 0, len(chrono))
	for _, k := range chrono {
		group := grouped[k]
		qs := models.QuarterStatements{
			Year:            group[0].Year,
			Quarter:         group[0].Quarter,
			Date:            group[0].Date,
			BalanceSheet:    map[string]float64{},
			IncomeStatement: map[string]float64{},
		}
		for _, l := range group {
			switch l.Statement {
			case models.BalanceSheet:
				qs.BalanceSheet[l.Metric] = l.Value
			case models.IncomeStatement:
				qs.IncomeStatement[l.Metric] = l.Value
			}
		}
		out = append(out, qs)
	}
	return out, nil
}

var _ domrepo.StatementSource = (*StatementExtractor)(nil)
