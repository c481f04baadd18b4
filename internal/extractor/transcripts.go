package extractor

import (
	"cmp"
	"fmt"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"
)

// TranscriptExtractor selects earnings-call transcripts by fiscal quarter.
type TranscriptExtractor struct {
	byTicker map[string][]models.Transcript
}

// LoadTranscripts reads earnings_transcripts.csv (ticker, year, quarter, transcript[, date]).
func LoadTranscripts(path string) (*TranscriptExtractor, error) {
	tb, err := table.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}
	if err := tb.Require("ticker", "year", "quarter", "transcript"); err != nil {
		return nil, apperr.InvalidParameter("load transcripts", "%s: %v", path, err)
	}

	items := make([]models.Transcript, 0, tb.Len())
	for _, r := range tb.Records() {
		year, err := r.Int("year")
		if err != nil || year == 0 {
			continue
		}
		q, err := models.ParseQuarter(r.String("quarter"))
		if err != nil {
			continue
		}
		tr := models.Transcript{
			Ticker:     r.String("ticker"),
			Year:       int(year),
			Quarter:    q,
			Transcript: r.String("transcript"),
		}
		if d, ok := util.ParseDate(r.String("date")); ok {
			tr.Date = d
		}
		items = append(items, tr)
	}
	return NewTranscriptExtractor(items), nil
}

func NewTranscriptExtractor(items []models.Transcript) *TranscriptExtractor {
	return &TranscriptExtractor{
		byTicker: table.GroupBy(items, func(t models.Transcript) string { return t.Ticker }),
	}
}

// PreviousQuarters returns up to n transcripts strictly before (year, q), most recent first.
func (e *TranscriptExtractor) PreviousQuarters(ticker string, year int, q models.Quarter, n int) ([]models.Transcript, error) {
	if q.Num() == 0 {
		return nil, apperr.InvalidParameter("previous transcripts", "invalid quarter: %q", string(q))
	}
	current := models.QuarterKey(year, q)
	prev := table.Where(e.byTicker[ticker], func(t models.Transcript) bool {
		return models.QuarterKey(t.Year, t.Quarter) < current
	})
	prev = table.SortBy(prev, func(a, b models.Transcript) int {
		return cmp.Compare(models.QuarterKey(b.Year, b.Quarter), models.QuarterKey(a.Year, a.Quarter))
	})
	if n >= 0 && len(prev) > n {
		prev = prev[:n]
	}
	return prev, nil
}

var _ domrepo.TranscriptSource = (*TranscriptExtractor)(nil)
