package extractor

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/pkg/table"
	"FinPrompt/pkg/util"
)

// SentimentExtractor reads a previously exported sentiment table.
type SentimentExtractor struct {
	byTicker map[string][]models.SentimentScore
}

// LoadSentiment reads a sentiment export (ticker, date, score, confidence).
// A missing file yields an empty extractor.
func LoadSentiment(path string) (*SentimentExtractor, error) {
	if path == "" {
		return NewSentimentExtractor(nil), nil
	}
	tb, err := table.ReadCSV(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSentimentExtractor(nil), nil
		}
		return nil, fmt.Errorf("load sentiment: %w", err)
	}

	scores := make([]models.SentimentScore, 0, tb.Len())
	for _, r := range tb.Records() {
		d, err := r.Date("date")
		if err != nil {
			continue
		}
		// a blank score is a failed sentiment call, not a neutral one
		if r.String("score") == "" {
			continue
		}
		score, err := r.Int("score")
		if err != nil {
			continue
		}
		scores = append(scores, models.SentimentScore{
			Ticker:     r.String("ticker"),
			Date:       d,
			Score:      int(score),
			Confidence: r.String("confidence"),
		})
	}
	return NewSentimentExtractor(scores), nil
}

func NewSentimentExtractor(scores []models.SentimentScore) *SentimentExtractor {
	sorted := table.SortBy(scores, func(a, b models.SentimentScore) int { return a.Date.Compare(b.Date) })
	return &SentimentExtractor{
		byTicker: table.GroupBy(sorted, func(s models.SentimentScore) string { return s.Ticker }),
	}
}

// Scores returns the scores of ticker with start <= date <= end.
func (s *SentimentExtractor) Scores(ticker string, start, end time.Time) []models.SentimentScore {
	start, end = util.Day(start), util.Day(end)
	return table.Where(s.byTicker[ticker], func(sc models.SentimentScore) bool {
		return util.InRange(sc.Date, start, end)
	})
}

var _ domrepo.SentimentSource = (*SentimentExtractor)(nil)
