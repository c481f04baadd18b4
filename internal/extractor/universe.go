package extractor

import (
	"sort"
	"time"

	"FinPrompt/internal/domain/models"
	"FinPrompt/pkg/util"
)

// DefaultMinCount is the minimum number of distinct days a ticker needs to be listed.
const DefaultMinCount = 50

// universe summarizes per-ticker date coverage. Bounds are optional; minCount <= 0 disables the filter.
func universe[T any](items []T, ticker func(T) string, date func(T) time.Time, start, end *time.Time, minCount int) []models.UniverseEntry {
	type acc struct {
		entry models.UniverseEntry
		days  map[time.Time]struct{}
	}
	byTicker := make(map[string]*acc)
	for _, it := range items {
		d := date(it)
		if start != nil && d.Before(util.Day(*start)) {
			continue
		}
		if end != nil && d.After(util.Day(*end)) {
			continue
		}
		tk := ticker(it)
		a, ok := byTicker[tk]
		if !ok {
			a = &acc{
				entry: models.UniverseEntry{Ticker: tk, StartDate: d, EndDate: d},
				days:  make(map[time.Time]struct{}),
			}
			byTicker[tk] = a
		}
		if d.Before(a.entry.StartDate) {
			a.entry.StartDate = d
		}
		if d.After(a.entry.EndDate) {
			a.entry.EndDate = d
		}
		a.days[d] = struct{}{}
	}

	out := make([]models.UniverseEntry, 0, len(byTicker))
	for _, a := range byTicker {
		a.entry.Days = len(a.days)
		if minCount > 0 && a.entry.Days < minCount {
			continue
		}
		out = append(out, a.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
