package usecase

import (
	"strings"
	"time"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
)

// DataUseCase exposes the extractors' descriptive queries.
type DataUseCase struct {
	prices domrepo.PriceSource
	news   domrepo.NewsSource
}

func NewDataUseCase(prices domrepo.PriceSource, news domrepo.NewsSource) *DataUseCase {
	return &DataUseCase{prices: prices, news: news}
}

type StatisticsParams struct {
	Ticker string
	Range  DateRange
}

// UniverseParams bounds a coverage query; nil dates are open-ended.
type UniverseParams struct {
	Start    *time.Time
	End      *time.Time
	MinCount int
}

func (uc *DataUseCase) Statistics(p StatisticsParams) (models.TickerStatistics, error) {
	ticker := strings.ToUpper(strings.TrimSpace(p.Ticker))
	if err := requireTicker("statistics", ticker); err != nil {
		return models.TickerStatistics{}, err
	}
	if err := p.Range.validate("statistics"); err != nil {
		return models.TickerStatistics{}, err
	}
	return uc.prices.Statistics(ticker, p.Range.Start, p.Range.End)
}

func (uc *DataUseCase) PriceUniverse(p UniverseParams) ([]models.UniverseEntry, error) {
	if err := p.validate("price_universe"); err != nil {
		return nil, err
	}
	return uc.prices.Universe(p.Start, p.End, p.MinCount), nil
}

func (uc *DataUseCase) NewsUniverse(p UniverseParams) ([]models.UniverseEntry, error) {
	if err := p.validate("news_universe"); err != nil {
		return nil, err
	}
	return uc.news.Universe(p.Start, p.End, p.MinCount), nil
}

func (p UniverseParams) validate(op string) error {
	if p.MinCount < 0 {
		return apperr.InvalidParameter(op, "min_count must be >= 0")
	}
	if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
		return apperr.InvalidParameter(op, "end is before start")
	}
	return nil
}
