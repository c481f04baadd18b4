package usecase

import (
	"time"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/pkg/util"
)

const DefaultTemperature = 0.1

// Options tune the pipelines. Zero sizes and worker counts fall back to
// defaults; Temperature is used as given.
type Options struct {
	WindowSize    int
	WindowWorkers int
	Workers       int
	NewsWorkers   int
	Temperature   float64
}

func (o Options) withDefaults() Options {
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.WindowWorkers <= 0 {
		o.WindowWorkers = 1
	}
	if o.Workers <= 0 {
		o.Workers = DefaultFanOutWorkers
	}
	if o.NewsWorkers <= 0 {
		o.NewsWorkers = o.Workers
	}
	return o
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		WindowSize:    DefaultWindowSize,
		WindowWorkers: 1,
		Workers:       DefaultFanOutWorkers,
		NewsWorkers:   DefaultFanOutWorkers,
		Temperature:   DefaultTemperature,
	}
}

// DateRange is an inclusive calendar window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) validate(op string) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return apperr.InvalidParameter(op, "start and end dates are required")
	}
	if r.End.Before(r.Start) {
		return apperr.InvalidParameter(op, "end %s is before start %s", util.FormatDate(r.End), util.FormatDate(r.Start))
	}
	return nil
}

func requireTicker(op, ticker string) error {
	if ticker == "" {
		return apperr.InvalidParameter(op, "ticker is required")
	}
	if !util.ValidTicker(ticker) {
		return apperr.InvalidParameter(op, "malformed ticker %q", ticker)
	}
	return nil
}

func requireTickers(op string, tickers []string) ([]string, error) {
	tickers = util.NormalizeTickers(tickers)
	if len(tickers) == 0 {
		return nil, apperr.InvalidParameter(op, "at least one ticker is required")
	}
	for _, t := range tickers {
		if !util.ValidTicker(t) {
			return nil, apperr.InvalidParameter(op, "malformed ticker %q", t)
		}
	}
	return tickers, nil
}
