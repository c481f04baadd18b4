package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	completions *prometheus.CounterVec
	windows     *prometheus.CounterVec
	entities    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		completions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finprompt_completions_total",
				Help: "Total number of completion calls by provider and result",
			},
			[]string{"provider", "result"},
		),
		windows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finprompt_windows_total",
				Help: "Total number of processed windows by task and result",
			},
			[]string{"task", "result"},
		),
		entities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finprompt_entities_total",
				Help: "Total number of fan-out entities by operation and result",
			},
			[]string{"op", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finprompt_errors_total",
				Help: "Total number of errors encountered by kind",
			},
			[]string{"kind"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finprompt_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// RecordCompletion counts one completion call.
func (r *Recorder) RecordCompletion(provider, result string) {
	r.completions.WithLabelValues(provider, result).Inc()
}

// RecordWindow counts one processed window.
func (r *Recorder) RecordWindow(task, result string) {
	r.windows.WithLabelValues(task, result).Inc()
}

// RecordEntity counts one fan-out entity.
func (r *Recorder) RecordEntity(op, result string) {
	r.entities.WithLabelValues(op, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCompletion(string, string) {}
func (Nop) RecordWindow(string, string)     {}
func (Nop) RecordEntity(string, string)     {}
func (Nop) RecordError(string)              {}
func (Nop) RecordLatency(string, float64)   {}
