package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCompletion("openai", "ok")
	r.RecordCompletion("openai", "ok")
	r.RecordWindow("price", "malformed_reply")
	r.RecordEntity("forecast", "ok")
	r.RecordError("completion_failure")
	r.RecordLatency("complete", 0.3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.completions.WithLabelValues("openai", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.windows.WithLabelValues("price", "malformed_reply")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("completion_failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersUseSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
