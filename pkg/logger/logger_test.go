package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.With(String("ticker", "AAPL")).Warn("window skipped",
		Date("last_date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Float64("temperature", 0.1),
		Int64("est_revenue", 52480000),
		Strings("tickers", []string{"AAPL", "MSFT"}),
		Error(errors.New("malformed reply")))

	out := buf.String()
	assert.Contains(t, out, `"ticker":"AAPL"`)
	assert.Contains(t, out, `"temperature":0.1`)
	assert.Contains(t, out, `"est_revenue":52480000`)
	assert.Contains(t, out, `"tickers":"AAPL, MSFT"`)
	assert.Contains(t, out, `"last_date":"2024-03-01"`)
	assert.Contains(t, out, `"error":"malformed reply"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)
	log.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestCollectorAggregatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "finprompt.failures",
		Publisher:      pub,
		GroupBy:        []string{"op"},
	})

	for i := 0; i < 3; i++ {
		log.Warn("entity failed", String("op", "forecast"), Int("i", i))
	}
	log.Error("entity failed", String("op", "earnings"))
	log.Info("not collected")
	log.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "finprompt.failures", pub.topic)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["op"].(string)] += e.Count
	}
	assert.Equal(t, map[string]int{"forecast": 3, "earnings": 1}, counts)
}
