package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "FinPrompt/internal/domain/repository"
	pkgkafka "FinPrompt/pkg/kafka"
)

type recordingWriter struct {
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaResultPublisherEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaResultPublisher(pkgkafka.NewProducerWithWriter(w, "gzip"), "finprompt.results")
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.PublishResults(context.Background(), "forecast", []domrepo.ResultRow{
		{Ticker: "AAPL", Payload: map[string]string{"estimated_price": "101.5"}},
		{Ticker: "MSFT", Payload: map[string]string{"estimated_price": "410"}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "AAPL", string(w.msgs[0].Key))
	var env ResultEnvelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, p.RunID(), env.RunID)
	assert.Equal(t, "forecast", env.Kind)
	assert.Equal(t, "AAPL", env.Ticker)
	assert.True(t, fixed.Equal(env.ProducedAt))
	assert.Equal(t, pkgkafka.RunIDHeader, w.msgs[0].Headers[0].Key)
}

func TestKafkaResultPublisherRunIDFromContext(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaResultPublisher(pkgkafka.NewProducerWithWriter(w, "gzip"), "finprompt.results")

	ctx := pkgkafka.WithRunID(context.Background(), "job-7")
	require.NoError(t, p.PublishResults(ctx, "earnings", []domrepo.ResultRow{{Ticker: "NVDA", Payload: 1}}))

	var env ResultEnvelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, "job-7", env.RunID)
}

func TestKafkaResultPublisherEmpty(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaResultPublisher(pkgkafka.NewProducerWithWriter(w, "gzip"), "t")
	require.NoError(t, p.PublishResults(context.Background(), "forecast", nil))
	assert.Empty(t, w.msgs)
}

func TestKafkaJobQueueEnqueue(t *testing.T) {
	w := &recordingWriter{}
	q := NewKafkaJobQueue(pkgkafka.NewProducerWithWriter(w, "gzip"), "finprompt.jobs")

	payload := []byte(`{"id":"job-1","kind":"earnings"}`)
	require.NoError(t, q.Enqueue(context.Background(), "job-1", payload))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "finprompt.jobs", w.msgs[0].Topic)
	assert.Equal(t, "job-1", string(w.msgs[0].Key))
	assert.JSONEq(t, string(payload), string(w.msgs[0].Value))
	assert.Equal(t, "job-1", pkgkafka.ExtractRunID(w.msgs[0]))
}

type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*time.Time) = row[1].(time.Time)
	*dest[2].(*float64) = row[2].(float64)
	*dest[3].(*int64) = row[3].(int64)
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func TestScanPriceRows(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	rows := &fakeRows{data: [][]any{
		{"AAPL", d, 185.64, int64(82488700)},
		{"", d, 10.0, int64(1)},
		{"MSFT", d, 0.0, int64(1)},
		{" TSLA ", d, 248.42, int64(104654200)},
	}}

	out, skipped, err := scanPriceRows(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, out, 2)
	assert.Equal(t, "AAPL", out[0].Ticker)
	assert.Equal(t, "185.64", out[0].Close.String())
	assert.Equal(t, time.UTC, out[0].Date.Location())
	assert.Equal(t, "TSLA", out[1].Ticker)
}

func TestScanPriceRowsErr(t *testing.T) {
	_, _, err := scanPriceRows(&fakeRows{err: errors.New("connection lost")})
	assert.Error(t, err)
}

func TestTableNameValidation(t *testing.T) {
	assert.True(t, tableNameRe.MatchString("market.stock_price_history"))
	assert.False(t, tableNameRe.MatchString("prices; DROP TABLE x"))
}
