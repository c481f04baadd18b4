package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	domrepo "FinPrompt/internal/domain/repository"
	pkgkafka "FinPrompt/pkg/kafka"
)

// ResultEnvelope is the JSON value of every published result message.
type ResultEnvelope struct {
	RunID      string      `json:"run_id"`
	Kind       string      `json:"kind"`
	Ticker     string      `json:"ticker"`
	Payload    interface{} `json:"payload"`
	ProducedAt time.Time   `json:"produced_at"`
}

// KafkaResultPublisher implements ResultPublisher for Kafka. Messages are keyed by ticker.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	runID    string
	now      func() time.Time
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

// NewKafkaResultPublisher creates a publisher stamping every message with a fresh run id.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{
		producer: producer,
		topic:    topic,
		runID:    uuid.NewString(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunID identifies this process's results.
func (p *KafkaResultPublisher) RunID() string { return p.runID }

// PublishResults writes rows in one batch. The context run id, when set, overrides the publisher's.
func (p *KafkaResultPublisher) PublishResults(ctx context.Context, kind string, rows []domrepo.ResultRow) error {
	if len(rows) == 0 {
		return nil
	}
	runID := p.runID
	if id := pkgkafka.RunIDFrom(ctx); id != "" {
		runID = id
	}
	ts := p.now()

	msgs := make([]pkgkafka.Message, len(rows))
	for i, r := range rows {
		msgs[i] = pkgkafka.Message{
			Key: []byte(r.Ticker),
			Value: ResultEnvelope{
				RunID:      runID,
				Kind:       kind,
				Ticker:     r.Ticker,
				Payload:    r.Payload,
				ProducedAt: ts,
			},
			Headers: []kafka.Header{
				{Key: pkgkafka.RunIDHeader, Value: []byte(runID)},
				{Key: "kind", Value: []byte(kind)},
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopResultPublisher drops results. It is used when Kafka is disabled.
type NopResultPublisher struct{}

var _ domrepo.ResultPublisher = NopResultPublisher{}

func (NopResultPublisher) PublishResults(context.Context, string, []domrepo.ResultRow) error {
	return nil
}

func (NopResultPublisher) Close() error { return nil }
