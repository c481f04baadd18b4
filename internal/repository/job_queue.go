package repository

import (
	"context"

	"github.com/segmentio/kafka-go"

	domrepo "FinPrompt/internal/domain/repository"
	pkgkafka "FinPrompt/pkg/kafka"
	"FinPrompt/pkg/queue"
)

// KafkaJobQueue enqueues jobs on the jobs topic, keyed by job id. The id also
// travels as the run id header so results carry it.
type KafkaJobQueue struct {
	producer *pkgkafka.Producer
	topic    string
}

var (
	_ domrepo.JobQueue = (*KafkaJobQueue)(nil)
	_ domrepo.JobQueue = (*queue.RedisQueue)(nil)
)

func NewKafkaJobQueue(producer *pkgkafka.Producer, topic string) *KafkaJobQueue {
	return &KafkaJobQueue{producer: producer, topic: topic}
}

func (q *KafkaJobQueue) Enqueue(ctx context.Context, id string, payload []byte) error {
	return q.producer.PublishBatch(ctx, q.topic, []pkgkafka.Message{{
		Key:     []byte(id),
		Value:   payload,
		Headers: []kafka.Header{{Key: pkgkafka.RunIDHeader, Value: []byte(id)}},
	}})
}
