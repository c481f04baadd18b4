package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Handler processes one raw job payload.
type Handler interface {
	Handle(ctx context.Context, payload []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) error { return f(ctx, payload) }

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers     int           // number of workers
	RetryLimit  int           // number of maximum retries
	RetryDelay  time.Duration // time delay between retries
	PollTimeout time.Duration // BRPOP timeout, bounds how long Stop waits for an idle worker
	KeyPrefix   string
}

func (c *QueueConfig) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "finprompt:jobs"
	}
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
	outcomeDead
)

func (o outcome) String() string {
	switch o {
	case outcomeRetry:
		return "retry"
	case outcomeDead:
		return "dead"
	default:
		return "done"
	}
}

// decide classifies a handled message. Errors the retryable predicate rejects go
// straight to the dead-letter list.
func decide(msg Message, err error, retryLimit int, retryable func(error) bool) outcome {
	if err == nil {
		return outcomeDone
	}
	if retryable != nil && !retryable(err) {
		return outcomeDead
	}
	if msg.Attempts < retryLimit {
		return outcomeRetry
	}
	return outcomeDead
}
