package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFatal = errors.New("fatal")

func notFatal(err error) bool { return !errors.Is(err, errFatal) }

func TestDecide(t *testing.T) {
	cases := []struct {
		name     string
		attempts int
		err      error
		want     outcome
	}{
		{"success", 0, nil, outcomeDone},
		{"first failure retries", 0, errors.New("timeout"), outcomeRetry},
		{"last retry", 2, errors.New("timeout"), outcomeRetry},
		{"retries exhausted", 3, errors.New("timeout"), outcomeDead},
		{"not retryable", 0, errFatal, outcomeDead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decide(Message{Attempts: tc.attempts}, tc.err, 3, notFatal)
			assert.Equal(t, tc.want, got, got.String())
		})
	}

	assert.Equal(t, outcomeRetry, decide(Message{}, errFatal, 1, nil))
}

func TestConfigDefaults(t *testing.T) {
	q := NewRedisQueue(nil, QueueConfig{RetryLimit: -1})
	assert.Equal(t, 1, q.config.Workers)
	assert.Equal(t, 0, q.config.RetryLimit)
	assert.Equal(t, 10*time.Second, q.config.RetryDelay)
	assert.Equal(t, "finprompt:jobs:messages", q.queueKey())
	assert.Equal(t, "finprompt:jobs:retry", q.retryKey())
	assert.Equal(t, "finprompt:jobs:dlq", q.deadLetterKey())
}

func TestMessageRoundTripKeepsRawPayload(t *testing.T) {
	in := Message{ID: "job-1", Payload: []byte(`{"kind":"forecast","tickers":["AAPL"]}`), Attempts: 2, LastError: "boom"}
	b, err := encodeMessage(in)
	require.NoError(t, err)

	out, err := decodeMessage(b)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.JSONEq(t, string(in.Payload), string(out.Payload))
	assert.Equal(t, 2, out.Attempts)

	_, err = decodeMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestStartRequiresHandler(t *testing.T) {
	q := NewRedisQueue(nil, QueueConfig{})
	assert.Error(t, q.Start())
	assert.NoError(t, q.Stop(context.Background()))
}

func TestProcessMessageRunsHandler(t *testing.T) {
	// Unreachable: failures to schedule retries are only logged.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	var got [][]byte
	h := HandlerFunc(func(_ context.Context, payload []byte) error {
		got = append(got, payload)
		if string(payload) == `"bad"` {
			return errFatal
		}
		return nil
	})
	q := NewRedisQueue(client, QueueConfig{RetryLimit: 2}, WithHandler(h), WithRetryable(notFatal))

	q.processMessage(Message{ID: "1", Payload: []byte(`"ok"`)})
	q.processMessage(Message{ID: "2", Payload: []byte(`"bad"`)})

	require.Len(t, got, 2)
	assert.Equal(t, `"ok"`, string(got[0]))
}
