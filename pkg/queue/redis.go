package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"FinPrompt/pkg/logger"
)

// RedisQueue is a Redis list-backed job queue with delayed retries and a dead-letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	handler   Handler
	retryable func(error) bool
	now       func() time.Time

	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithLogger sets the queue logger.
func WithLogger(l *logger.Logger) RedisQueueOption {
	return func(r *RedisQueue) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryable decides which handler errors are retried. Others are dead-lettered at once.
func WithRetryable(fn func(error) bool) RedisQueueOption {
	return func(r *RedisQueue) {
		r.retryable = fn
	}
}

// WithHandler sets the handler run by Start.
func WithHandler(h Handler) RedisQueueOption {
	return func(r *RedisQueue) {
		r.handler = h
	}
}

// NewRedisQueue creates a new Redis queue. Enqueue works without Start; workers
// only run for a queue created WithHandler.
func NewRedisQueue(client *redis.Client, config QueueConfig, opts ...RedisQueueOption) *RedisQueue {
	config.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	rq := &RedisQueue{
		logger: logger.Nop(),
		config: &config,
		client: client,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// Start pings Redis and starts the workers and the retry processor.
func (r *RedisQueue) Start() error {
	if r.handler == nil {
		return errors.New("queue: no handler")
	}

	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.isRunning = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.mu.Lock()
		r.isRunning = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryProcessor()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr),
		logger.String("key", r.queueKey()))
	return nil
}

// Stop gracefully stops the queue, waiting for in-flight jobs.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.logger.Info("stopping redis queue")
	r.cancel()
	r.mu.Unlock()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		r.logger.Info("redis queue stopped gracefully")
		return nil
	}
}

// Enqueue pushes a job payload. An empty id gets a generated one.
func (r *RedisQueue) Enqueue(ctx context.Context, id string, payload []byte) error {
	if id == "" {
		id = uuid.NewString()
	}
	msgData, err := encodeMessage(Message{
		ID:        id,
		Payload:   payload,
		Timestamp: r.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.queueKey(), msgData).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

// DeadLetters returns up to n dead-lettered messages, newest first.
func (r *RedisQueue) DeadLetters(ctx context.Context, n int64) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.deadLetterKey(), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange dlq: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		msg, err := decodeMessage([]byte(s))
		if err != nil {
			r.logger.Warn("skip undecodable dlq message", logger.Error(err))
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.logger.Debug("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("queue worker stopping", logger.Int("worker_id", id))
			return
		default:
			r.processNextMessage()
		}
	}
}

func (r *RedisQueue) processNextMessage() {
	result, err := r.client.BRPop(r.ctx, r.config.PollTimeout, r.queueKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.logger.Error("brpop error", logger.Error(err))
		select {
		case <-r.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}
	if len(result) < 2 {
		return
	}

	msg, err := decodeMessage([]byte(result[1]))
	if err != nil {
		r.logger.Error("unmarshal message", logger.Error(err))
		return
	}
	r.processMessage(msg)
}

func (r *RedisQueue) processMessage(msg Message) {
	start := r.now()
	err := r.handler.Handle(r.ctx, msg.Payload)
	elapsed := r.now().Sub(start)

	if err != nil && errors.Is(err, context.Canceled) {
		r.logger.Warn("message cancelled, requeueing",
			logger.String("id", msg.ID),
			logger.Duration("elapsed", elapsed))
		r.schedule(msg, r.now())
		return
	}

	switch decide(msg, err, r.config.RetryLimit, r.retryable) {
	case outcomeDone:
		r.logger.Debug("message processed", logger.String("id", msg.ID), logger.Duration("elapsed", elapsed))
	case outcomeRetry:
		msg.Attempts++
		msg.LastError = err.Error()
		retryTime := r.now().Add(r.config.RetryDelay)
		r.schedule(msg, retryTime)
		r.logger.Warn("scheduled retry",
			logger.String("id", msg.ID),
			logger.Int("attempt", msg.Attempts),
			logger.String("retry_at", retryTime.Format(time.RFC3339)),
			logger.Error(err))
	case outcomeDead:
		msg.LastError = err.Error()
		r.logger.Error("message dead-lettered",
			logger.String("id", msg.ID),
			logger.Int("attempts", msg.Attempts+1),
			logger.Error(err))
		r.moveToDeadLetterQueue(msg)
	}
}

func (r *RedisQueue) schedule(msg Message, at time.Time) {
	msgData, err := encodeMessage(msg)
	if err != nil {
		r.logger.Error("marshal retry", logger.Error(err))
		return
	}
	err = r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(at.Unix()),
		Member: msgData,
	}).Err()
	if err != nil {
		r.logger.Error("zadd retry", logger.Error(err))
	}
}

func (r *RedisQueue) moveToDeadLetterQueue(msg Message) {
	msgData, err := encodeMessage(msg)
	if err != nil {
		r.logger.Error("marshal dlq", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), r.deadLetterKey(), msgData).Err(); err != nil {
		r.logger.Error("lpush dlq", logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.processRetryMessages()
		}
	}
}

// processRetryMessages moves due retries back onto the queue.
func (r *RedisQueue) processRetryMessages() {
	now := float64(r.now().Unix())

	result, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatFloat(now, 'f', 0, 64),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}

	for _, msgData := range result {
		if r.ctx.Err() != nil {
			return
		}
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), msgData)
		pipe.LPush(r.ctx, r.queueKey(), msgData)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func encodeMessage(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return b, nil
}

func decodeMessage(b []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}

func (r *RedisQueue) queueKey() string {
	return fmt.Sprintf("%s:messages", r.config.KeyPrefix)
}

func (r *RedisQueue) retryKey() string {
	return fmt.Sprintf("%s:retry", r.config.KeyPrefix)
}

func (r *RedisQueue) deadLetterKey() string {
	return fmt.Sprintf("%s:dlq", r.config.KeyPrefix)
}
