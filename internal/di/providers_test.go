package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "FinPrompt/internal/repository"
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/cache"
	"FinPrompt/pkg/config"
	pkgkafka "FinPrompt/pkg/kafka"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/metrics"
	"FinPrompt/pkg/queue"
)

type nopWriter struct{}

func (nopWriter) WriteMessages(_ context.Context, _ ...kafka.Message) error { return nil }
func (nopWriter) Close() error                                              { return nil }

func TestProvideJobQueueSelection(t *testing.T) {
	cfg := config.Default()
	assert.Nil(t, ProvideJobQueue(cfg, nil, nil))

	producer := pkgkafka.NewProducerWithWriter(nopWriter{}, "gzip")
	assert.IsType(t, &internalrepo.KafkaJobQueue{}, ProvideJobQueue(cfg, producer, nil))

	rq := queue.NewRedisQueue(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), queue.QueueConfig{})
	assert.Same(t, rq, ProvideJobQueue(cfg, producer, rq))
}

func TestProvideRedisQueueOnlyForRedisBackend(t *testing.T) {
	cfg := config.Default()
	rq, cleanup, err := ProvideRedisQueue(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	assert.Nil(t, rq)
	cleanup()

	cfg.Queue.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	rq, cleanup, err = ProvideRedisQueue(cfg, logger.Nop(), nil)
	require.NoError(t, err)
	require.NotNil(t, rq)
	assert.Same(t, rq, ProvideJobIntake(nil, rq, nil))
	cleanup()
}

func TestProvideJobIntakeNone(t *testing.T) {
	assert.Nil(t, ProvideJobIntake(nil, nil, nil))
}

func TestProvideKafkaDisabled(t *testing.T) {
	cfg := config.Default()
	producer, cleanup, err := ProvideKafkaProducer(cfg, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, producer)
	cleanup()

	consumer, err := ProvideKafkaConsumer(cfg, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, consumer)
	assert.IsType(t, internalrepo.NopResultPublisher{}, ProvideResultPublisher(cfg, nil))
}

func TestProvideCacheBackends(t *testing.T) {
	cfg := config.Default()
	svc, cleanup, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, svc)
	cleanup()

	cfg.Cache.Backend = "memory"
	svc, cleanup, err = ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, svc)
	cleanup()
}

func TestProvideMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	assert.Equal(t, metrics.Nop{}, ProvideMetrics(cfg))
}

func TestInitializeAppFromCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "date,open,close,ticker,volume\n" +
		"2024-01-02,1,100,AAPL,10\n" +
		"2024-01-03,1,110,AAPL,10\n" +
		"2024-01-04,1,99,AAPL,10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stock_price_history.csv"), []byte(csv), 0o644))

	cfg := config.Default()
	cfg.Data.Dir = dir
	cfg.Metrics.Enabled = false

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	stats, err := app.Pipeline.Data.Statistics(usecase.StatisticsParams{
		Ticker: "aapl",
		Range: usecase.DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stats.Ticker)
	assert.Equal(t, 110.0, stats.MaxPrice)

	assert.IsType(t, internalrepo.NopResultPublisher{}, app.Pipeline.Publisher)
}
