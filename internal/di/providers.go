package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"FinPrompt/internal/domain/repository"
	"FinPrompt/internal/extractor"
	"FinPrompt/internal/handler/api"
	"FinPrompt/internal/llm"
	internalrepo "FinPrompt/internal/repository"
	"FinPrompt/internal/service/ratelimit"
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/cache"
	pkgch "FinPrompt/pkg/clickhouse"
	"FinPrompt/pkg/config"
	pkgkafka "FinPrompt/pkg/kafka"
	"FinPrompt/pkg/logger"
	"FinPrompt/pkg/metrics"
	"FinPrompt/pkg/queue"
	"FinPrompt/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(nil)
}

// ProvideOptions maps the pipeline section onto use case options.
func ProvideOptions(cfg *config.Config) usecase.Options {
	return usecase.Options{
		WindowSize:    cfg.Pipeline.WindowSize,
		WindowWorkers: cfg.Pipeline.WindowWorkers,
		Workers:       cfg.Pipeline.Workers,
		NewsWorkers:   cfg.Pipeline.NewsWorkers,
		Temperature:   cfg.Pipeline.Temperature,
	}
}

// ProvideCache creates the completion cache. Backend "none" yields a nil service.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	redisCache := func() (*cache.RedisCache, error) {
		return cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.MinIdleConns, cfg.Cache.Redis.PoolTimeout),
		)
	}

	var svc cache.Service
	switch cfg.Cache.Backend {
	case "memory":
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		)
	case "redis":
		rc, err := redisCache()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
	case "layered":
		rc, err := redisCache()
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = cache.NewLayeredCache(rc, cfg.Cache.MemorySize)
	default:
		return nil, func() {}, nil
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideLimiter creates the completion rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.LLM.RPS, cfg.LLM.Burst)
}

// ProvideCompleter builds the configured provider client with its decorators.
func ProvideCompleter(
	cfg *config.Config,
	store cache.Service,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	l *logger.Logger,
) (repository.Completer, error) {
	opts := []llm.Option{
		llm.WithLimiter(limiter),
		llm.WithMetrics(m),
		llm.WithLogger(l),
	}
	if store != nil {
		opts = append(opts, llm.WithCache(store))
	}

	c, err := llm.New(context.Background(), llm.Config{
		Provider:  llm.Provider(cfg.LLM.Provider),
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
		RPS:       cfg.LLM.RPS,
		Burst:     cfg.LLM.Burst,
		CacheTTL:  cfg.Cache.TTL,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return c, nil
}

// ProvidePriceSource loads the price history from CSV or ClickHouse.
func ProvidePriceSource(cfg *config.Config, l *logger.Logger) (repository.PriceSource, error) {
	if cfg.Data.PriceSource == "clickhouse" {
		return loadClickHousePrices(cfg, l)
	}
	path, ok := dataFile(cfg, cfg.Data.PriceFile, l)
	if !ok {
		return extractor.NewPriceExtractor(nil), nil
	}
	return extractor.LoadPrices(path)
}

func loadClickHousePrices(cfg *config.Config, l *logger.Logger) (*extractor.PriceExtractor, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	defer client.Close()

	store, err := internalrepo.NewCHPriceStore(client, cfg.ClickHouse.Table)
	if err != nil {
		return nil, err
	}
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.ReadTimeout+cfg.ClickHouse.MaxExecutionTime)
	defer cancel()
	return extractor.LoadPricesFromStore(ctx, store)
}

// ProvideNewsSource loads the news history.
func ProvideNewsSource(cfg *config.Config, l *logger.Logger) (repository.NewsSource, error) {
	path, ok := dataFile(cfg, cfg.Data.NewsFile, l)
	if !ok {
		return extractor.NewNewsExtractor(nil), nil
	}
	return extractor.LoadNews(path)
}

// ProvideTranscriptSource loads the earnings-call transcripts.
func ProvideTranscriptSource(cfg *config.Config, l *logger.Logger) (repository.TranscriptSource, error) {
	path, ok := dataFile(cfg, cfg.Data.TranscriptFile, l)
	if !ok {
		return extractor.NewTranscriptExtractor(nil), nil
	}
	return extractor.LoadTranscripts(path)
}

// ProvideStatementSource loads the quarterly financial statements.
func ProvideStatementSource(cfg *config.Config, l *logger.Logger) (repository.StatementSource, error) {
	path, ok := dataFile(cfg, cfg.Data.StatementFile, l)
	if !ok {
		return extractor.NewStatementExtractor(nil), nil
	}
	return extractor.LoadStatements(path)
}

// ProvideSentimentSource loads previously exported sentiment scores used by forecasts with news.
func ProvideSentimentSource(cfg *config.Config, l *logger.Logger) (repository.SentimentSource, error) {
	path, ok := dataFile(cfg, cfg.Data.SentimentFile, l)
	if !ok {
		return extractor.NewSentimentExtractor(nil), nil
	}
	return extractor.LoadSentiment(path)
}

// dataFile resolves name under the data directory. A missing file is logged and
// leaves the source empty, so commands that do not need it still run.
func dataFile(cfg *config.Config, name string, l *logger.Logger) (string, bool) {
	path := cfg.DataPath(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		l.Warn("data file not found, source is empty", logger.String("path", path))
		return path, false
	}
	return path, true
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideResultPublisher publishes results to Kafka, or drops them when Kafka is disabled.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ResultPublisher {
	if producer == nil {
		return internalrepo.NopResultPublisher{}
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the job consumer, or nil when Kafka is disabled or
// jobs are queued elsewhere.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Queue.Backend != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.WithConsumerHook(pkgkafka.RunIDHook())
	return consumer, nil
}

// ProvidePipeline groups the use cases.
func ProvidePipeline(
	forecast *usecase.ForecastUseCase,
	ticker *usecase.TickerUseCase,
	sentiment *usecase.SentimentUseCase,
	earnings *usecase.EarningsUseCase,
	data *usecase.DataUseCase,
	publisher repository.ResultPublisher,
) *server.Pipeline {
	return &server.Pipeline{
		Forecast:  forecast,
		Ticker:    ticker,
		Sentiment: sentiment,
		Earnings:  earnings,
		Data:      data,
		Publisher: publisher,
	}
}

// ProvideJobHandler handles jobs from the jobs topic.
func ProvideJobHandler(cfg *config.Config, p *server.Pipeline, m repository.Metrics, l *logger.Logger) *usecase.JobHandler {
	return usecase.NewJobHandler(usecase.JobHandlerParams{
		Topic:     cfg.Kafka.JobsTopic,
		Forecast:  p.Forecast,
		Ticker:    p.Ticker,
		Sentiment: p.Sentiment,
		Earnings:  p.Earnings,
		Publisher: p.Publisher,
		Metrics:   m,
		Log:       l,
	})
}

// ProvideRedisQueue creates the Redis job queue, or nil unless queue.backend is redis.
func ProvideRedisQueue(cfg *config.Config, l *logger.Logger, jobs *usecase.JobHandler) (*queue.RedisQueue, func(), error) {
	if cfg.Queue.Backend != "redis" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Cache.Redis.Addr,
		Password:     cfg.Cache.Redis.Password,
		DB:           cfg.Cache.Redis.DB,
		PoolSize:     cfg.Cache.Redis.PoolSize,
		MinIdleConns: cfg.Cache.Redis.MinIdleConns,
		PoolTimeout:  cfg.Cache.Redis.PoolTimeout,
	})
	rq := queue.NewRedisQueue(client, queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
		KeyPrefix:  cfg.Queue.KeyPrefix,
	},
		queue.WithHandler(jobs),
		queue.WithRetryable(func(err error) bool { return !pkgkafka.IsPermanent(err) }),
		queue.WithLogger(l),
	)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("redis queue close error", logger.Error(err))
		}
	}
	return rq, cleanup, nil
}

// ProvideJobQueue selects where submitted jobs go. It returns nil when neither
// backend is available.
func ProvideJobQueue(cfg *config.Config, producer *pkgkafka.Producer, rq *queue.RedisQueue) repository.JobQueue {
	switch {
	case rq != nil:
		return rq
	case producer != nil:
		return internalrepo.NewKafkaJobQueue(producer, cfg.Kafka.JobsTopic)
	default:
		return nil
	}
}

// ProvideJobIntake selects what feeds the worker: the Redis queue, or the Kafka
// consumer on the jobs topic.
func ProvideJobIntake(consumer *pkgkafka.Consumer, rq *queue.RedisQueue, jobs *usecase.JobHandler) server.JobIntake {
	switch {
	case rq != nil:
		return rq
	case consumer != nil:
		consumer.RegisterHandler(jobs)
		return consumer
	default:
		return nil
	}
}

// ProvidePipelineHandler creates the HTTP handler.
func ProvidePipelineHandler(cfg *config.Config, p *server.Pipeline, q repository.JobQueue, l *logger.Logger) *api.PipelineHandler {
	return api.NewPipelineHandler(api.PipelineHandlerParams{
		Logger:    l,
		Forecast:  p.Forecast,
		Ticker:    p.Ticker,
		Sentiment: p.Sentiment,
		Earnings:  p.Earnings,
		Data:      p.Data,
		Jobs:      q,
		MinCount:  cfg.Pipeline.MinCount,
	})
}

// ProvideApp creates the application. When Kafka is enabled, repeated warn and error
// lines are also published as digests to the log topic.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	p *server.Pipeline,
	h *api.PipelineHandler,
	producer *pkgkafka.Producer,
	intake server.JobIntake,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   time.Minute,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
			GroupBy:        []string{"op", "ticker"},
		})
	}
	return server.New(cfg, l, p, h, intake)
}
