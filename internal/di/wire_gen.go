//go:build !wireinject
// +build !wireinject

package di

import (
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/config"
	"FinPrompt/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// It mirrors the provider sets in wire.go, so keep the two in step.
// Cleanups run in reverse construction order.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	priceSource, err := ProvidePriceSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sentimentSource, err := ProvideSentimentSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	service, cleanup, err := ProvideCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	limiter := ProvideLimiter(cfg)
	metrics := ProvideMetrics(cfg)
	completer, err := ProvideCompleter(cfg, service, limiter, metrics, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	options := ProvideOptions(cfg)
	forecastUseCase := usecase.NewForecastUseCase(priceSource, sentimentSource, completer, logger, metrics, options)
	tickerUseCase := usecase.NewTickerUseCase(priceSource, completer, logger, metrics, options)
	newsSource, err := ProvideNewsSource(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	sentimentUseCase := usecase.NewSentimentUseCase(newsSource, completer, logger, metrics, options)
	statementSource, err := ProvideStatementSource(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	transcriptSource, err := ProvideTranscriptSource(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	earningsUseCase := usecase.NewEarningsUseCase(statementSource, transcriptSource, newsSource, completer, logger, metrics, options)
	dataUseCase := usecase.NewDataUseCase(priceSource, newsSource)
	producer, cleanup2, err := ProvideKafkaProducer(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	resultPublisher := ProvideResultPublisher(cfg, producer)
	pipeline := ProvidePipeline(forecastUseCase, tickerUseCase, sentimentUseCase, earningsUseCase, dataUseCase, resultPublisher)
	jobHandler := ProvideJobHandler(cfg, pipeline, metrics, logger)
	redisQueue, cleanup3, err := ProvideRedisQueue(cfg, logger, jobHandler)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	jobQueue := ProvideJobQueue(cfg, producer, redisQueue)
	pipelineHandler := ProvidePipelineHandler(cfg, pipeline, jobQueue, logger)
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		cleanup3()
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	jobIntake := ProvideJobIntake(consumer, redisQueue, jobHandler)
	app := ProvideApp(cfg, logger, pipeline, pipelineHandler, producer, jobIntake)
	return app, func() {
		cleanup3()
		cleanup2()
		cleanup()
	}, nil
}
