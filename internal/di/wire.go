//go:build wireinject
// +build wireinject

package di

import (
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/config"
	"FinPrompt/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideOptions,

		// Completion client
		ProvideCache,
		ProvideLimiter,
		ProvideCompleter,

		// Data sources
		ProvidePriceSource,
		ProvideNewsSource,
		ProvideTranscriptSource,
		ProvideStatementSource,
		ProvideSentimentSource,

		// Kafka
		ProvideKafkaProducer,
		ProvideResultPublisher,
		ProvideKafkaConsumer,

		// Job queue
		ProvideRedisQueue,
		ProvideJobQueue,
		ProvideJobIntake,

		// Use cases
		usecase.NewForecastUseCase,
		usecase.NewTickerUseCase,
		usecase.NewSentimentUseCase,
		usecase.NewEarningsUseCase,
		usecase.NewDataUseCase,
		ProvidePipeline,
		ProvideJobHandler,

		// Application
		ProvidePipelineHandler,
		ProvideApp,
	)
	return nil, nil, nil
}
