package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/usecase"
	"FinPrompt/pkg/config"
	xhttp "FinPrompt/pkg/http"
	applogger "FinPrompt/pkg/logger"
)

// Pipeline groups the use cases shared by the CLI, the HTTP API and the job worker.
type Pipeline struct {
	Forecast  *usecase.ForecastUseCase
	Ticker    *usecase.TickerUseCase
	Sentiment *usecase.SentimentUseCase
	Earnings  *usecase.EarningsUseCase
	Data      *usecase.DataUseCase
	Publisher domrepo.ResultPublisher
}

// JobIntake delivers queued jobs to their handler while started.
type JobIntake interface {
	Start() error
	Stop(ctx context.Context) error
}

// App encapsulates the application lifecycle.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	Pipeline *Pipeline

	handler    xhttp.Handler
	intake     JobIntake
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies. intake is nil when no
// job backend is configured.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *Pipeline,
	handler xhttp.Handler,
	intake JobIntake,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:      cfg,
		log:      log,
		Pipeline: pipeline,
		handler:  handler,
		intake:   intake,
	}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.log }

// MinCount is the default universe threshold.
func (a *App) MinCount() int { return a.cfg.Pipeline.MinCount }

// Serve starts the HTTP API and blocks until ctx is done or a signal arrives.
func (a *App) Serve(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	a.wait(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	return nil
}

// Work processes queued pipeline jobs until ctx is done or a signal arrives.
func (a *App) Work(ctx context.Context) error {
	if a.intake == nil {
		return errors.New("worker requires queue.backend redis, or kafka.enabled with kafka.brokers")
	}

	if err := a.intake.Start(); err != nil {
		a.log.Error("job intake start error", applogger.Error(err))
		return err
	}
	a.log.Info("worker started", applogger.String("backend", a.cfg.Queue.Backend))

	a.wait(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.intake.Stop(stopCtx); err != nil {
		a.log.Warn("job intake stop error", applogger.Error(err))
	}
	return nil
}

// Close flushes the failure digest. Infrastructure clients are released by the
// cleanup function returned alongside the App, after Close.
func (a *App) Close() error {
	a.log.RemoveCollector()
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) wait(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case s := <-sigCh:
		a.log.Info("shutdown signal received", applogger.String("signal", s.String()))
	}
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}
