package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"FinPrompt/internal/domain/models"
	domrepo "FinPrompt/internal/domain/repository"
	"FinPrompt/internal/usecase"
	xhttp "FinPrompt/pkg/http"
	xlogger "FinPrompt/pkg/logger"
)

// PipelineHandler exposes the analysis use cases over HTTP.
type PipelineHandler struct {
	logger    *xlogger.Logger
	forecast  *usecase.ForecastUseCase
	ticker    *usecase.TickerUseCase
	sentiment *usecase.SentimentUseCase
	earnings  *usecase.EarningsUseCase
	data      *usecase.DataUseCase
	jobs      domrepo.JobQueue
	minCount  int
}

var _ xhttp.Handler = (*PipelineHandler)(nil)

type PipelineHandlerParams struct {
	Logger    *xlogger.Logger
	Forecast  *usecase.ForecastUseCase
	Ticker    *usecase.TickerUseCase
	Sentiment *usecase.SentimentUseCase
	Earnings  *usecase.EarningsUseCase
	Data      *usecase.DataUseCase
	// Jobs enables POST /api/jobs when set.
	Jobs     domrepo.JobQueue
	MinCount int
}

func NewPipelineHandler(p PipelineHandlerParams) *PipelineHandler {
	if p.Logger == nil {
		p.Logger = xlogger.Nop()
	}
	return &PipelineHandler{
		logger:    p.Logger,
		forecast:  p.Forecast,
		ticker:    p.Ticker,
		sentiment: p.Sentiment,
		earnings:  p.Earnings,
		data:      p.Data,
		jobs:      p.Jobs,
		minCount:  p.MinCount,
	}
}

func (h *PipelineHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.POST("/forecast/batch", h.ForecastBatch)
	g.GET("/ticker-guess", h.TickerGuess)
	g.POST("/ticker-guess/batch", h.TickerGuessBatch)
	g.GET("/sentiment", h.Sentiment)
	g.POST("/sentiment/batch", h.SentimentBatch)
	g.GET("/earnings", h.Earnings)
	g.POST("/earnings/batch", h.EarningsBatch)
	g.GET("/stats", h.Stats)
	g.GET("/universe/price", h.PriceUniverse)
	g.GET("/universe/news", h.NewsUniverse)
	if h.jobs != nil {
		g.POST("/jobs", h.SubmitJob)
	}
}

func (h *PipelineHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PipelineHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.forecast.Forecast(c.Request().Context(), usecase.ForecastParams{
		Ticker: req.Ticker, Range: r, WindowSize: req.Window, WithNews: req.WithNews,
	})
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) ForecastBatch(c echo.Context) error {
	req := &models.BatchForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.forecast.ForecastTickers(c.Request().Context(), usecase.ForecastTickersParams{
		Tickers: req.Tickers, Range: r, WindowSize: req.Window, WithNews: req.WithNews,
	})
	if err != nil {
		return h.fail(c, "forecast batch", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) TickerGuess(c echo.Context) error {
	req := &models.TickerGuessRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.ticker.EstimateTicker(c.Request().Context(), usecase.EstimateTickerParams{
		Ticker: req.Ticker, Range: r, WindowSize: req.Window,
	})
	if err != nil {
		return h.fail(c, "ticker guess", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) TickerGuessBatch(c echo.Context) error {
	req := &models.BatchTickerGuessRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.ticker.EstimateTickers(c.Request().Context(), usecase.EstimateTickersParams{
		Tickers: req.Tickers, Range: r, WindowSize: req.Window,
	})
	if err != nil {
		return h.fail(c, "ticker guess batch", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) Sentiment(c echo.Context) error {
	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.sentiment.AnalyzeTickerSentiments(c.Request().Context(), usecase.SentimentParams{Ticker: req.Ticker, Range: r})
	if err != nil {
		return h.fail(c, "sentiment", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) SentimentBatch(c echo.Context) error {
	req := &models.BatchSentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.sentiment.AnalyzeTickersSentiments(c.Request().Context(), usecase.SentimentTickersParams{Tickers: req.Tickers, Range: r})
	if err != nil {
		return h.fail(c, "sentiment batch", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) Earnings(c echo.Context) error {
	req := &models.EarningsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.earnings.EstimateEarnings(c.Request().Context(), usecase.EarningsParams{
		Ticker: req.Ticker, Year: req.Year, Quarter: req.Quarter,
	})
	if err != nil {
		return h.fail(c, "earnings", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineHandler) EarningsBatch(c echo.Context) error {
	req := &models.BatchEarningsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers := req.Tickers
	if len(tickers) == 0 {
		tickers = h.earnings.StatementTickers()
	}

	res, err := h.earnings.EstimateEarningsTickers(c.Request().Context(), usecase.EarningsTickersParams{
		Tickers: tickers, Year: req.Year, Quarter: req.Quarter,
	})
	if err != nil {
		return h.fail(c, "earnings batch", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

func (h *PipelineHandler) Stats(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, aerr := dateRange(req.Start, req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.data.Statistics(usecase.StatisticsParams{Ticker: req.Ticker, Range: r})
	if err != nil {
		return h.fail(c, "stats", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

func (h *PipelineHandler) PriceUniverse(c echo.Context) error {
	return h.universe(c, h.data.PriceUniverse)
}

func (h *PipelineHandler) NewsUniverse(c echo.Context) error {
	return h.universe(c, h.data.NewsUniverse)
}

func (h *PipelineHandler) universe(c echo.Context, fn func(usecase.UniverseParams) ([]models.UniverseEntry, error)) error {
	req := &models.UniverseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start, aerr := xhttp.ParseOptionalDate("start", req.Start)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	end, aerr := xhttp.ParseOptionalDate("end", req.End)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := fn(usecase.UniverseParams{Start: start, End: end, MinCount: xhttp.ParseIntDefault(req.MinCount, h.minCount)})
	if err != nil {
		return h.fail(c, "universe", err)
	}
	return xhttp.RowsResult(c, res, len(res))
}

// SubmitJob queues a pipeline run for the worker and returns its id.
func (h *PipelineHandler) SubmitJob(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := usecase.SubmitJob(c.Request().Context(), h.jobs, usecase.Job{
		ID:         req.ID,
		Kind:       req.Kind,
		Tickers:    req.Tickers,
		Start:      req.Start,
		End:        req.End,
		WindowSize: req.WindowSize,
		WithNews:   req.WithNews,
		Year:       req.Year,
		Quarter:    req.Quarter,
	})
	if err != nil {
		return h.fail(c, "submit job", err)
	}
	h.logger.Info("job queued", xlogger.String("id", id), xlogger.String("kind", req.Kind))
	return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"id": id})
}

func (h *PipelineHandler) fail(c echo.Context, op string, err error) error {
	appErr := xhttp.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func dateRange(start, end string) (usecase.DateRange, *xhttp.AppError) {
	s, aerr := xhttp.ParseDateParam("start", start)
	if aerr != nil {
		return usecase.DateRange{}, aerr
	}
	e, aerr := xhttp.ParseDateParam("end", end)
	if aerr != nil {
		return usecase.DateRange{}, aerr
	}
	return usecase.DateRange{Start: s, End: e}, nil
}
