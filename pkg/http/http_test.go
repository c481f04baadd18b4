package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinPrompt/internal/domain/apperr"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.InvalidParameter("forecast", "ticker is required"), http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{apperr.DataNotFound("statistics", "no rows for %s", "PYPL"), http.StatusNotFound, "ERR_NOT_FOUND"},
		{apperr.MalformedReply("parse_price", "marker not found"), http.StatusBadGateway, "ERR_MALFORMED_REPLY"},
		{apperr.CompletionFailure("openai", errors.New("reset")), http.StatusBadGateway, "ERR_COMPLETION_FAILURE"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code)
	}

	own := BadRequestError("nope")
	assert.Same(t, own, FromError(own))
}

func TestParseDateParam(t *testing.T) {
	d, aerr := ParseDateParam("start", "2024-03-01")
	require.Nil(t, aerr)
	assert.Equal(t, "2024-03-01", d.Format("2006-01-02"))

	_, aerr = ParseDateParam("start", "March 1st")
	require.NotNil(t, aerr)
	assert.Equal(t, "start", aerr.Field)
	assert.Equal(t, http.StatusBadRequest, aerr.Status)

	p, aerr := ParseOptionalDate("end", "")
	assert.Nil(t, aerr)
	assert.Nil(t, p)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, apperr.DataNotFound("statistics", "no rows")))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, body.Status)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("dial tcp: secret host")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret host")
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/panic", func(c echo.Context) error { panic("kaboom") })
}

func TestServerRoutesAndRecovery(t *testing.T) {
	s := NewServer(pingHandler{}, WithCORS(false))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pong")

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finprompt_http_requests_total")
}

type sampleRequest struct {
	Ticker string `query:"ticker" validate:"required"`
	Window int    `query:"window" default:"30" validate:"gt=0"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?ticker=AAPL", nil), httptest.NewRecorder())
	var ok sampleRequest
	assert.Nil(t, ReadAndValidateRequest(c, &ok))
	assert.Equal(t, 30, ok.Window)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?window=5", nil), httptest.NewRecorder())
	var bad sampleRequest
	errs := ReadAndValidateRequest(c, &bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "ticker", errs[0].Field)
}

type pipelineRequest struct {
	Ticker  string   `query:"ticker" validate:"required,ticker"`
	Tickers []string `json:"tickers" validate:"dive,ticker"`
	Start   string   `query:"start" validate:"omitempty,date"`
	Quarter string   `query:"quarter" validate:"omitempty,quarter"`
}

func TestDomainValidators(t *testing.T) {
	e := echo.New()
	check := func(target string) []ValidationError {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		var req pipelineRequest
		return ReadAndValidateRequest(c, &req)
	}

	assert.Nil(t, check("/?ticker=brk.b&start=2024-01-31&quarter=q3"))

	errs := check("/?ticker=AAPL%20US&start=2024-13-01&quarter=Q5")
	require.Len(t, errs, 3)
	codes := map[string]string{}
	for _, ve := range errs {
		codes[ve.Field] = ve.Code
	}
	assert.Equal(t, map[string]string{"ticker": "ERR_TICKER", "start": "ERR_DATE", "quarter": "ERR_QUARTER"}, codes)
	assert.Equal(t, "Q5", errs[2].Params["value"])
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "v1", r.Header.Get("X-Api-Version"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["ticker"]})
	}))
	defer srv.Close()

	c := NewClient(WithBearerToken("sk-1"), WithHeader("X-Api-Version", "v1"))
	var out map[string]string
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"ticker": "AAPL"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out["echo"])
}

func TestClientStatusError(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		http.Error(w, "slow down", int(status.Load()))
	}))
	defer srv.Close()

	c := NewClient(WithBearerToken(""))
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Body, "slow down")
	assert.True(t, se.Retryable())

	status.Store(http.StatusUnauthorized)
	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Retryable())
}
