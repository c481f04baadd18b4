package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinPrompt/internal/domain/apperr"
)

type memQueue struct {
	ids      []string
	payloads [][]byte
	err      error
}

func (q *memQueue) Enqueue(_ context.Context, id string, payload []byte) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestSubmitJob(t *testing.T) {
	q := &memQueue{}
	id, err := SubmitJob(context.Background(), q, Job{
		Kind:    JobForecast,
		Tickers: []string{" aapl", "AAPL", "msft"},
		Start:   "2024-01-01",
		End:     "2024-03-31",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, []string{id}, q.ids)

	var job Job
	require.NoError(t, json.Unmarshal(q.payloads[0], &job))
	assert.Equal(t, id, job.ID)
	assert.Equal(t, []string{"AAPL", "MSFT"}, job.Tickers)
}

func TestSubmitJobKeepsID(t *testing.T) {
	q := &memQueue{}
	id, err := SubmitJob(context.Background(), q, Job{ID: "run-7", Kind: JobEarnings, Year: 2024, Quarter: "q3"})
	require.NoError(t, err)
	assert.Equal(t, "run-7", id)
}

func TestSubmitJobRejectsInvalid(t *testing.T) {
	cases := map[string]Job{
		"unknown kind":   {Kind: "backtest"},
		"no tickers":     {Kind: JobSentiment, Start: "2024-01-01", End: "2024-01-31"},
		"reversed range": {Kind: JobEstimate, Tickers: []string{"AAPL"}, Start: "2024-02-01", End: "2024-01-01"},
		"bad date":       {Kind: JobForecast, Tickers: []string{"AAPL"}, Start: "soon", End: "2024-01-01"},
		"bad ticker":     {Kind: JobForecast, Tickers: []string{"AAPL", "A$B; DROP"}, Start: "2024-01-01", End: "2024-01-31"},
		"no year":        {Kind: JobEarnings, Quarter: "Q1"},
		"bad quarter":    {Kind: JobEarnings, Year: 2024, Quarter: "Q5"},
	}
	for name, job := range cases {
		t.Run(name, func(t *testing.T) {
			q := &memQueue{}
			_, err := SubmitJob(context.Background(), q, job)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidParameter, apperr.KindOf(err))
			assert.Empty(t, q.ids)
		})
	}
}

func TestSubmitJobQueueError(t *testing.T) {
	q := &memQueue{err: errors.New("broker down")}
	_, err := SubmitJob(context.Background(), q, Job{Kind: JobEarnings, Year: 2024, Quarter: "Q1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
