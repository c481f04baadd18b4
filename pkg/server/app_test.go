package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinPrompt/pkg/config"
)

type fakeIntake struct {
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeIntake) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeIntake) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func TestWorkRequiresIntake(t *testing.T) {
	app := New(config.Default(), nil, &Pipeline{}, nil, nil)

	err := app.Work(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue.backend")
}

func TestWorkStartsAndStopsIntake(t *testing.T) {
	in := &fakeIntake{}
	app := New(config.Default(), nil, &Pipeline{}, nil, in)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Work(ctx))
	assert.True(t, in.started)
	assert.True(t, in.stopped)
}

func TestWorkStartError(t *testing.T) {
	in := &fakeIntake{startErr: errors.New("redis ping: refused")}
	app := New(config.Default(), nil, &Pipeline{}, nil, in)

	require.ErrorIs(t, app.Work(context.Background()), in.startErr)
	assert.False(t, in.stopped)
}

func TestAppDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.MinCount = 7
	cfg.Metrics.Enabled = false

	app := New(cfg, nil, &Pipeline{}, nil, nil)
	assert.NotNil(t, app.Logger())
	assert.Equal(t, 7, app.MinCount())
	assert.Empty(t, app.metricsPath())
	assert.NoError(t, app.Close())
}
