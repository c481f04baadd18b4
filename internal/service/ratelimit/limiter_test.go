package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPerKey(t *testing.T) {
	l := New(0.001, 1)

	assert.True(t, l.Allow("openai"))
	assert.False(t, l.Allow("openai"))
	assert.True(t, l.Allow("claude"))
	assert.True(t, l.Enabled())
}

func TestDisabledNeverBlocks(t *testing.T) {
	l := New(0, 1)
	assert.False(t, l.Enabled())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("openai"))
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.NoError(t, l.Wait(ctx, "openai"))
	assert.Error(t, l.Wait(ctx, "openai"))
}
