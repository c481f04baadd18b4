package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()

	_, err := mc.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, mc.Set(ctx, "k", "###!PRICE!### 1", time.Minute))
	v, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "###!PRICE!### 1", v)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, err = mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	_, err := mc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	v, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, mc.Len())
}

func TestLayeredCacheFillsMemory(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	require.NoError(t, remote.Set(ctx, "k", "remote", 0))

	lc := NewLayeredCache(remote, 10)
	v, err := lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", v)

	require.NoError(t, remote.Delete(ctx, "k"))
	v, err = lc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "remote", v)
}

func TestHashKeyStable(t *testing.T) {
	a := HashKey("openai", "deepseek-chat", "0.1", "sys", "user")
	b := HashKey("openai", "deepseek-chat", "0.1", "sys", "user")
	c := HashKey("openai", "deepseek-chat", "0.1", "sysuser", "")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestRedisOptions(t *testing.T) {
	cfg := &RedisConfig{}
	for _, opt := range []RedisOption{
		WithRedisAddr("cache:6379"),
		WithRedisPassword("secret"),
		WithRedisDB(3),
		WithRedisPool(20, 4, time.Second),
		WithRedisPrefix("fp"),
	} {
		opt(cfg)
	}
	assert.Equal(t, RedisConfig{
		Addr:         "cache:6379",
		Password:     "secret",
		DB:           3,
		PoolSize:     20,
		PoolTimeout:  time.Second,
		MinIdleConns: 4,
		Prefix:       "fp",
	}, *cfg)
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	_, err := NewRedisCache(WithRedisAddr("127.0.0.1:1"), WithRedisPool(1, 0, 100*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}
