package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, "test-salt"), mr
}

func TestLimiter_Allow(t *testing.T) {
	limiter, mr := setupLimiter(t)
	ctx := context.Background()
	cfg := LimitConfig{Rate: 2, Window: time.Minute}

	d, err := limiter.Allow(ctx, "redeem", "10.0.0.1", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = limiter.Allow(ctx, "redeem", "10.0.0.1", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = limiter.Allow(ctx, "redeem", "10.0.0.1", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	d, err = limiter.Allow(ctx, "redeem", "10.0.0.2", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other addresses have their own window")

	mr.FastForward(time.Minute + time.Second)

	d, err = limiter.Allow(ctx, "redeem", "10.0.0.1", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "window resets")
}

func TestLimiter_KeysAreHashed(t *testing.T) {
	limiter, mr := setupLimiter(t)

	_, err := limiter.Allow(context.Background(), "redeem", "192.168.1.5", LimitConfig{Rate: 5, Window: time.Minute})
	require.NoError(t, err)

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "192.168.1.5")
	}
	assert.True(t, mr.Exists("rl:redeem:"+limiter.HashIP("192.168.1.5")))
}

func TestLimiter_RedisDown(t *testing.T) {
	limiter, mr := setupLimiter(t)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "redeem", "10.0.0.1", LimitConfig{Rate: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}
