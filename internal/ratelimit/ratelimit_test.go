package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	l := NewLocalRateLimiter(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := l.Allow(ctx, "ws1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, remaining, err := l.Allow(ctx, "ws1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, _ = l.Allow(ctx, "ws2", 5, time.Minute)
	assert.True(t, allowed, "workspaces are limited independently")
	assert.Equal(t, 2, l.Len())
}

func TestLocalRateLimiter_LimitChangeResetsBucket(t *testing.T) {
	l := NewLocalRateLimiter(nil)
	ctx := context.Background()

	allowed, _, _ := l.Allow(ctx, "ws1", 1, time.Minute)
	assert.True(t, allowed)
	allowed, _, _ = l.Allow(ctx, "ws1", 1, time.Minute)
	assert.False(t, allowed)

	allowed, _, _ = l.Allow(ctx, "ws1", 10, time.Minute)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	l := NewRedisRateLimiter(client, nil)
	ctx := context.Background()
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		allowed, remaining, err := l.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}
	allowed, _, err := l.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}
