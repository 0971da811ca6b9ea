package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/redis"
)

func TestConnect_Disabled(t *testing.T) {
	t.Parallel()

	cfg := redis.Config{}
	assert.False(t, cfg.Enabled())

	_, err := redis.Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, redis.ErrNotConfigured)
}

func TestConnect_BadURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "mysql://nope",
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrInvalidURL)
}

func TestConnect_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrNotReady)
	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
}
