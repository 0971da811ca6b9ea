package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var cfg = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute}

func TestBucket_Memory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0), ratelimiter.WithClock(clk.Now))
	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)

	for i := range 3 {
		res, err := b.Allow(ctx, "acc")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := b.Allow(ctx, "acc")
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	// A denied call consumes nothing.
	st, err := b.Status(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Remaining)

	clk.Advance(2 * time.Minute)
	st, err = b.Status(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Remaining)

	clk.Advance(time.Hour)
	st, err = b.Status(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining, "refill is capped at capacity")

	other, err := b.Allow(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, other.Remaining)

	require.NoError(t, b.Reset(ctx, "acc"))
	_, err = b.AllowN(ctx, "acc", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)
}

func TestNewBucket_InvalidConfig(t *testing.T) {
	t.Parallel()
	for _, c := range []ratelimiter.Config{
		{Capacity: 0, RefillRate: 1, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 0, RefillInterval: time.Second},
		{Capacity: 1, RefillRate: 1},
	} {
		_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), c)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)),
		ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	require.NoError(t, err)

	var denied error
	h := ratelimiter.Middleware(b,
		func(r *http.Request) string { return r.Header.Get("X-Account") },
		func(w http.ResponseWriter, _ *http.Request, err error) {
			denied = err
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	call := func(account string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/coupons/redeem", nil)
		req.Header.Set("X-Account", account)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("a").Code)
	rec := call("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.ErrorIs(t, denied, apperr.ErrRateLimited)

	assert.Equal(t, http.StatusOK, call("b").Code)
	assert.Equal(t, http.StatusOK, call("").Code, "empty key is not limited")
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	store := ratelimiter.NewRedisStore(client, "test:ratelimiter:")
	require.NoError(t, store.Reset(ctx, t.Name()))

	b, err := ratelimiter.NewBucket(store, cfg)
	require.NoError(t, err)
	for range 3 {
		res, err := b.Allow(ctx, t.Name())
		require.NoError(t, err)
		assert.True(t, res.Allowed())
	}
	res, err := b.Allow(ctx, t.Name())
	require.NoError(t, err)
	assert.False(t, res.Allowed())
}
