// Package ratelimiter implements a token bucket limiter with in-memory and
// Redis-backed stores.
//
// A Bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each Allow call takes one token; a Result with negative
// Remaining means the call was denied and nothing was consumed.
//
//	limiter, _ := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity: 5, RefillRate: 1, RefillInterval: time.Minute,
//	})
//	r.With(ratelimiter.Middleware(limiter, keyFn, onError)).Post("/coupons/redeem", h)
//
// MemoryStore is process-local. RedisStore shares buckets across replicas
// and evaluates each consume atomically in a Lua script.
package ratelimiter
