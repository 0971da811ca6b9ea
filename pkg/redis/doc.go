// Package redis connects github.com/redis/go-redis/v9 clients.
//
// Redis is optional for the entitlement service: it backs cross-instance
// subscription-changed fan-out and the shared rate limiter store. Enabled
// reports whether a URL is configured; callers fall back to the in-memory
// implementations otherwise.
package redis
