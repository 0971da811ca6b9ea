package ratelimiter

import (
	"fmt"
	"net/http"
	"strconv"
)

// KeyFunc picks the bucket key for a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// Middleware limits requests per key. Denials and store failures go to onError;
// denials are wrapped in ErrLimitExceeded.
func Middleware(b *Bucket, key KeyFunc, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := b.Allow(r.Context(), k)
			if err != nil {
				onError(w, r, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				retryAfter := int(result.RetryAfter().Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				onError(w, r, fmt.Errorf("%w: retry in %ds", ErrLimitExceeded, retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
