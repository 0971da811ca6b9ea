package ratelimiter

import (
	"errors"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

var (
	ErrInvalidConfig     = errors.New("ratelimiter: invalid configuration")
	ErrInvalidTokenCount = errors.New("ratelimiter: invalid token count")
	ErrStoreUnavailable  = apperr.New(apperr.ErrUpstreamUnavailable, "rate_limit_store_unavailable", "rate limit store unavailable")
	ErrLimitExceeded     = apperr.New(apperr.ErrRateLimited, "rate_limited", "too many requests")
)
