package redis

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrNotConfigured = apperr.New(apperr.ErrNotConfigured, "redis_not_configured", "redis url is not configured")
	ErrInvalidURL    = apperr.New(apperr.ErrValidation, "redis_invalid_url", "redis url cannot be parsed")
	ErrNotReady      = apperr.New(apperr.ErrUpstreamUnavailable, "redis_not_ready", "redis did not answer before the connect deadline")
	ErrUnhealthy     = apperr.New(apperr.ErrUpstreamUnavailable, "redis_unhealthy", "redis ping failed")
)
