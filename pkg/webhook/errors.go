package webhook

import (
	"errors"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

var (
	ErrInvalidURL       = apperr.New(apperr.ErrValidation, "invalid_webhook_url", "invalid webhook URL")
	ErrInvalidPayload   = apperr.New(apperr.ErrValidation, "invalid_webhook_payload", "invalid webhook payload")
	ErrMissingSecret    = apperr.New(apperr.ErrNotConfigured, "webhook_secret_missing", "webhook secret is not configured")
	ErrInvalidSignature = apperr.New(apperr.ErrUnauthorized, "invalid_signature", "invalid webhook signature")
	ErrCircuitOpen      = apperr.New(apperr.ErrUpstreamUnavailable, "circuit_open", "webhook circuit breaker is open")
	ErrDeliveryFailed   = apperr.New(apperr.ErrUpstreamUnavailable, "webhook_delivery_failed", "webhook delivery failed")
	ErrPermanentFailure = apperr.New(apperr.ErrUpstreamUnavailable, "webhook_rejected", "webhook rejected by receiver")
	ErrDecodeResponse   = apperr.New(apperr.ErrUpstreamUnavailable, "webhook_bad_response", "failed to decode webhook response")
)

// IsCircuitOpen reports whether err was caused by an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
