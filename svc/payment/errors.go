package payment

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrNotConfigured    = apperr.New(apperr.ErrNotConfigured, "payment_not_configured", "payment gateway is not configured")
	ErrOrderNotFound    = apperr.New(apperr.ErrNotFound, "order_not_found", "order not found")
	ErrEventNotFound    = apperr.New(apperr.ErrNotFound, "payment_event_not_found", "payment event not found")
	ErrMissingReference = apperr.New(apperr.ErrValidation, "missing_external_reference", "callback carries no external reference")
	ErrInvalidCallback  = apperr.New(apperr.ErrValidation, "invalid_callback", "malformed payment callback")
	ErrInvalidToken     = apperr.New(apperr.ErrUnauthorized, "invalid_callback_token", "callback token mismatch")
	ErrIgnoredEvent     = apperr.New(apperr.ErrValidation, "ignored_event", "gateway event type is not handled")
	ErrGateway          = apperr.New(apperr.ErrUpstreamUnavailable, "gateway_unavailable", "payment gateway request failed")
	ErrNotPurchasable   = apperr.New(apperr.ErrValidation, "plan_not_purchasable", "plan cannot be purchased")
	ErrUnknownProvider  = apperr.New(apperr.ErrValidation, "unknown_payment_provider", "unknown payment provider")
)
