package email

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrInvalidConfig = apperr.New(apperr.ErrNotConfigured, "email_invalid_config", "invalid email configuration")
	ErrInvalidParams = apperr.New(apperr.ErrValidation, "email_invalid_params", "invalid email parameters")
	ErrFailedToSend  = apperr.New(apperr.ErrUpstreamUnavailable, "email_send_failed", "failed to send email")
)
