package billing

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrCronNotConfigured = apperr.New(apperr.ErrNotConfigured, "cron_not_configured", "cron secret is not configured")
	ErrInvalidCronSecret = apperr.New(apperr.ErrUnauthorized, "invalid_cron_secret", "cron secret mismatch")
	ErrUnknownAction     = apperr.New(apperr.ErrValidation, "unknown_action", "unknown subscription action")
	ErrAdminOnly         = apperr.New(apperr.ErrForbidden, "admin_only", "action requires the admin role")
	ErrInvalidAccountID  = apperr.New(apperr.ErrValidation, "invalid_account_id", "account id is not a valid uuid")
)
