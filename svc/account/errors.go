package account

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrNotFound        = apperr.New(apperr.ErrNotFound, "account_not_found", "account not found")
	ErrAlreadyExists   = apperr.New(apperr.ErrConflict, "account_exists", "account already exists")
	ErrInvalidEmail    = apperr.New(apperr.ErrValidation, "invalid_email", "invalid email address")
	ErrInvalidRole     = apperr.New(apperr.ErrValidation, "invalid_role", "unknown role")
	ErrInvalidCategory = apperr.New(apperr.ErrValidation, "invalid_category", "category names must be non-empty and at most 64 characters")
	ErrProfileNotReady = apperr.New(apperr.ErrUpstreamUnavailable, "profile_not_ready", "account profile is not available yet")
)
