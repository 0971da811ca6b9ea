package jwt

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrMissingToken      = apperr.New(apperr.ErrUnauthorized, "missing_token", "missing bearer token")
	ErrInvalidToken      = apperr.New(apperr.ErrUnauthorized, "invalid_token", "invalid bearer token")
	ErrExpiredToken      = apperr.New(apperr.ErrUnauthorized, "expired_token", "bearer token is expired")
	ErrInvalidSubject    = apperr.New(apperr.ErrUnauthorized, "invalid_subject", "token subject is not an account id")
	ErrMissingSigningKey = apperr.New(apperr.ErrNotConfigured, "jwt_not_configured", "jwt signing key is not configured")
)
