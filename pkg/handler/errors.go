package handler

import (
	"errors"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

var (
	ErrNilResponse = errors.New("handler returned nil response")
	ErrEmptyBody   = apperr.New(apperr.ErrValidation, "empty_body", "request body is empty")
	ErrInvalidJSON = apperr.New(apperr.ErrValidation, "invalid_json", "request body is not valid JSON")
	ErrBodyTooBig  = apperr.New(apperr.ErrValidation, "body_too_large", "request body is too large")
)
