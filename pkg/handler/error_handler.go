package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
)

// StatusOf maps an error to an HTTP status by its apperr kind.
func StatusOf(err error) int {
	var verr apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, apperr.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// detailer is implemented by errors carrying machine-readable details.
type detailer interface {
	Details() map[string]any
}

// DetailOf builds the envelope error member for err. Internal errors never
// leak their message.
func DetailOf(err error) *ErrorDetail {
	status := StatusOf(err)
	detail := &ErrorDetail{Code: apperr.CodeOf(err), Message: err.Error()}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusBadGateway {
		detail.Message = http.StatusText(status)
	}

	var verr apperr.ValidationError
	if errors.As(err, &verr) && len(verr) > 0 {
		detail.Details = make(map[string]any, len(verr))
		for field, msgs := range verr {
			detail.Details[field] = msgs
		}
	}
	var d detailer
	if errors.As(err, &d) {
		detail.Details = d.Details()
	}
	return detail
}

// NewErrorHandler logs err and renders it as a JSON envelope.
// Client errors log at warn, server errors at error.
func NewErrorHandler(log *slog.Logger) ErrorHandler {
	if log == nil {
		log = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := StatusOf(err)
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request error",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("http"),
		)

		resp := jsonResponse{status: status, body: Envelope{Error: DetailOf(err)}}
		if renderErr := resp.Render(w, r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}

// RequestIDExtractor adds the chi request id to every log record.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
