package plan

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrPlanNotFound    = apperr.New(apperr.ErrValidation, "unknown_plan", "unknown plan id")
	ErrInvalidTier     = apperr.New(apperr.ErrValidation, "invalid_tier", "invalid tier")
	ErrInvalidFeature  = apperr.New(apperr.ErrValidation, "invalid_feature", "invalid feature flag")
	ErrInvalidInterval = apperr.New(apperr.ErrValidation, "invalid_interval", "invalid billing interval")
	ErrInvalidCatalog  = apperr.New(apperr.ErrInvariantViolation, "invalid_catalog", "invalid plan catalog")
)
