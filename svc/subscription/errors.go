package subscription

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrNotFound              = apperr.New(apperr.ErrNotFound, "subscription_not_found", "subscription not found")
	ErrMultipleSubscriptions = apperr.New(apperr.ErrInvariantViolation, "multiple_subscriptions", "more than one authoritative subscription for account")
	ErrUnknownPlan           = apperr.New(apperr.ErrInvariantViolation, "subscription_unknown_plan", "subscription references a plan missing from the catalog")
	ErrFreePlanPurchase      = apperr.New(apperr.ErrValidation, "free_plan_not_purchasable", "the free plan cannot be assigned as a paid plan")
	ErrDowngradeNotAllowed   = apperr.New(apperr.ErrValidation, "downgrade_not_allowed", "plan change would remove entitlements the account holds")
	ErrTrialOnPaidPlan       = apperr.New(apperr.ErrConflict, "trial_not_available", "trials are not available while a paid plan is held")
	ErrNothingToCancel       = apperr.New(apperr.ErrConflict, "nothing_to_cancel", "account has no paid subscription to cancel")
	ErrInvalidTransition     = apperr.New(apperr.ErrConflict, "invalid_transition", "subscription is not in a state that allows this change")
	ErrInvalidBonus          = apperr.New(apperr.ErrValidation, "invalid_bonus", "bonus grants must be non-negative")
)
