package coupon

import "github.com/dmitrymomot/entitlekit/pkg/apperr"

var (
	ErrNotFound           = apperr.New(apperr.ErrNotFound, "coupon_not_found", "coupon not found")
	ErrRedemptionNotFound = apperr.New(apperr.ErrNotFound, "coupon_not_redeemed", "coupon was not redeemed by this account")
	ErrInvalidCoupon      = apperr.New(apperr.ErrValidation, "invalid_coupon", "invalid coupon definition")
	ErrInvalidCode        = apperr.New(apperr.ErrValidation, "invalid_coupon_code", "coupon code is required")
	ErrInactive           = apperr.New(apperr.ErrValidation, "coupon_inactive", "coupon is not active")
	ErrExpired            = apperr.New(apperr.ErrValidation, "coupon_expired", "coupon has expired")
	ErrExhausted          = apperr.New(apperr.ErrValidation, "coupon_exhausted", "coupon reached its redemption limit")
	ErrNotDiscount        = apperr.New(apperr.ErrValidation, "coupon_not_discount", "coupon does not grant a discount")
	ErrCodeTaken          = apperr.New(apperr.ErrConflict, "coupon_exists", "coupon code already exists")
)
