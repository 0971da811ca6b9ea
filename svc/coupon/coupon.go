package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type Kind string

const (
	KindDiscount Kind = "discount"
	KindBonus    Kind = "bonus"
	KindTrial    Kind = "trial"
)

// Coupon is a redeemable code. MaxRedemptions of zero means unlimited.
type Coupon struct {
	Code            string     `json:"code"`
	Kind            Kind       `json:"kind"`
	DiscountPercent int        `json:"discount_percent,omitempty"`
	BonusOperations int64      `json:"bonus_operations,omitempty"`
	BonusCategories int64      `json:"bonus_categories,omitempty"`
	TrialTier       plan.Tier  `json:"trial_tier,omitempty"`
	TrialDays       int        `json:"trial_days,omitempty"`
	MaxRedemptions  int64      `json:"max_redemptions"`
	Redemptions     int64      `json:"redemptions"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Redemption struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	AccountID  uuid.UUID `json:"account_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// NormalizeCode canonicalizes user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the descriptor, not redeemability.
func (c *Coupon) Validate(catalog *plan.Catalog) error {
	switch {
	case c.Code == "" || len(c.Code) > 64:
		return ErrInvalidCoupon
	case c.MaxRedemptions < 0:
		return ErrInvalidCoupon
	case c.BonusOperations < 0 || c.BonusCategories < 0:
		return ErrInvalidCoupon
	}
	switch c.Kind {
	case KindDiscount:
		if c.DiscountPercent <= 0 || c.DiscountPercent > 100 {
			return ErrInvalidCoupon
		}
	case KindBonus:
		if c.BonusOperations == 0 && c.BonusCategories == 0 {
			return ErrInvalidCoupon
		}
	case KindTrial:
		if c.TrialDays <= 0 {
			return ErrInvalidCoupon
		}
		p, err := catalog.ByTier(c.TrialTier)
		if err != nil || p.IsFree() {
			return ErrInvalidCoupon
		}
	default:
		return ErrInvalidCoupon
	}
	return nil
}

// redeemable reports why c cannot be redeemed at now, or nil.
func (c *Coupon) redeemable(now time.Time) error {
	switch {
	case !c.Active:
		return ErrInactive
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return ErrExpired
	case c.MaxRedemptions > 0 && c.Redemptions >= c.MaxRedemptions:
		return ErrExhausted
	}
	return nil
}
