package coupon

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	// CreateCoupon returns ErrCodeTaken for an existing code.
	CreateCoupon(ctx context.Context, c *Coupon) error
	// GetCoupon and LockCoupon return ErrNotFound for an unknown code.
	GetCoupon(ctx context.Context, code string) (*Coupon, error)
	// LockCoupon holds a row lock until the transaction ends.
	LockCoupon(ctx context.Context, code string) (*Coupon, error)
	IncrementRedemptions(ctx context.Context, code string) error
	// FindRedemption returns ErrRedemptionNotFound when absent.
	FindRedemption(ctx context.Context, code string, accountID uuid.UUID) (*Redemption, error)
	// InsertRedemption reports false without writing when the pair exists.
	InsertRedemption(ctx context.Context, r *Redemption) (inserted bool, err error)
}
