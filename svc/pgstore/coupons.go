package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/entitlekit/pkg/pg"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

const couponColumns = `code, kind, discount_percent, bonus_operations, bonus_categories, trial_tier, trial_days,
	max_redemptions, redemptions, expires_at, active, created_at`

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.Code, string(c.Kind), c.DiscountPercent, c.BonusOperations, c.BonusCategories, string(c.TrialTier), c.TrialDays,
		c.MaxRedemptions, c.Redemptions, c.ExpiresAt, c.Active, c.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return coupon.ErrCodeTaken
	}
	return err
}

func (s *Store) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return s.getCoupon(ctx, code, "")
}

func (s *Store) LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return s.getCoupon(ctx, code, " FOR UPDATE")
}

func (s *Store) getCoupon(ctx context.Context, code, suffix string) (*coupon.Coupon, error) {
	var (
		c          coupon.Coupon
		kind, tier string
	)
	err := s.conn(ctx).QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`+suffix, code).Scan(
		&c.Code, &kind, &c.DiscountPercent, &c.BonusOperations, &c.BonusCategories, &tier, &c.TrialDays,
		&c.MaxRedemptions, &c.Redemptions, &c.ExpiresAt, &c.Active, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Kind, c.TrialTier = coupon.Kind(kind), plan.Tier(tier)
	return &c, nil
}

func (s *Store) IncrementRedemptions(ctx context.Context, code string) error {
	ct, err := s.conn(ctx).Exec(ctx, `UPDATE coupons SET redemptions = redemptions + 1 WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (s *Store) FindRedemption(ctx context.Context, code string, accountID uuid.UUID) (*coupon.Redemption, error) {
	var r coupon.Redemption
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, code, account_id, redeemed_at FROM coupon_redemptions
		WHERE code = $1 AND account_id = $2`, code, accountID,
	).Scan(&r.ID, &r.Code, &r.AccountID, &r.RedeemedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, coupon.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) InsertRedemption(ctx context.Context, r *coupon.Redemption) (bool, error) {
	ct, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO coupon_redemptions (id, code, account_id, redeemed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code, account_id) DO NOTHING`,
		r.ID, r.Code, r.AccountID, r.RedeemedAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
