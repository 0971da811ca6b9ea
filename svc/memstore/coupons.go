package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/coupon"
)

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	return s.do(ctx, func(st *state) error {
		if _, ok := st.coupons[c.Code]; ok {
			return coupon.ErrCodeTaken
		}
		st.coupons[c.Code] = *c
		return nil
	})
}

func (s *Store) GetCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	var out *coupon.Coupon
	err := s.do(ctx, func(st *state) error {
		c, ok := st.coupons[code]
		if !ok {
			return coupon.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (s *Store) LockCoupon(ctx context.Context, code string) (*coupon.Coupon, error) {
	return s.GetCoupon(ctx, code)
}

func (s *Store) IncrementRedemptions(ctx context.Context, code string) error {
	return s.do(ctx, func(st *state) error {
		c, ok := st.coupons[code]
		if !ok {
			return coupon.ErrNotFound
		}
		c.Redemptions++
		st.coupons[code] = c
		return nil
	})
}

func (s *Store) FindRedemption(ctx context.Context, code string, accountID uuid.UUID) (*coupon.Redemption, error) {
	var out *coupon.Redemption
	err := s.do(ctx, func(st *state) error {
		for _, r := range st.redemptions {
			if r.Code == code && r.AccountID == accountID {
				out = &r
				return nil
			}
		}
		return coupon.ErrRedemptionNotFound
	})
	return out, err
}

func (s *Store) InsertRedemption(ctx context.Context, r *coupon.Redemption) (bool, error) {
	var inserted bool
	err := s.do(ctx, func(st *state) error {
		for _, existing := range st.redemptions {
			if existing.Code == r.Code && existing.AccountID == r.AccountID {
				return nil
			}
		}
		st.redemptions = append(st.redemptions, *r)
		inserted = true
		return nil
	})
	return inserted, err
}

// Redemptions counts stored redemptions of code by accountID.
func (s *Store) Redemptions(code string, accountID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.data.redemptions {
		if r.Code == code && r.AccountID == accountID {
			n++
		}
	}
	return n
}
