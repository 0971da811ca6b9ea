package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/entitlekit/svc/payment"
)

func (s *Store) CreateOrder(ctx context.Context, o *payment.Order) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO orders (id, account_id, plan_id, coupon_code, discount_percent, provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		o.ID, o.AccountID, o.PlanID, o.CouponCode, o.DiscountPercent, o.Provider, o.CreatedAt,
	)
	return err
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*payment.Order, error) {
	var o payment.Order
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, account_id, plan_id, coupon_code, discount_percent, provider, created_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.AccountID, &o.PlanID, &o.CouponCode, &o.DiscountPercent, &o.Provider, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) FindEvent(ctx context.Context, externalRef string) (*payment.Event, error) {
	var (
		e                  payment.Event
		orderID, accountID *uuid.UUID
		outcome, state     string
	)
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, external_ref, provider, order_id, account_id, plan_id, outcome, state, raw_status, created_at, updated_at
		FROM payment_events WHERE external_ref = $1`, externalRef,
	).Scan(&e.ID, &e.ExternalRef, &e.Provider, &orderID, &accountID, &e.PlanID, &outcome, &state, &e.RawStatus, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, payment.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	e.OrderID, e.AccountID = fromNullUUID(orderID), fromNullUUID(accountID)
	e.Outcome, e.State = payment.Outcome(outcome), payment.State(state)
	return &e, nil
}

func (s *Store) InsertEvent(ctx context.Context, e *payment.Event) (bool, error) {
	ct, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO payment_events (id, external_ref, provider, order_id, account_id, plan_id, outcome, state, raw_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_ref) DO NOTHING`,
		e.ID, e.ExternalRef, e.Provider, nullUUID(e.OrderID), nullUUID(e.AccountID), e.PlanID,
		string(e.Outcome), string(e.State), e.RawStatus, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// PromoteEvent only overwrites rows that are not yet a success, so two
// concurrent successes for one reference cannot both win.
func (s *Store) PromoteEvent(ctx context.Context, e *payment.Event) (bool, error) {
	ct, err := s.conn(ctx).Exec(ctx, `
		UPDATE payment_events SET
			provider = $2, order_id = $3, account_id = $4, plan_id = $5,
			outcome = $6, state = $7, raw_status = $8, updated_at = $9
		WHERE external_ref = $1 AND outcome <> 'success'`,
		e.ExternalRef, e.Provider, nullUUID(e.OrderID), nullUUID(e.AccountID), e.PlanID,
		string(e.Outcome), string(e.State), e.RawStatus, e.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) SetEventState(ctx context.Context, externalRef string, state payment.State) error {
	ct, err := s.conn(ctx).Exec(ctx, `
		UPDATE payment_events SET state = $2, updated_at = NOW() WHERE external_ref = $1`,
		externalRef, string(state))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return payment.ErrEventNotFound
	}
	return nil
}
