package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

const subscriptionColumns = `id, account_id, plan_id, status, period_start, period_end, auto_renew,
	canceled_at, paused_at, bonus_operations, bonus_categories, provider_ref, assigned_at, created_at, updated_at`

func (s *Store) FindSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	return s.findSubscription(ctx, accountID, "")
}

func (s *Store) LockSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	// Serializes writers for accounts that have no row to lock yet.
	if _, err := s.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, accountID.String()); err != nil {
		return nil, fmt.Errorf("lock subscription: %w", err)
	}
	return s.findSubscription(ctx, accountID, " FOR UPDATE")
}

func (s *Store) findSubscription(ctx context.Context, accountID uuid.UUID, suffix string) (*subscription.Subscription, error) {
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE account_id = $1`+suffix, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, subscription.ErrNotFound
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: account %s has %d rows", subscription.ErrMultipleSubscriptions, accountID, len(found))
	}
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var (
		sub    subscription.Subscription
		status string
	)
	err := row.Scan(&sub.ID, &sub.AccountID, &sub.PlanID, &status, &sub.PeriodStart, &sub.PeriodEnd, &sub.AutoRenew,
		&sub.CanceledAt, &sub.PausedAt, &sub.BonusOperations, &sub.BonusCategories, &sub.ProviderRef, &sub.AssignedAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = subscription.Status(status)
	return &sub, nil
}

func (s *Store) SaveSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			period_start = EXCLUDED.period_start,
			period_end = EXCLUDED.period_end,
			auto_renew = EXCLUDED.auto_renew,
			canceled_at = EXCLUDED.canceled_at,
			paused_at = EXCLUDED.paused_at,
			bonus_operations = EXCLUDED.bonus_operations,
			bonus_categories = EXCLUDED.bonus_categories,
			provider_ref = EXCLUDED.provider_ref,
			assigned_at = EXCLUDED.assigned_at,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.AccountID, sub.PlanID, string(sub.Status), sub.PeriodStart, sub.PeriodEnd, sub.AutoRenew,
		sub.CanceledAt, sub.PausedAt, sub.BonusOperations, sub.BonusCategories, sub.ProviderRef, sub.AssignedAt,
		sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (s *Store) ListExpiryCandidates(ctx context.Context, q subscription.ExpiryQuery) ([]uuid.UUID, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT account_id FROM subscriptions
		WHERE plan_id <> $1
			AND (
				(status = 'active' AND NOT auto_renew)
				OR (status IN ('canceled', 'paused') AND period_end <= $2)
				OR (status = 'active' AND auto_renew AND period_end <= $3)
			)
		ORDER BY period_end
		LIMIT $4`, q.FreePlanID, q.Now, q.RenewalCutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
