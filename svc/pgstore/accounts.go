package pgstore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/entitlekit/pkg/pg"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var (
		a          account.Account
		role, tier string
	)
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, email, locale, role, categories, primary_category, plan_id, tier, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Locale, &role, &a.Categories, &a.PrimaryCategory, &a.PlanID, &tier, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Role, a.Tier = account.Role(role), plan.Tier(tier)
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	categories := a.Categories
	if categories == nil {
		categories = []string{}
	}
	_, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO accounts (id, email, locale, role, categories, primary_category, plan_id, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.Email, a.Locale, string(a.Role), categories, a.PrimaryCategory, a.PlanID, string(a.Tier), a.CreatedAt, a.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return account.ErrAlreadyExists
	}
	return err
}

func (s *Store) SetCategories(ctx context.Context, id uuid.UUID, categories []string, primary string) error {
	if categories == nil {
		categories = []string{}
	}
	ct, err := s.conn(ctx).Exec(ctx, `
		UPDATE accounts SET categories = $2, primary_category = $3, updated_at = NOW()
		WHERE id = $1`, id, categories, primary)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	return nil
}

// MirrorPlan is a no-op for accounts that have no profile yet.
func (s *Store) MirrorPlan(ctx context.Context, id uuid.UUID, planID string, tier plan.Tier) error {
	_, err := s.conn(ctx).Exec(ctx, `
		UPDATE accounts SET plan_id = $2, tier = $3, updated_at = NOW()
		WHERE id = $1`, id, planID, string(tier))
	return err
}
