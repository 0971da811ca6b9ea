package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var out *account.Account
	err := s.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		a.Categories = slices.Clone(a.Categories)
		out = &a
		return nil
	})
	return out, err
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	return s.do(ctx, func(st *state) error {
		if _, ok := st.accounts[a.ID]; ok {
			return account.ErrAlreadyExists
		}
		for _, other := range st.accounts {
			if strings.EqualFold(other.Email, a.Email) {
				return account.ErrAlreadyExists
			}
		}
		c := *a
		c.Categories = slices.Clone(a.Categories)
		st.accounts[a.ID] = c
		return nil
	})
}

func (s *Store) SetCategories(ctx context.Context, id uuid.UUID, categories []string, primary string) error {
	return s.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return account.ErrNotFound
		}
		a.Categories = slices.Clone(categories)
		a.PrimaryCategory = primary
		st.accounts[id] = a
		return nil
	})
}

// MirrorPlan is a no-op for accounts that have no profile yet.
func (s *Store) MirrorPlan(ctx context.Context, id uuid.UUID, planID string, tier plan.Tier) error {
	return s.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return nil
		}
		a.PlanID, a.Tier = planID, tier
		st.accounts[id] = a
		return nil
	})
}
