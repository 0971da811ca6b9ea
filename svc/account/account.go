// Package account owns the account profile: contact details, role, the
// selected operating categories and the mirrored plan.
//
// The mirrored plan is a cache of the subscription row. It is written only
// by subscription.Service through MirrorPlan inside the subscription's own
// transaction and is never consulted for entitlement decisions.
package account

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

const maxCategoryLength = 64

// Account is the user profile.
type Account struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Locale     string    `json:"locale"`
	Role       Role      `json:"role"`
	Categories []string  `json:"categories"`
	// PrimaryCategory is the only category honored under the free tier.
	PrimaryCategory string    `json:"primary_category,omitempty"`
	PlanID          string    `json:"plan_id"`
	Tier            plan.Tier `json:"tier"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EffectiveCategories returns the categories in force for tier.
func (a *Account) EffectiveCategories(tier plan.Tier) []string {
	if tier == plan.TierFree {
		if a.PrimaryCategory == "" {
			return nil
		}
		return []string{a.PrimaryCategory}
	}
	return slices.Clone(a.Categories)
}

// normalizeCategories trims, lowercases and dedupes while keeping order.
func normalizeCategories(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		switch {
		case c == "":
			return nil, ErrInvalidCategory
		case len(c) > maxCategoryLength:
			return nil, ErrInvalidCategory
		case slices.Contains(out, c):
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
