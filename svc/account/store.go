package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

// Store persists accounts. It also serves as the subscription profile mirror.
type Store interface {
	// GetAccount returns ErrNotFound when the row does not exist.
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	// CreateAccount returns ErrAlreadyExists for a taken id or email.
	CreateAccount(ctx context.Context, a *Account) error
	SetCategories(ctx context.Context, id uuid.UUID, categories []string, primary string) error
	MirrorPlan(ctx context.Context, id uuid.UUID, planID string, tier plan.Tier) error
}
