package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

// Store persists subscriptions. Implementations take the transaction from ctx.
type Store interface {
	// FindSubscription returns ErrNotFound when the account has no row and
	// ErrMultipleSubscriptions when it has more than one.
	FindSubscription(ctx context.Context, accountID uuid.UUID) (*Subscription, error)
	// LockSubscription is FindSubscription with a row lock held until the
	// transaction ends. The lock is taken even when no row exists yet, so
	// concurrent first assignments serialize.
	LockSubscription(ctx context.Context, accountID uuid.UUID) (*Subscription, error)
	// SaveSubscription inserts or updates s by ID.
	SaveSubscription(ctx context.Context, s *Subscription) error
	// ListExpiryCandidates returns accounts whose row may be due for expiry.
	ListExpiryCandidates(ctx context.Context, q ExpiryQuery) ([]uuid.UUID, error)
}

// ExpiryQuery selects rows not on FreePlanID that are either active and
// non-renewing, canceled or paused with period_end <= Now, or renewing with
// period_end <= RenewalCutoff. Oldest period_end first, at most Limit.
type ExpiryQuery struct {
	Now           time.Time
	RenewalCutoff time.Time
	FreePlanID    string
	Limit         int
}

// ProfileMirror keeps the account profile's cached plan in step with the
// subscription. It is called inside the same transaction as the write.
type ProfileMirror interface {
	MirrorPlan(ctx context.Context, accountID uuid.UUID, planID string, tier plan.Tier) error
}
