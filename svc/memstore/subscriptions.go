package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

func (s *Store) FindSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	var out *subscription.Subscription
	err := s.do(ctx, func(st *state) error {
		var err error
		out, err = st.subscription(accountID)
		return err
	})
	return out, err
}

// LockSubscription equals FindSubscription: the transaction already holds
// the store lock.
func (s *Store) LockSubscription(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error) {
	return s.FindSubscription(ctx, accountID)
}

func (s *Store) SaveSubscription(ctx context.Context, sub *subscription.Subscription) error {
	return s.do(ctx, func(st *state) error {
		for i := range st.subs {
			if st.subs[i].ID == sub.ID {
				st.subs[i] = *sub
				return nil
			}
		}
		st.subs = append(st.subs, *sub)
		return nil
	})
}

func (s *Store) ListExpiryCandidates(ctx context.Context, q subscription.ExpiryQuery) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.do(ctx, func(st *state) error {
		var due []subscription.Subscription
		for _, sub := range st.subs {
			if sub.PlanID == q.FreePlanID {
				continue
			}
			ended := !sub.PeriodEnd.After(q.Now)
			switch {
			case sub.Status == subscription.StatusActive && !sub.AutoRenew,
				sub.Status == subscription.StatusCanceled && ended,
				sub.Status == subscription.StatusPaused && ended,
				sub.Status == subscription.StatusActive && sub.AutoRenew && !sub.PeriodEnd.After(q.RenewalCutoff):
				due = append(due, sub)
			}
		}
		slices.SortFunc(due, func(a, b subscription.Subscription) int {
			return a.PeriodEnd.Compare(b.PeriodEnd)
		})
		for _, sub := range due {
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
			if !slices.Contains(out, sub.AccountID) {
				out = append(out, sub.AccountID)
			}
		}
		return nil
	})
	return out, err
}

// SeedSubscription appends sub without any uniqueness check.
func (s *Store) SeedSubscription(sub subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.subs = append(s.data.subs, sub)
}

func (st *state) subscription(accountID uuid.UUID) (*subscription.Subscription, error) {
	var found []subscription.Subscription
	for _, sub := range st.subs {
		if sub.AccountID == accountID {
			found = append(found, sub)
		}
	}
	switch len(found) {
	case 0:
		return nil, subscription.ErrNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, subscription.ErrMultipleSubscriptions
	}
}
