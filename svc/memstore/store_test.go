package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/memstore"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

func TestWithinTxRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()
	id := uuid.New()
	boom := errors.New("boom")

	committed := false
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.CreateAccount(ctx, &account.Account{ID: id, Email: "a@example.com", Categories: []string{"x"}}))
		_, err := s.AppendUsage(ctx, usage.Event{AccountID: id, Kind: usage.KindOperation, Quantity: 1, ArtifactID: "a"})
		require.NoError(t, err)
		txn.AfterCommit(ctx, func(context.Context) { committed = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, committed)

	_, err = s.GetAccount(ctx, id)
	require.ErrorIs(t, err, account.ErrNotFound)
	assert.Zero(t, s.UsageEvents(id))
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()
	id := uuid.New()

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context) error {
			_ = s.CreateAccount(ctx, &account.Account{ID: id, Email: "p@example.com"})
			panic("kaboom")
		})
	})

	_, err := s.GetAccount(ctx, id)
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestWithinTxCommitsAndNests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()
	id := uuid.New()

	var hooks []string
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		txn.AfterCommit(ctx, func(context.Context) { hooks = append(hooks, "outer") })
		return s.WithinTx(ctx, func(ctx context.Context) error {
			txn.AfterCommit(ctx, func(context.Context) { hooks = append(hooks, "inner") })
			return s.CreateAccount(ctx, &account.Account{ID: id, Email: "n@example.com"})
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, hooks)

	a, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "n@example.com", a.Email)
}

func TestSubscriptionLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memstore.New()
	id := uuid.New()

	_, err := s.FindSubscription(ctx, id)
	require.ErrorIs(t, err, subscription.ErrNotFound)

	sub := &subscription.Subscription{ID: uuid.New(), AccountID: id, PlanID: "basic_monthly", Status: subscription.StatusActive}
	require.NoError(t, s.SaveSubscription(ctx, sub))
	sub.PlanID = "pro_monthly"
	require.NoError(t, s.SaveSubscription(ctx, sub))

	got, err := s.FindSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pro_monthly", got.PlanID)

	s.SeedSubscription(subscription.Subscription{ID: uuid.New(), AccountID: id, PlanID: "free"})
	_, err = s.FindSubscription(ctx, id)
	require.ErrorIs(t, err, subscription.ErrMultipleSubscriptions)
}
