package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/memstore"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/sweeper"
)

type fixture struct {
	mu    sync.Mutex
	now   time.Time
	store *memstore.Store
	subs  *subscription.Service
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	catalog, err := plan.Default()
	require.NoError(t, err)
	f := &fixture{store: memstore.New(), now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	f.subs = subscription.NewService(f.store, f.store, f.store, catalog, subscription.WithClock(f.clock))
	return f
}

func (f *fixture) paid(t *testing.T, a subscription.Assignment) uuid.UUID {
	t.Helper()
	a.AccountID = uuid.New()
	a.Source = "test"
	require.NoError(t, f.store.CreateAccount(context.Background(), &account.Account{
		ID:     a.AccountID,
		Email:  a.AccountID.String() + "@example.com",
		Role:   account.RoleStandard,
		PlanID: "free",
		Tier:   plan.TierFree,
	}))
	_, err := f.subs.AssignPaidPlan(context.Background(), a)
	require.NoError(t, err)
	return a.AccountID
}

func (f *fixture) status(t *testing.T, id uuid.UUID) subscription.Status {
	t.Helper()
	sub, err := f.subs.Current(context.Background(), id)
	require.NoError(t, err)
	return subscription.StatusOf(sub)
}

func TestSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("lapsed cancellation is demoted", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.paid(t, subscription.Assignment{PlanID: "basic_monthly"})
		_, err := f.subs.Cancel(ctx, id)
		require.NoError(t, err)

		s := sweeper.New(f.subs, sweeper.Config{RenewalGrace: 72 * time.Hour})
		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "period has not ended")
		assert.Equal(t, subscription.StatusCanceled, f.status(t, id))

		f.advance(31 * 24 * time.Hour)
		n, err = s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, subscription.StatusExpired, f.status(t, id))

		a, err := f.store.GetAccount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "free", a.PlanID)
		assert.Equal(t, plan.TierFree, a.Tier)

		n, err = s.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("auto renewal gets a grace period", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.paid(t, subscription.Assignment{PlanID: "basic_monthly"})
		s := sweeper.New(f.subs, sweeper.Config{RenewalGrace: 72 * time.Hour})

		f.advance(32 * 24 * time.Hour)
		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, subscription.StatusActive, f.status(t, id))

		f.advance(48 * time.Hour)
		n, err = s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, subscription.StatusExpired, f.status(t, id))
	})

	t.Run("trial ends early when quota is spent", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		trial := f.paid(t, subscription.Assignment{PlanID: "pro_monthly", NoRenew: true, Duration: 14 * 24 * time.Hour})
		other := f.paid(t, subscription.Assignment{PlanID: "pro_monthly", NoRenew: true, Duration: 14 * 24 * time.Hour})

		s := sweeper.New(f.subs, sweeper.Config{}, sweeper.WithQuotaCheck(
			func(_ context.Context, sub *subscription.Subscription, _ plan.Plan) (bool, error) {
				return sub.AccountID == trial, nil
			},
		))
		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, subscription.StatusExpired, f.status(t, trial))
		assert.Equal(t, subscription.StatusActive, f.status(t, other))
	})

	t.Run("batch size caps one pass", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		for range 3 {
			f.paid(t, subscription.Assignment{PlanID: "basic_monthly", NoRenew: true})
		}
		f.advance(40 * 24 * time.Hour)

		s := sweeper.New(f.subs, sweeper.Config{BatchSize: 2})
		n, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

type flakyLifecycle struct {
	mu      sync.Mutex
	ids     []uuid.UUID
	failing uuid.UUID
	expired []uuid.UUID
	passes  int
}

var errLocked = errors.New("row is locked")

func (l *flakyLifecycle) ExpiryCandidates(context.Context, time.Duration, int) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.passes++
	return l.ids, nil
}

func (l *flakyLifecycle) Expire(_ context.Context, id uuid.UUID, _ subscription.ExpiryPolicy) (*subscription.Transition, error) {
	if id == l.failing {
		return nil, errLocked
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expired = append(l.expired, id)
	return &subscription.Transition{Changed: true, To: subscription.StatusExpired}, nil
}

func TestSweepContinuesPastFailures(t *testing.T) {
	t.Parallel()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	l := &flakyLifecycle{ids: ids, failing: ids[1]}

	n, err := sweeper.New(l, sweeper.Config{}).Sweep(context.Background())
	require.ErrorIs(t, err, errLocked)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{ids[0], ids[2]}, l.expired)
}

func TestRun(t *testing.T) {
	t.Parallel()
	l := &flakyLifecycle{ids: []uuid.UUID{uuid.New()}}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sweeper.New(l, sweeper.Config{Interval: 5 * time.Millisecond}).Run(ctx) }()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.passes >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
