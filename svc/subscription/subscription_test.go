package subscription_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/memstore"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *memstore.Store
	svc     *subscription.Service
	clock   *clock
	catalog *plan.Catalog
}

func setup(t *testing.T, opts ...subscription.Option) *fixture {
	t.Helper()
	catalog, err := plan.Default()
	require.NoError(t, err)
	store := memstore.New()
	clk := newClock()
	opts = append([]subscription.Option{subscription.WithClock(clk.Now)}, opts...)
	return &fixture{
		store:   store,
		svc:     subscription.NewService(store, store, store, catalog, opts...),
		clock:   clk,
		catalog: catalog,
	}
}

func (f *fixture) account(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	free := f.catalog.Free()
	require.NoError(t, f.store.CreateAccount(context.Background(), &account.Account{
		ID:     id,
		Email:  id.String() + "@example.com",
		Role:   account.RoleStandard,
		PlanID: free.ID,
		Tier:   free.Tier,
	}))
	return id
}

func (f *fixture) assign(t *testing.T, id uuid.UUID, planID string) *subscription.Transition {
	t.Helper()
	tr, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: id, PlanID: planID, Source: "test"})
	require.NoError(t, err)
	return tr
}

func (f *fixture) mirrored(t *testing.T, id uuid.UUID) string {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.PlanID
}

func TestAssignPaidPlan(t *testing.T) {
	t.Parallel()

	t.Run("first purchase activates the plan", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		now := f.clock.Now()

		tr := f.assign(t, id, "basic_monthly")

		assert.True(t, tr.Changed)
		assert.Equal(t, subscription.EventAssign, tr.Event)
		assert.Equal(t, subscription.StatusNone, tr.From)
		assert.Equal(t, subscription.StatusActive, tr.To)

		sub := tr.Subscription
		assert.Equal(t, "basic_monthly", sub.PlanID)
		assert.Equal(t, now, sub.PeriodStart)
		assert.Equal(t, now.AddDate(0, 1, 0), sub.PeriodEnd)
		assert.True(t, sub.AutoRenew)
		require.NotNil(t, sub.AssignedAt)
		assert.Zero(t, sub.BonusOperations)
		assert.Equal(t, "basic_monthly", f.mirrored(t, id))
	})

	t.Run("upgrade resets the period", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		f.clock.Advance(10 * 24 * time.Hour)

		tr := f.assign(t, id, "pro_monthly")

		assert.Equal(t, subscription.EventUpgrade, tr.Event)
		assert.Equal(t, "pro_monthly", tr.Subscription.PlanID)
		assert.Equal(t, f.clock.Now(), tr.Subscription.PeriodStart)
		assert.Equal(t, f.clock.Now().AddDate(0, 1, 0), tr.Subscription.PeriodEnd)
		assert.Equal(t, "pro_monthly", f.mirrored(t, id))
	})

	t.Run("downgrade while active is rejected", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		before := f.assign(t, id, "pro_monthly").Subscription

		_, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: id, PlanID: "basic_monthly"})

		require.ErrorIs(t, err, subscription.ErrDowngradeNotAllowed)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		after, err := f.svc.Current(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, before.PlanID, after.PlanID)
		assert.Equal(t, before.PeriodStart, after.PeriodStart)
	})

	t.Run("same plan renews", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		f.clock.Advance(30 * 24 * time.Hour)

		tr := f.assign(t, id, "basic_monthly")

		assert.Equal(t, subscription.EventRenew, tr.Event)
		assert.Equal(t, f.clock.Now(), tr.Subscription.PeriodStart)
	})

	t.Run("free plan cannot be purchased", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		_, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: f.account(t), PlanID: "free"})
		assert.ErrorIs(t, err, subscription.ErrFreePlanPurchase)
	})

	t.Run("unknown plan is a validation error", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		_, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: f.account(t), PlanID: "platinum"})
		assert.ErrorIs(t, err, plan.ErrPlanNotFound)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("trial assignment does not renew", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		tr, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{
			AccountID: id,
			PlanID:    "pro_monthly",
			NoRenew:   true,
			Duration:  14 * 24 * time.Hour,
			Grant:     subscription.Grant{Operations: 3},
		})
		require.NoError(t, err)
		assert.False(t, tr.Subscription.AutoRenew)
		assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), tr.Subscription.PeriodEnd)
		assert.Equal(t, int64(3), tr.Subscription.BonusOperations)
	})

	t.Run("trial is refused while a paid plan is held", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			held    string
			trial   string
			prepare func(t *testing.T, f *fixture, id uuid.UUID)
		}{
			{name: "same tier", held: "basic_monthly", trial: "basic_monthly"},
			{name: "higher tier", held: "basic_monthly", trial: "pro_monthly"},
			{name: "canceled inside period", held: "basic_monthly", trial: "pro_monthly",
				prepare: func(t *testing.T, f *fixture, id uuid.UUID) {
					_, err := f.svc.Cancel(context.Background(), id)
					require.NoError(t, err)
				}},
			{name: "paused", held: "pro_monthly", trial: "pro_monthly",
				prepare: func(t *testing.T, f *fixture, id uuid.UUID) {
					_, err := f.svc.Pause(context.Background(), id)
					require.NoError(t, err)
				}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := setup(t)
				id := f.account(t)
				f.assign(t, id, tt.held)
				if tt.prepare != nil {
					tt.prepare(t, f, id)
				}
				before, err := f.svc.Current(context.Background(), id)
				require.NoError(t, err)

				_, err = f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{
					AccountID: id,
					PlanID:    tt.trial,
					Source:    "coupon",
					NoRenew:   true,
					Trial:     true,
					Duration:  3 * 24 * time.Hour,
				})
				require.ErrorIs(t, err, subscription.ErrTrialOnPaidPlan)
				assert.ErrorIs(t, err, apperr.ErrConflict)

				after, err := f.svc.Current(context.Background(), id)
				require.NoError(t, err)
				assert.Equal(t, before, after)
			})
		}
	})

	t.Run("trial is allowed once the paid period is over", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		f.clock.Advance(31 * 24 * time.Hour)

		tr, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{
			AccountID: id, PlanID: "pro_monthly", NoRenew: true, Trial: true, Duration: 3 * 24 * time.Hour,
		})
		require.NoError(t, err)
		assert.Equal(t, "pro_monthly", tr.Subscription.PlanID)
		assert.False(t, tr.Subscription.AutoRenew)
	})

	t.Run("lower plan after cancel keeps the held plan", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "pro_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)

		_, err = f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: id, PlanID: "basic_monthly"})
		require.ErrorIs(t, err, subscription.ErrDowngradeNotAllowed)

		eff, err := f.svc.Effective(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "pro_monthly", eff.Plan.ID)
		assert.Equal(t, "pro_monthly", f.mirrored(t, id))
	})

	t.Run("resubscribing after cancel", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)

		tr := f.assign(t, id, "basic_monthly")
		assert.Equal(t, subscription.StatusActive, tr.To)
		assert.True(t, tr.Subscription.AutoRenew)
		assert.Nil(t, tr.Subscription.CanceledAt)

		_, err = f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		f.clock.Advance(40 * 24 * time.Hour)
		tr = f.assign(t, id, "basic_monthly")
		assert.Equal(t, subscription.StatusActive, tr.To)
	})

	t.Run("lower plan is allowed once the canceled period is over", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "pro_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		f.clock.Advance(31 * 24 * time.Hour)

		tr := f.assign(t, id, "basic_monthly")
		assert.Equal(t, "basic_monthly", tr.Subscription.PlanID)
		assert.Equal(t, "basic_monthly", f.mirrored(t, id))
	})
}

func TestCancel(t *testing.T) {
	t.Parallel()

	t.Run("access persists until period end", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")

		tr, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, tr.Changed)
		assert.Equal(t, subscription.StatusCanceled, tr.Subscription.Status)
		assert.False(t, tr.Subscription.AutoRenew)
		assert.NotNil(t, tr.Subscription.CanceledAt)

		eff, err := f.svc.Effective(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "basic_monthly", eff.Plan.ID)

		f.clock.Advance(31 * 24 * time.Hour)
		eff, err = f.svc.Effective(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "free", eff.Plan.ID)
	})

	t.Run("second cancel is a no-op", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)

		tr, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, tr.Changed)
		assert.Equal(t, subscription.StatusCanceled, tr.To)
	})

	t.Run("no subscription", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		_, err := f.svc.Cancel(context.Background(), f.account(t))
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})

	t.Run("free bonus row has nothing to cancel", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		_, err := f.svc.ApplyBonus(context.Background(), id, subscription.Grant{Operations: 1})
		require.NoError(t, err)

		_, err = f.svc.Cancel(context.Background(), id)
		assert.ErrorIs(t, err, subscription.ErrNothingToCancel)
	})

	t.Run("expired subscription cannot be canceled", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		f.clock.Advance(40 * 24 * time.Hour)
		_, err = f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{})
		require.NoError(t, err)

		_, err = f.svc.Cancel(context.Background(), id)
		assert.ErrorIs(t, err, subscription.ErrNothingToCancel)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("concurrent cancels change the row once", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")

		var changed atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tr, err := f.svc.Cancel(context.Background(), id)
				if assert.NoError(t, err) && tr.Changed {
					changed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), changed.Load())
	})
}

func TestPauseResume(t *testing.T) {
	t.Parallel()
	f := setup(t)
	id := f.account(t)
	f.assign(t, id, "pro_monthly")

	tr, err := f.svc.Pause(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPaused, tr.To)
	assert.NotNil(t, tr.Subscription.PausedAt)

	eff, err := f.svc.Effective(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "free", eff.Plan.ID, "paused accounts resolve to free limits")

	tr, err = f.svc.Pause(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, tr.Changed)

	tr, err = f.svc.Resume(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, tr.To)
	assert.Nil(t, tr.Subscription.PausedAt)

	eff, err = f.svc.Effective(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "pro_monthly", eff.Plan.ID)
}

func TestCancelWhilePaused(t *testing.T) {
	t.Parallel()
	f := setup(t)
	id := f.account(t)
	f.assign(t, id, "pro_monthly")
	_, err := f.svc.Pause(context.Background(), id)
	require.NoError(t, err)

	tr, err := f.svc.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPaused, tr.From)
	assert.Equal(t, subscription.StatusCanceled, tr.To)
	assert.NotNil(t, tr.Subscription.PausedAt)

	eff, err := f.svc.Effective(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "free", eff.Plan.ID, "canceling must not restore paused access")

	f.clock.Advance(31 * 24 * time.Hour)
	tr, err = f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{})
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, subscription.StatusExpired, tr.To)
}

func TestPauseRequiresPaidActive(t *testing.T) {
	t.Parallel()
	f := setup(t)
	id := f.account(t)
	f.assign(t, id, "basic_monthly")
	_, err := f.svc.Cancel(context.Background(), id)
	require.NoError(t, err)

	_, err = f.svc.Pause(context.Background(), id)
	assert.ErrorIs(t, err, subscription.ErrInvalidTransition)

	_, err = f.svc.Resume(context.Background(), id)
	assert.ErrorIs(t, err, subscription.ErrInvalidTransition)
}

func TestExpire(t *testing.T) {
	t.Parallel()

	t.Run("lapsed cancellation demotes to free", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		_, err := f.svc.Cancel(context.Background(), id)
		require.NoError(t, err)
		f.clock.Advance(32 * 24 * time.Hour)

		tr, err := f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{})
		require.NoError(t, err)
		assert.True(t, tr.Changed)
		assert.Equal(t, subscription.StatusExpired, tr.To)
		assert.Equal(t, "free", tr.Subscription.PlanID)
		assert.Equal(t, "free", f.mirrored(t, id))
	})

	t.Run("renewing subscription inside grace is kept", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")
		f.clock.Advance(32 * 24 * time.Hour)

		tr, err := f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{RenewalGrace: 72 * time.Hour})
		require.NoError(t, err)
		assert.False(t, tr.Changed)

		f.clock.Advance(3 * 24 * time.Hour)
		tr, err = f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{RenewalGrace: 72 * time.Hour})
		require.NoError(t, err)
		assert.True(t, tr.Changed)
	})

	t.Run("exhausted trial expires early", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		_, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{
			AccountID: id, PlanID: "pro_monthly", NoRenew: true, Duration: 7 * 24 * time.Hour,
		})
		require.NoError(t, err)

		exhausted := func(context.Context, *subscription.Subscription, plan.Plan) (bool, error) { return true, nil }
		tr, err := f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{QuotaExhausted: exhausted})
		require.NoError(t, err)
		assert.True(t, tr.Changed)
		assert.Equal(t, "free", tr.Subscription.PlanID)
	})

	t.Run("quota check error aborts", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		_, err := f.svc.AssignPaidPlan(context.Background(), subscription.Assignment{AccountID: id, PlanID: "pro_monthly", NoRenew: true})
		require.NoError(t, err)

		boom := errors.New("boom")
		failing := func(context.Context, *subscription.Subscription, plan.Plan) (bool, error) { return false, boom }
		_, err = f.svc.Expire(context.Background(), id, subscription.ExpiryPolicy{QuotaExhausted: failing})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nothing to expire", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		tr, err := f.svc.Expire(context.Background(), f.account(t), subscription.ExpiryPolicy{})
		require.NoError(t, err)
		assert.False(t, tr.Changed)
	})
}

func TestApplyBonus(t *testing.T) {
	t.Parallel()

	t.Run("creates a free row for accounts without one", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)

		sub, err := f.svc.ApplyBonus(context.Background(), id, subscription.Grant{Operations: 5, Categories: 1})
		require.NoError(t, err)
		assert.Equal(t, "free", sub.PlanID)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, int64(5), sub.BonusOperations)

		eff, err := f.svc.Effective(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), eff.BonusOperations)
		assert.Equal(t, int64(1), eff.BonusCategories)
		assert.Equal(t, subscription.CalendarMonth(f.clock.Now()), eff.Period)
	})

	t.Run("adds to an existing paid row", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.assign(t, id, "basic_monthly")

		_, err := f.svc.ApplyBonus(context.Background(), id, subscription.Grant{Operations: 5})
		require.NoError(t, err)
		sub, err := f.svc.ApplyBonus(context.Background(), id, subscription.Grant{Operations: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(7), sub.BonusOperations)
		assert.Equal(t, "basic_monthly", sub.PlanID)
	})

	t.Run("negative grant", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		_, err := f.svc.ApplyBonus(context.Background(), f.account(t), subscription.Grant{Operations: -1})
		assert.ErrorIs(t, err, subscription.ErrInvalidBonus)
	})
}

func TestInvariantViolations(t *testing.T) {
	t.Parallel()

	t.Run("two rows for one account", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		now := f.clock.Now()
		for range 2 {
			f.store.SeedSubscription(subscription.Subscription{
				ID: uuid.New(), AccountID: id, PlanID: "basic_monthly", Status: subscription.StatusActive,
				PeriodStart: now, PeriodEnd: now.AddDate(0, 1, 0),
			})
		}

		_, err := f.svc.Effective(context.Background(), id)
		require.ErrorIs(t, err, subscription.ErrMultipleSubscriptions)
		assert.ErrorIs(t, err, apperr.ErrInvariantViolation)

		_, err = f.svc.Cancel(context.Background(), id)
		assert.ErrorIs(t, err, subscription.ErrMultipleSubscriptions)
	})

	t.Run("row references a plan missing from the catalog", func(t *testing.T) {
		t.Parallel()
		f := setup(t)
		id := f.account(t)
		f.store.SeedSubscription(subscription.Subscription{
			ID: uuid.New(), AccountID: id, PlanID: "legacy_gold", Status: subscription.StatusActive,
		})

		_, err := f.svc.Effective(context.Background(), id)
		assert.ErrorIs(t, err, subscription.ErrUnknownPlan)
		assert.ErrorIs(t, err, apperr.ErrInvariantViolation)
	})
}

func TestTransitionsAreAtomic(t *testing.T) {
	t.Parallel()
	changes := broadcast.NewMemoryBroadcaster[subscription.Changed](8)
	t.Cleanup(func() { _ = changes.Close() })
	f := setup(t, subscription.WithBroadcaster(changes))
	id := f.account(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sub := changes.Subscribe(ctx)

	boom := errors.New("boom")
	err := f.store.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := f.svc.AssignPaidPlan(ctx, subscription.Assignment{AccountID: id, PlanID: "basic_monthly"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	current, err := f.svc.Current(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Equal(t, "free", f.mirrored(t, id))
	select {
	case msg := <-sub.Receive(ctx):
		t.Fatalf("unexpected change published: %+v", msg.Data)
	default:
	}

	f.assign(t, id, "basic_monthly")
	select {
	case msg := <-sub.Receive(ctx):
		assert.Equal(t, id, msg.Data.AccountID)
		assert.Equal(t, subscription.EventAssign, msg.Data.Event)
		assert.Equal(t, "test", msg.Data.Source)
	case <-time.After(time.Second):
		t.Fatal("change was not published after commit")
	}
}

func TestPeriodAt(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	assigned := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sub  *subscription.Subscription
		want subscription.Period
	}{
		{
			name: "no subscription uses the calendar month",
			want: subscription.Period{
				Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "never assigned uses the calendar month",
			sub:  &subscription.Subscription{PeriodStart: assigned, PeriodEnd: assigned.AddDate(0, 1, 0)},
			want: subscription.Period{
				Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "rolls from the assignment anchor",
			sub:  &subscription.Subscription{AssignedAt: &assigned, PeriodStart: assigned, PeriodEnd: assigned.AddDate(0, 1, 0)},
			want: subscription.Period{Start: assigned.AddDate(0, 1, 0), End: assigned.AddDate(0, 2, 0)},
		},
		{
			name: "current period is used as is",
			sub:  &subscription.Subscription{AssignedAt: &assigned, PeriodStart: assigned, PeriodEnd: assigned.AddDate(0, 3, 0)},
			want: subscription.Period{Start: assigned, End: assigned.AddDate(0, 3, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, subscription.PeriodAt(tt.sub, plan.IntervalMonthly, now))
		})
	}
}
