package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/pg"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/pgstore"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

// setup connects to PG_CONN_URL and applies the schema. Tests are skipped
// when the variable is not set.
func setup(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("PG_CONN_URL")
	if dsn == "" || testing.Short() {
		t.Skip("PG_CONN_URL not set")
	}
	ctx := context.Background()
	cfg := pg.Config{ConnectionString: dsn, MaxOpenConns: 4, RetryAttempts: 1, MigrationsTable: "schema_migrations"}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pg.MigrateFS(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, logger.Nop()))
	return pgstore.New(pool)
}

func newAccount(t *testing.T, s *pgstore.Store) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.CreateAccount(context.Background(), &account.Account{
		ID:        id,
		Email:     id.String() + "@example.com",
		Locale:    "en",
		Role:      account.RoleStandard,
		PlanID:    "free",
		Tier:      plan.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return id
}

func TestAccounts(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	id := newAccount(t, s)

	a, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, plan.TierFree, a.Tier)
	assert.Empty(t, a.Categories)

	err = s.CreateAccount(ctx, &account.Account{ID: uuid.New(), Email: a.Email, Role: account.RoleStandard, PlanID: "free", Tier: plan.TierFree})
	require.ErrorIs(t, err, account.ErrAlreadyExists)

	require.NoError(t, s.SetCategories(ctx, id, []string{"retail", "food"}, "retail"))
	require.NoError(t, s.MirrorPlan(ctx, id, "pro_monthly", plan.TierPro))
	a, err = s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"retail", "food"}, a.Categories)
	assert.Equal(t, "pro_monthly", a.PlanID)

	_, err = s.GetAccount(ctx, uuid.New())
	require.ErrorIs(t, err, account.ErrNotFound)
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	catalog, err := plan.Default()
	require.NoError(t, err)
	subs := subscription.NewService(s, s, s, catalog)
	id := newAccount(t, s)

	_, err = subs.AssignPaidPlan(ctx, subscription.Assignment{AccountID: id, PlanID: "basic_monthly", Source: "test"})
	require.NoError(t, err)
	tr, err := subs.Cancel(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, tr.To)

	sub, err := s.FindSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "basic_monthly", sub.PlanID)
	assert.NotNil(t, sub.CanceledAt)
	assert.False(t, sub.AutoRenew)

	a, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, plan.TierBasic, a.Tier)

	ids, err := s.ListExpiryCandidates(ctx, subscription.ExpiryQuery{
		Now:           sub.PeriodEnd,
		RenewalCutoff: sub.PeriodEnd,
		FreePlanID:    "free",
		Limit:         10000,
	})
	require.NoError(t, err)
	assert.Contains(t, ids, id)
}

func TestUsage(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	id := uuid.New()
	start := time.Now().UTC().Truncate(time.Second)

	event := usage.Event{ID: uuid.New(), AccountID: id, Kind: usage.KindOperation, Quantity: 1, ArtifactID: "a", OccurredAt: start}
	inserted, err := s.AppendUsage(ctx, event)
	require.NoError(t, err)
	assert.True(t, inserted)

	event.ID = uuid.New()
	inserted, err = s.AppendUsage(ctx, event)
	require.NoError(t, err)
	assert.False(t, inserted)

	for range 2 {
		_, err := s.AppendUsage(ctx, usage.Event{ID: uuid.New(), AccountID: id, Kind: usage.KindMeteredMinutes, Quantity: 4, OccurredAt: start})
		require.NoError(t, err)
	}

	snap, err := s.AggregateUsage(ctx, id, start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, usage.Snapshot{OperationCount: 1, MeteredMinutes: 8}, snap)

	seen, err := s.UsageRecorded(ctx, id, usage.KindOperation, "a")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestCouponRedemption(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	catalog, err := plan.Default()
	require.NoError(t, err)
	engine := coupon.NewEngine(s, s, subscription.NewService(s, s, s, catalog))
	id := newAccount(t, s)
	code := "PG" + uuid.NewString()[:8]

	_, err = engine.Create(ctx, coupon.Coupon{Code: code, Kind: coupon.KindBonus, BonusOperations: 3, Active: true})
	require.NoError(t, err)

	for range 2 {
		_, err := engine.Redeem(ctx, code, id)
		require.NoError(t, err)
	}
	c, err := s.GetCoupon(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Redemptions)

	sub, err := s.FindSubscription(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sub.BonusOperations)
}

func TestPaymentEvents(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	ref := "tx-" + uuid.NewString()
	now := time.Now().UTC()

	failed := &payment.Event{ID: uuid.New(), ExternalRef: ref, Provider: "http", Outcome: payment.OutcomeFailure, State: payment.StateFailed, CreatedAt: now, UpdatedAt: now}
	inserted, err := s.InsertEvent(ctx, failed)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertEvent(ctx, failed)
	require.NoError(t, err)
	assert.False(t, inserted)

	success := *failed
	success.Outcome, success.State, success.AccountID = payment.OutcomeSuccess, payment.StateApplied, uuid.New()
	promoted, err := s.PromoteEvent(ctx, &success)
	require.NoError(t, err)
	assert.True(t, promoted)

	promoted, err = s.PromoteEvent(ctx, &success)
	require.NoError(t, err)
	assert.False(t, promoted)

	require.NoError(t, s.SetEventState(ctx, ref, payment.StateRenewed))
	ev, err := s.FindEvent(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, payment.StateRenewed, ev.State)
	assert.Equal(t, success.AccountID, ev.AccountID)
	assert.Equal(t, uuid.Nil, ev.OrderID)

	_, err = s.FindEvent(ctx, "tx-missing-"+uuid.NewString())
	require.ErrorIs(t, err, payment.ErrEventNotFound)
}
