package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/broadcast"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/statemachine"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

// Grant is additive quota attached to an assignment or applied on its own.
type Grant struct {
	Operations int64
	Categories int64
}

// Assignment requests a paid plan for an account.
type Assignment struct {
	AccountID uuid.UUID
	PlanID    string
	// Source names the trigger for logs and fan-out, e.g. "payment" or "coupon".
	Source      string
	ProviderRef string
	Grant       Grant
	// NoRenew assigns a non-renewing plan, as trial grants do.
	NoRenew bool
	// Trial marks a promotional assignment. It is refused while the account
	// holds a paid plan, so a trial never replaces a purchase.
	Trial bool
	// Duration overrides the plan interval for the new period when positive.
	Duration time.Duration
}

func (a Assignment) periodEnd(p plan.Plan, now time.Time) time.Time {
	if a.Duration > 0 {
		return now.Add(a.Duration)
	}
	return p.Interval.Add(now, 1)
}

// Transition reports the outcome of a lifecycle call.
type Transition struct {
	Subscription *Subscription
	Event        Event
	From         Status
	To           Status
	// Changed is false when the call was a benign no-op.
	Changed bool
}

// QuotaCheck reports whether the subscription exhausted its operation quota
// in the current period. Called inside the transaction.
type QuotaCheck func(ctx context.Context, s *Subscription, p plan.Plan) (bool, error)

// ExpiryPolicy tunes Expire.
type ExpiryPolicy struct {
	RenewalGrace   time.Duration
	QuotaExhausted QuotaCheck
}

// Service is the only writer of subscription rows.
type Service struct {
	tx      txn.Transactor
	store   Store
	mirror  ProfileMirror
	catalog *plan.Catalog
	changes broadcast.Broadcaster[Changed]
	log     *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithBroadcaster publishes a Changed message after every committed transition.
func WithBroadcaster(b broadcast.Broadcaster[Changed]) Option {
	return func(s *Service) { s.changes = b }
}

func NewService(tx txn.Transactor, store Store, mirror ProfileMirror, catalog *plan.Catalog, opts ...Option) *Service {
	s := &Service{
		tx:      tx,
		store:   store,
		mirror:  mirror,
		catalog: catalog,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("subscription"))
	return s
}

func (s *Service) Catalog() *plan.Catalog {
	return s.catalog
}

// Current returns the account's subscription, or nil when it has none.
func (s *Service) Current(ctx context.Context, accountID uuid.UUID) (*Subscription, error) {
	sub, err := s.store.FindSubscription(ctx, accountID)
	return s.checkRow(ctx, accountID, sub, err)
}

// Effective resolves the account's entitlements now.
func (s *Service) Effective(ctx context.Context, accountID uuid.UUID) (Effective, error) {
	sub, err := s.Current(ctx, accountID)
	if err != nil {
		return Effective{}, err
	}
	eff, err := Resolve(sub, s.catalog, s.now().UTC())
	if err != nil {
		s.log.ErrorContext(ctx, "subscription references unknown plan", logger.AccountID(accountID), logger.Error(err))
	}
	return eff, err
}

// AssignPaidPlan activates, upgrades or renews a paid plan. While the row
// still holds a paid plan a plan change must be a strict upgrade.
func (s *Service) AssignPaidPlan(ctx context.Context, a Assignment) (*Transition, error) {
	target, err := s.catalog.Get(a.PlanID)
	if err != nil {
		return nil, err
	}
	if target.IsFree() {
		return nil, ErrFreePlanPurchase
	}

	var out *Transition
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sub, current, err := s.lock(ctx, a.AccountID)
		if err != nil {
			return err
		}
		if a.Trial && holdsPaidPlan(sub, current, s.now().UTC()) {
			return apperr.Wrapf(ErrTrialOnPaidPlan, "account %s holds %s", a.AccountID, current.ID)
		}

		event := EventAssign
		if StatusOf(sub) == StatusActive && !current.IsFree() {
			event = EventUpgrade
			if current.ID == target.ID {
				event = EventRenew
			}
		}

		out, err = s.apply(ctx, a.AccountID, sub, event, &change{current: current, target: target, assign: a})
		if statemachine.IsRejected(err) {
			return apperr.Wrapf(ErrDowngradeNotAllowed, "%s -> %s", current.ID, target.ID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel stops renewal. Access continues until PeriodEnd. Canceling a
// canceled subscription is a no-op.
func (s *Service) Cancel(ctx context.Context, accountID uuid.UUID) (*Transition, error) {
	return s.simple(ctx, accountID, EventCancel, StatusCanceled, ErrNothingToCancel)
}

// Pause suspends a paid subscription. Paused accounts resolve to free limits.
func (s *Service) Pause(ctx context.Context, accountID uuid.UUID) (*Transition, error) {
	return s.simple(ctx, accountID, EventPause, StatusPaused, ErrInvalidTransition)
}

func (s *Service) Resume(ctx context.Context, accountID uuid.UUID) (*Transition, error) {
	return s.simple(ctx, accountID, EventResume, StatusActive, ErrInvalidTransition)
}

// Expire demotes the account to the free plan if the locked row is due.
// A row that is no longer due, for example renewed or already expired by a
// concurrent caller, yields Changed == false.
func (s *Service) Expire(ctx context.Context, accountID uuid.UUID, policy ExpiryPolicy) (*Transition, error) {
	var out *Transition
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sub, current, err := s.lock(ctx, accountID)
		if err != nil {
			return err
		}
		from := StatusOf(sub)
		if from == StatusNone || from == StatusExpired || current.IsFree() {
			out = &Transition{Subscription: sub, Event: EventExpire, From: from, To: from}
			return nil
		}

		c := &change{current: current, expiry: expiryState{grace: policy.RenewalGrace}}
		if from == StatusActive && !sub.AutoRenew && policy.QuotaExhausted != nil {
			if c.expiry.exhausted, err = policy.QuotaExhausted(ctx, sub, current); err != nil {
				return err
			}
		}

		out, err = s.apply(ctx, accountID, sub, EventExpire, c)
		if statemachine.IsRejected(err) {
			out = &Transition{Subscription: sub, Event: EventExpire, From: from, To: from}
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyBonus adds coupon-granted quota. Accounts without a row get an active
// free-plan row to carry the bonus.
func (s *Service) ApplyBonus(ctx context.Context, accountID uuid.UUID, g Grant) (*Subscription, error) {
	if g.Operations < 0 || g.Categories < 0 {
		return nil, ErrInvalidBonus
	}

	var out *Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sub, _, err := s.lock(ctx, accountID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if sub == nil {
			period := CalendarMonth(now)
			free := s.catalog.Free()
			sub = &Subscription{
				ID:          uuid.New(),
				AccountID:   accountID,
				PlanID:      free.ID,
				Status:      StatusActive,
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
				CreatedAt:   now,
			}
			if err := s.mirror.MirrorPlan(ctx, accountID, free.ID, free.Tier); err != nil {
				return err
			}
		}
		sub.BonusOperations += g.Operations
		sub.BonusCategories += g.Categories
		sub.UpdatedAt = now
		if err := s.store.SaveSubscription(ctx, sub); err != nil {
			return err
		}
		out = sub
		s.publish(ctx, Changed{
			AccountID: accountID,
			PlanID:    sub.PlanID,
			Event:     EventBonus,
			From:      sub.Status,
			To:        sub.Status,
			At:        now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExpiryCandidates lists accounts the sweeper should examine.
func (s *Service) ExpiryCandidates(ctx context.Context, grace time.Duration, limit int) ([]uuid.UUID, error) {
	now := s.now().UTC()
	return s.store.ListExpiryCandidates(ctx, ExpiryQuery{
		Now:           now,
		RenewalCutoff: now.Add(-grace),
		FreePlanID:    s.catalog.Free().ID,
		Limit:         limit,
	})
}

// simple runs a transition that needs no plan input. alreadyIn makes a call
// on a row already in the destination state a no-op.
func (s *Service) simple(ctx context.Context, accountID uuid.UUID, event Event, alreadyIn Status, rejected error) (*Transition, error) {
	var out *Transition
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		sub, current, err := s.lock(ctx, accountID)
		if err != nil {
			return err
		}
		from := StatusOf(sub)
		if from == StatusNone {
			return fmt.Errorf("%w: %s", ErrNotFound, event)
		}
		if from == alreadyIn {
			out = &Transition{Subscription: sub, Event: event, From: from, To: from}
			return nil
		}
		out, err = s.apply(ctx, accountID, sub, event, &change{current: current})
		if statemachine.IsRejected(err) || statemachine.IsNoTransition(err) {
			return apperr.Wrapf(rejected, "%s from %s", event, from)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lock takes the row lock and resolves the row's catalog plan. Must run in a tx.
func (s *Service) lock(ctx context.Context, accountID uuid.UUID) (*Subscription, plan.Plan, error) {
	sub, err := s.store.LockSubscription(ctx, accountID)
	sub, err = s.checkRow(ctx, accountID, sub, err)
	if err != nil {
		return nil, plan.Plan{}, err
	}
	if sub == nil {
		return nil, s.catalog.Free(), nil
	}
	current, err := s.catalog.Get(sub.PlanID)
	if err != nil {
		s.log.ErrorContext(ctx, "subscription references unknown plan", logger.AccountID(accountID), logger.PlanID(sub.PlanID))
		return nil, plan.Plan{}, apperr.Wrapf(ErrUnknownPlan, "account %s plan %q", accountID, sub.PlanID)
	}
	return sub, current, nil
}

// apply fires event on a copy of sub, then persists the row and the profile
// mirror in the caller's transaction.
func (s *Service) apply(ctx context.Context, accountID uuid.UUID, sub *Subscription, event Event, c *change) (*Transition, error) {
	now := s.now().UTC()
	from := StatusOf(sub)

	working := sub.clone()
	if working == nil {
		working = &Subscription{ID: uuid.New(), AccountID: accountID, CreatedAt: now}
	}
	c.sub, c.now, c.free = working, now, s.catalog.Free()

	to, err := lifecycle.Fire(ctx, from, event, c)
	if err != nil {
		return nil, err
	}
	working.Status = to
	working.UpdatedAt = now

	if err := s.store.SaveSubscription(ctx, working); err != nil {
		return nil, err
	}
	if working.PlanID != planOf(sub) {
		p, err := s.catalog.Get(working.PlanID)
		if err != nil {
			return nil, err
		}
		if err := s.mirror.MirrorPlan(ctx, accountID, p.ID, p.Tier); err != nil {
			return nil, err
		}
	}

	s.log.InfoContext(ctx, "subscription transition",
		logger.AccountID(accountID),
		logger.Event(string(event)),
		logger.PlanID(working.PlanID),
		slog.String("from", string(from)),
		logger.Status(string(to)),
		slog.String("source", c.assign.Source),
	)
	s.publish(ctx, Changed{
		AccountID: accountID,
		PlanID:    working.PlanID,
		Event:     event,
		From:      from,
		To:        to,
		Source:    c.assign.Source,
		At:        now,
	})
	return &Transition{Subscription: working, Event: event, From: from, To: to, Changed: true}, nil
}

// holdsPaidPlan reports whether the row still carries a paid plan that a
// new assignment would replace: active, or paused or canceled inside its period.
func holdsPaidPlan(sub *Subscription, current plan.Plan, now time.Time) bool {
	if sub == nil || current.IsFree() {
		return false
	}
	switch sub.Status {
	case StatusActive:
		return true
	case StatusPaused, StatusCanceled:
		return now.Before(sub.PeriodEnd)
	default:
		return false
	}
}

func planOf(s *Subscription) string {
	if s == nil {
		return ""
	}
	return s.PlanID
}

func (s *Service) checkRow(ctx context.Context, accountID uuid.UUID, sub *Subscription, err error) (*Subscription, error) {
	switch {
	case err == nil:
		return sub, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case errors.Is(err, ErrMultipleSubscriptions):
		s.log.ErrorContext(ctx, "invariant violation: multiple authoritative subscriptions",
			logger.AccountID(accountID), logger.Error(err))
		return nil, err
	default:
		return nil, err
	}
}
