package entitlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

// Subscriptions resolves effective entitlements.
type Subscriptions interface {
	Effective(ctx context.Context, accountID uuid.UUID) (subscription.Effective, error)
}

// State is the full entitlement picture of one account.
type State struct {
	AccountID       uuid.UUID             `json:"account_id"`
	Status          subscription.Status   `json:"status"`
	Plan            plan.Plan             `json:"plan"`
	Period          subscription.Period   `json:"period"`
	AutoRenew       bool                  `json:"auto_renew"`
	BonusOperations int64                 `json:"bonus_operations"`
	BonusCategories int64                 `json:"bonus_categories"`
	Usage           UsageView             `json:"usage"`
	Features        map[plan.Feature]bool `json:"features"`

	resolver Resolver
}

func (s *State) Resolver() Resolver { return s.resolver }

type Service struct {
	tx     txn.Transactor
	subs   Subscriptions
	ledger *usage.Ledger
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(tx txn.Transactor, subs Subscriptions, ledger *usage.Ledger, opts ...Option) *Service {
	s := &Service{tx: tx, subs: subs, ledger: ledger, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("entitlement"))
	return s
}

// State resolves the plan and aggregates usage for the current period.
func (s *Service) State(ctx context.Context, accountID uuid.UUID) (*State, error) {
	eff, err := s.subs.Effective(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snap, err := s.ledger.Aggregate(ctx, accountID, eff.Period.Start, eff.Period.End)
	if err != nil {
		return nil, err
	}

	r := New(eff)
	st := &State{
		AccountID:       accountID,
		Status:          subscription.StatusOf(eff.Subscription),
		Plan:            eff.Plan,
		Period:          eff.Period,
		BonusOperations: eff.BonusOperations,
		BonusCategories: eff.BonusCategories,
		Usage:           r.Usage(snap),
		Features:        make(map[plan.Feature]bool),
		resolver:        r,
	}
	if eff.Subscription != nil {
		st.AutoRenew = eff.Subscription.AutoRenew
	}
	for _, f := range eff.Plan.Features {
		st.Features[f] = true
	}
	return st, nil
}

// CheckAndRecordOperation gates one operation and bills it when allowed.
// An artifact that was already billed is allowed again without counting.
func (s *Service) CheckAndRecordOperation(ctx context.Context, accountID uuid.UUID, artifactID string) (Decision, error) {
	return s.checkAndRecord(ctx, accountID, usage.KindOperation, artifactID, 1)
}

// CheckAndRecordMinutes gates metered consumption. The check is on minutes
// already used, so the last allowed call may overshoot the cap by its own size.
func (s *Service) CheckAndRecordMinutes(ctx context.Context, accountID uuid.UUID, artifactID string, minutes int64) (Decision, error) {
	return s.checkAndRecord(ctx, accountID, usage.KindMeteredMinutes, artifactID, minutes)
}

func (s *Service) checkAndRecord(ctx context.Context, accountID uuid.UUID, kind usage.Kind, artifactID string, quantity int64) (Decision, error) {
	var d Decision
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.State(ctx, accountID)
		if err != nil {
			return err
		}
		d = st.decide(kind)

		seen, err := s.ledger.Recorded(ctx, accountID, kind, artifactID)
		if err != nil {
			return err
		}
		if seen {
			d.Allowed, d.Reason, d.Duplicate = true, "", true
			return nil
		}
		if !d.Allowed {
			return nil
		}

		inserted, err := s.ledger.Record(ctx, usage.Event{
			AccountID:  accountID,
			Kind:       kind,
			Quantity:   quantity,
			ArtifactID: artifactID,
			OccurredAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !inserted {
			d.Duplicate = true
			return nil
		}
		d.Used += quantity
		if d.Max != plan.Unlimited {
			d.Remaining = max(d.Max-d.Used, 0)
		}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	if !d.Allowed {
		s.log.InfoContext(ctx, "usage denied",
			logger.AccountID(accountID),
			slog.String("limit", string(d.Limit)),
			slog.Int64("used", d.Used),
			slog.Int64("max", d.Max),
		)
	}
	return d, nil
}

func (st *State) decide(kind usage.Kind) Decision {
	if kind == usage.KindMeteredMinutes {
		return st.Usage.MeteredMinutes
	}
	return st.Usage.Operations
}

// CheckArtifact validates an artifact's length and size against the plan.
func (s *Service) CheckArtifact(ctx context.Context, accountID uuid.UUID, seconds, bytes int64) (Decision, error) {
	eff, err := s.subs.Effective(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	return New(eff).CheckArtifact(seconds, bytes), nil
}

func (s *Service) HasFeature(ctx context.Context, accountID uuid.UUID, f plan.Feature) (Decision, error) {
	eff, err := s.subs.Effective(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	return New(eff).HasFeature(f), nil
}

// QuotaExhausted reports whether sub used up its own plan's operation quota
// in the current period. It plugs into subscription.ExpiryPolicy.
func (s *Service) QuotaExhausted(ctx context.Context, sub *subscription.Subscription, p plan.Plan) (bool, error) {
	period := subscription.PeriodAt(sub, p.Interval, s.now().UTC())
	snap, err := s.ledger.Aggregate(ctx, sub.AccountID, period.Start, period.End)
	if err != nil {
		return false, err
	}
	return !ForPlan(p, sub.BonusOperations, sub.BonusCategories).CanPerformOperation(snap.OperationCount).Allowed, nil
}
