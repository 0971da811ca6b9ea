package coupon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

// Lifecycle is the subset of subscription.Service the engine drives.
type Lifecycle interface {
	Catalog() *plan.Catalog
	Current(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error)
	AssignPaidPlan(ctx context.Context, a subscription.Assignment) (*subscription.Transition, error)
	ApplyBonus(ctx context.Context, accountID uuid.UUID, g subscription.Grant) (*subscription.Subscription, error)
}

// Result describes a redemption.
type Result struct {
	Code            string                     `json:"code"`
	Kind            Kind                       `json:"kind"`
	Duplicate       bool                       `json:"duplicate"`
	DiscountPercent int                        `json:"discount_percent,omitempty"`
	RedeemedAt      time.Time                  `json:"redeemed_at"`
	Subscription    *subscription.Subscription `json:"-"`
}

type Engine struct {
	tx    txn.Transactor
	store Store
	subs  Lifecycle
	log   *slog.Logger
	now   func() time.Time
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(tx txn.Transactor, store Store, subs Lifecycle, opts ...Option) *Engine {
	e := &Engine{tx: tx, store: store, subs: subs, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Component("coupon"))
	return e
}

// Create stores a new coupon.
func (e *Engine) Create(ctx context.Context, c Coupon) (*Coupon, error) {
	c.Code = NormalizeCode(c.Code)
	c.Redemptions = 0
	if c.CreatedAt.IsZero() {
		c.CreatedAt = e.now().UTC()
	}
	if err := c.Validate(e.subs.Catalog()); err != nil {
		return nil, err
	}
	if err := e.store.CreateCoupon(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Redeem validates code and applies its effect for accountID, all in one
// transaction. A repeat redemption by the same account is a benign duplicate.
func (e *Engine) Redeem(ctx context.Context, code string, accountID uuid.UUID) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	var out *Result
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := e.store.LockCoupon(ctx, code)
		if err != nil {
			return err
		}

		prior, err := e.store.FindRedemption(ctx, code, accountID)
		switch {
		case err == nil:
			out, err = e.duplicate(ctx, c, prior)
			return err
		case !errors.Is(err, ErrRedemptionNotFound):
			return err
		}

		now := e.now().UTC()
		if err := c.redeemable(now); err != nil {
			return err
		}

		r := &Redemption{ID: uuid.New(), Code: code, AccountID: accountID, RedeemedAt: now}
		inserted, err := e.store.InsertRedemption(ctx, r)
		if err != nil {
			return err
		}
		if !inserted {
			prior, err := e.store.FindRedemption(ctx, code, accountID)
			if err != nil {
				return err
			}
			out, err = e.duplicate(ctx, c, prior)
			return err
		}
		if err := e.store.IncrementRedemptions(ctx, code); err != nil {
			return err
		}

		out = &Result{Code: code, Kind: c.Kind, RedeemedAt: now, DiscountPercent: c.DiscountPercent}
		out.Subscription, err = e.apply(ctx, c, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "coupon redeemed",
		logger.CouponCode(code),
		logger.AccountID(accountID),
		slog.String("kind", string(out.Kind)),
		slog.Bool("duplicate", out.Duplicate),
	)
	return out, nil
}

func (e *Engine) apply(ctx context.Context, c *Coupon, accountID uuid.UUID) (*subscription.Subscription, error) {
	grant := subscription.Grant{Operations: c.BonusOperations, Categories: c.BonusCategories}
	switch c.Kind {
	case KindBonus:
		return e.subs.ApplyBonus(ctx, accountID, grant)
	case KindTrial:
		p, err := e.subs.Catalog().ByTier(c.TrialTier)
		if err != nil {
			return nil, err
		}
		t, err := e.subs.AssignPaidPlan(ctx, subscription.Assignment{
			AccountID: accountID,
			PlanID:    p.ID,
			Source:    "coupon",
			Grant:     grant,
			NoRenew:   true,
			Trial:     true,
			Duration:  time.Duration(c.TrialDays) * 24 * time.Hour,
		})
		if err != nil {
			return nil, err
		}
		return t.Subscription, nil
	default:
		return e.subs.Current(ctx, accountID)
	}
}

func (e *Engine) duplicate(ctx context.Context, c *Coupon, r *Redemption) (*Result, error) {
	sub, err := e.subs.Current(ctx, r.AccountID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Code:            c.Code,
		Kind:            c.Kind,
		Duplicate:       true,
		DiscountPercent: c.DiscountPercent,
		RedeemedAt:      r.RedeemedAt,
		Subscription:    sub,
	}, nil
}

// DiscountFor returns the discount an account redeemed with code. Checkout
// uses it to price an order.
func (e *Engine) DiscountFor(ctx context.Context, code string, accountID uuid.UUID) (int, error) {
	code = NormalizeCode(code)
	c, err := e.store.GetCoupon(ctx, code)
	if err != nil {
		return 0, err
	}
	if c.Kind != KindDiscount {
		return 0, ErrNotDiscount
	}
	if _, err := e.store.FindRedemption(ctx, code, accountID); err != nil {
		return 0, err
	}
	return c.DiscountPercent, nil
}
