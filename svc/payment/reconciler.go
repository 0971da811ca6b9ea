package payment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

// Lifecycle assigns plans. Implemented by subscription.Service.
type Lifecycle interface {
	Catalog() *plan.Catalog
	AssignPaidPlan(ctx context.Context, a subscription.Assignment) (*subscription.Transition, error)
}

// Discounts resolves redeemed discount coupons at checkout.
type Discounts interface {
	DiscountFor(ctx context.Context, code string, accountID uuid.UUID) (int, error)
}

type Reconciler struct {
	tx        txn.Transactor
	store     Store
	subs      Lifecycle
	gateway   Gateway
	discounts Discounts
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Reconciler)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithDiscounts(d Discounts) Option {
	return func(r *Reconciler) { r.discounts = d }
}

// NewReconciler wires the reconciler. A nil gateway is allowed: every
// gateway-facing call then returns ErrNotConfigured.
func NewReconciler(tx txn.Transactor, store Store, subs Lifecycle, gateway Gateway, cfg Config, opts ...Option) *Reconciler {
	r := &Reconciler{
		tx:      tx,
		store:   store,
		subs:    subs,
		gateway: gateway,
		cfg:     cfg,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.ConfirmTimeout <= 0 {
		r.cfg.ConfirmTimeout = 5 * time.Second
	}
	r.log = r.log.With(logger.Component("payment"))
	return r
}

func (r *Reconciler) Configured() bool {
	return r.gateway != nil
}

// Checkout records an order for a paid plan and opens a gateway session.
func (r *Reconciler) Checkout(ctx context.Context, accountID uuid.UUID, planID, couponCode string) (*CheckoutSession, error) {
	if r.gateway == nil {
		return nil, ErrNotConfigured
	}
	p, err := r.subs.Catalog().Get(planID)
	if err != nil {
		return nil, err
	}
	if p.IsFree() {
		return nil, ErrNotPurchasable
	}

	order := &Order{
		ID:         uuid.New(),
		AccountID:  accountID,
		PlanID:     p.ID,
		CouponCode: couponCode,
		Provider:   r.gateway.Name(),
		CreatedAt:  r.now().UTC(),
	}
	if couponCode != "" && r.discounts != nil {
		if order.DiscountPercent, err = r.discounts.DiscountFor(ctx, couponCode, accountID); err != nil {
			return nil, err
		}
	}
	if err := r.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	sess, err := r.gateway.Checkout(ctx, CheckoutRequest{
		Order:      *order,
		Plan:       p,
		SuccessURL: r.cfg.SuccessURL,
		CancelURL:  r.cfg.CancelURL,
	})
	if err != nil {
		r.log.ErrorContext(ctx, "checkout failed", logger.OrderID(order.ID), logger.AccountID(accountID), logger.Error(err))
		return nil, err
	}
	r.log.InfoContext(ctx, "checkout started", logger.OrderID(order.ID), logger.AccountID(accountID), logger.PlanID(p.ID))
	return sess, nil
}

// HandleCallback authenticates an inbound gateway notification and reconciles it.
func (r *Reconciler) HandleCallback(ctx context.Context, req *http.Request) (*Result, error) {
	if r.gateway == nil {
		return nil, ErrNotConfigured
	}
	cb, err := r.gateway.ParseCallback(req)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, cb)
}

// ConfirmRedirect checks a payment synchronously from the client's return URL.
// A slow or unreachable gateway yields StatePending: the webhook may still
// complete the transition.
func (r *Reconciler) ConfirmRedirect(ctx context.Context, externalRef string) (*Result, error) {
	if r.gateway == nil {
		return nil, ErrNotConfigured
	}
	if externalRef == "" {
		return nil, ErrMissingReference
	}

	prior, err := r.store.FindEvent(ctx, externalRef)
	switch {
	case err == nil && prior.Outcome == OutcomeSuccess:
		return resultOf(prior, true), nil
	case err != nil && !errors.Is(err, ErrEventNotFound):
		return nil, err
	}

	confirmCtx, cancel := context.WithTimeout(ctx, r.cfg.ConfirmTimeout)
	defer cancel()
	cb, err := r.gateway.Confirm(confirmCtx, externalRef)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, apperr.ErrUpstreamUnavailable) {
			r.log.WarnContext(ctx, "payment confirmation pending", logger.ExternalRef(externalRef), logger.Error(err))
			return &Result{State: StatePending, ExternalRef: externalRef}, nil
		}
		return nil, err
	}
	if cb.ExternalRef == "" {
		cb.ExternalRef = externalRef
	}
	if !cb.Success {
		// Not paid yet is not a failure from the redirect's point of view.
		return &Result{State: StatePending, ExternalRef: externalRef}, nil
	}
	return r.Reconcile(ctx, cb)
}

// Reconcile applies cb exactly once per external reference.
func (r *Reconciler) Reconcile(ctx context.Context, cb Callback) (*Result, error) {
	if cb.ExternalRef == "" {
		return nil, ErrMissingReference
	}

	var out *Result
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		prior, err := r.store.FindEvent(ctx, cb.ExternalRef)
		switch {
		case err == nil:
			if prior.Outcome == OutcomeSuccess || !cb.Success {
				out = resultOf(prior, true)
				return nil
			}
		case errors.Is(err, ErrEventNotFound):
			prior = nil
		default:
			// Unable to tell whether the reference was seen. Fail so the provider retries.
			return err
		}

		now := r.now().UTC()
		ev := &Event{
			ID:          uuid.New(),
			ExternalRef: cb.ExternalRef,
			Provider:    r.providerName(),
			Outcome:     OutcomeFailure,
			State:       StateFailed,
			RawStatus:   cb.RawStatus,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		order, err := r.order(ctx, cb.OrderRef)
		if err != nil {
			return err
		}
		if order != nil {
			ev.OrderID, ev.AccountID, ev.PlanID = order.ID, order.AccountID, order.PlanID
		}
		if cb.Success && order != nil {
			ev.Outcome, ev.State = OutcomeSuccess, StateApplied
		}

		claimed, err := r.claim(ctx, prior, ev)
		if err != nil {
			return err
		}
		if !claimed {
			winner, err := r.store.FindEvent(ctx, cb.ExternalRef)
			if err != nil {
				return err
			}
			out = resultOf(winner, true)
			return nil
		}
		if ev.Outcome != OutcomeSuccess {
			out = resultOf(ev, false)
			return nil
		}

		t, err := r.subs.AssignPaidPlan(ctx, subscription.Assignment{
			AccountID:   order.AccountID,
			PlanID:      order.PlanID,
			Source:      "payment",
			ProviderRef: cb.ProviderRef,
		})
		switch {
		case err == nil:
			if t.Event == subscription.EventRenew {
				ev.State = StateRenewed
				if err := r.store.SetEventState(ctx, ev.ExternalRef, ev.State); err != nil {
					return err
				}
			}
		case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConflict):
			// Paid but not applicable, e.g. a downgrade. Recorded for support, not retried.
			r.log.WarnContext(ctx, "payment rejected by lifecycle",
				logger.ExternalRef(ev.ExternalRef), logger.AccountID(order.AccountID), logger.Error(err))
			ev.State = StateRejected
			if err := r.store.SetEventState(ctx, ev.ExternalRef, ev.State); err != nil {
				return err
			}
		default:
			return err
		}
		out = resultOf(ev, false)
		return nil
	})
	if err != nil {
		r.log.ErrorContext(ctx, "payment callback failed", logger.ExternalRef(cb.ExternalRef), logger.Error(err))
		return nil, err
	}

	r.log.InfoContext(ctx, "payment callback reconciled",
		logger.ExternalRef(out.ExternalRef),
		logger.AccountID(out.AccountID),
		logger.Status(string(out.State)),
		slog.Bool("duplicate", out.Duplicate),
		slog.String("raw_status", cb.RawStatus),
	)
	return out, nil
}

// claim inserts ev, or promotes a stored failure. False means a concurrent
// delivery got there first.
func (r *Reconciler) claim(ctx context.Context, prior, ev *Event) (bool, error) {
	if prior == nil {
		return r.store.InsertEvent(ctx, ev)
	}
	ev.ID, ev.CreatedAt = prior.ID, prior.CreatedAt
	return r.store.PromoteEvent(ctx, ev)
}

// order resolves the server-held checkout context. Unknown or malformed
// references yield nil so the event is recorded as failed.
func (r *Reconciler) order(ctx context.Context, ref string) (*Order, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, nil
	}
	o, err := r.store.GetOrder(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		r.log.WarnContext(ctx, "callback references unknown order", logger.OrderID(id))
		return nil, nil
	}
	return o, err
}

func (r *Reconciler) providerName() string {
	if r.gateway == nil {
		return ""
	}
	return r.gateway.Name()
}

// CancelUpstream stops renewals at the gateway. Errors are logged and
// swallowed: local cancellation never depends on the provider.
func (r *Reconciler) CancelUpstream(ctx context.Context, providerRef string) {
	if r.gateway == nil || providerRef == "" {
		return
	}
	if err := r.gateway.CancelSubscription(ctx, providerRef); err != nil {
		r.log.WarnContext(ctx, "gateway cancel failed", slog.String("provider_ref", providerRef), logger.Error(err))
		return
	}
	r.log.InfoContext(ctx, "gateway subscription canceled", slog.String("provider_ref", providerRef))
}
