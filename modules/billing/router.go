package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/handler"
	"github.com/dmitrymomot/entitlekit/pkg/jwt"
	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/ratelimiter"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/entitlement"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

// Subscriptions is implemented by subscription.Service.
type Subscriptions interface {
	Current(ctx context.Context, accountID uuid.UUID) (*subscription.Subscription, error)
	Cancel(ctx context.Context, accountID uuid.UUID) (*subscription.Transition, error)
	Pause(ctx context.Context, accountID uuid.UUID) (*subscription.Transition, error)
	Resume(ctx context.Context, accountID uuid.UUID) (*subscription.Transition, error)
}

// Entitlements is implemented by entitlement.Service.
type Entitlements interface {
	State(ctx context.Context, accountID uuid.UUID) (*entitlement.State, error)
	CheckAndRecordOperation(ctx context.Context, accountID uuid.UUID, artifactID string) (entitlement.Decision, error)
	CheckAndRecordMinutes(ctx context.Context, accountID uuid.UUID, artifactID string, minutes int64) (entitlement.Decision, error)
	CheckArtifact(ctx context.Context, accountID uuid.UUID, seconds, bytes int64) (entitlement.Decision, error)
	HasFeature(ctx context.Context, accountID uuid.UUID, f plan.Feature) (entitlement.Decision, error)
}

// Payments is implemented by payment.Reconciler.
type Payments interface {
	Checkout(ctx context.Context, accountID uuid.UUID, planID, couponCode string) (*payment.CheckoutSession, error)
	HandleCallback(ctx context.Context, req *http.Request) (*payment.Result, error)
	ConfirmRedirect(ctx context.Context, externalRef string) (*payment.Result, error)
	CancelUpstream(ctx context.Context, providerRef string)
}

// Coupons is implemented by coupon.Engine.
type Coupons interface {
	Redeem(ctx context.Context, code string, accountID uuid.UUID) (*coupon.Result, error)
}

// Accounts is implemented by account.Service.
type Accounts interface {
	Create(ctx context.Context, a account.Account) (*account.Account, error)
	SelectCategories(ctx context.Context, id uuid.UUID, categories []string) (*account.Account, error)
}

// Sweeper is implemented by sweeper.Sweeper.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Options wires the module. Sweeper and RedeemLimiter are optional.
type Options struct {
	Config        Config
	Tokens        *jwt.Service
	Subscriptions Subscriptions
	Entitlements  Entitlements
	Payments      Payments
	Coupons       Coupons
	Accounts      Accounts
	Sweeper       Sweeper
	// RedeemLimiter throttles coupon redemption per account.
	RedeemLimiter *ratelimiter.Bucket
	// UpstreamTimeout bounds the gateway cancel call. Defaults to 5s.
	UpstreamTimeout time.Duration
	Logger          *slog.Logger
}

type module struct {
	Options
	log     *slog.Logger
	onError handler.ErrorHandler
}

// Router builds the billing routes.
func Router(opts Options) chi.Router {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.UpstreamTimeout <= 0 {
		opts.UpstreamTimeout = 5 * time.Second
	}
	m := &module{Options: opts, log: opts.Logger.With(logger.Component("billing"))}
	m.onError = handler.NewErrorHandler(m.log)

	r := chi.NewRouter()

	r.Post("/subscription", wrap(m, m.changeSubscription, handler.OptionalJSONBody()))
	r.Route("/payments", func(r chi.Router) {
		r.Get("/callback", wrap(m, m.callback))
		r.Post("/callback", wrap(m, m.callback))
		r.Get("/return", wrap(m, m.confirmReturn))
	})

	r.Group(func(r chi.Router) {
		r.Use(jwt.Middleware(m.Tokens, m.onError))

		r.Get("/subscription", wrap(m, m.subscriptionStatus))
		r.Post("/checkout", wrap(m, m.checkout, handler.JSONBody()))

		redeem := wrap(m, m.redeemCoupon, handler.JSONBody())
		if m.RedeemLimiter != nil {
			r.With(ratelimiter.Middleware(m.RedeemLimiter, accountKey, m.onError)).Post("/coupons/redeem", redeem)
		} else {
			r.Post("/coupons/redeem", redeem)
		}

		r.Route("/usage", func(r chi.Router) {
			r.Post("/operations", wrap(m, m.recordOperation, handler.OptionalJSONBody()))
			r.Post("/minutes", wrap(m, m.recordMinutes, handler.JSONBody()))
			r.Post("/artifacts/check", wrap(m, m.checkArtifact, handler.JSONBody()))
		})
		r.Get("/features/{flag}", wrap(m, m.hasFeature))
		r.Put("/account/categories", wrap(m, m.selectCategories, handler.JSONBody()))

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireRole(account.RoleAdmin, m.onError))
			r.Post("/accounts", wrap(m, m.createAccount, handler.JSONBody()))
			r.Post("/subscriptions/{accountId}", wrap(m, m.adminSubscription, handler.JSONBody()))
		})
	})

	return r
}

type noRequest struct{}

func wrap[R any](m *module, h handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(h, handler.WithBinders(binders...), handler.WithErrorHandler(m.onError))
}
