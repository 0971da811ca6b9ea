package payment

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

// Gateway is one payment provider.
type Gateway interface {
	Name() string
	// ParseCallback authenticates and decodes an inbound notification.
	// Event types the reconciler does not act on yield ErrIgnoredEvent.
	ParseCallback(r *http.Request) (Callback, error)
	// Confirm asks the provider for the current status of externalRef.
	Confirm(ctx context.Context, externalRef string) (Callback, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// CancelSubscription stops future renewals at the provider.
	CancelSubscription(ctx context.Context, providerRef string) error
}

type CheckoutRequest struct {
	Order      Order
	Plan       plan.Plan
	SuccessURL string
	CancelURL  string
}

// Amount is the plan price after the order's discount.
func (r CheckoutRequest) Amount() int64 {
	amount := r.Plan.Price.Amount
	if d := r.Order.DiscountPercent; d > 0 {
		amount -= amount * int64(d) / 100
	}
	return amount
}

const (
	ProviderHTTP   = "http"
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"
)

// Config selects and tunes the active gateway.
type Config struct {
	Provider       string        `env:"PAYMENT_PROVIDER" envDefault:"http"`
	ConfirmTimeout time.Duration `env:"PAYMENT_CONFIRM_TIMEOUT" envDefault:"5s"`
	SuccessURL     string        `env:"PAYMENT_SUCCESS_URL"`
	CancelURL      string        `env:"PAYMENT_CANCEL_URL"`
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Provider) {
	case ProviderHTTP, ProviderStripe, ProviderPaddle:
		return nil
	}
	return ErrUnknownProvider
}

// NewGateway builds the configured gateway. Missing credentials yield
// ErrNotConfigured so the caller can keep serving everything else.
func NewGateway(cfg Config, httpCfg GatewayConfig, stripeCfg StripeConfig, paddleCfg PaddleConfig, log *slog.Logger) (Gateway, error) {
	// Each branch returns a nil interface on error, never a typed nil pointer.
	switch strings.ToLower(cfg.Provider) {
	case ProviderHTTP:
		g, err := NewHTTPGateway(httpCfg, WithGatewayLogger(log))
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderStripe:
		g, err := NewStripeGateway(stripeCfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderPaddle:
		g, err := NewPaddleGateway(paddleCfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, ErrUnknownProvider
	}
}
