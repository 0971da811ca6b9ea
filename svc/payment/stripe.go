package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	stripesubscription "github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
}

// StripeGateway uses hosted Checkout Sessions in subscription mode. The order
// id travels as ClientReferenceID.
type StripeGateway struct {
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" || cfg.WebhookSecret == "" {
		return nil, ErrNotConfigured
	}
	stripe.Key = strings.TrimSpace(cfg.SecretKey)
	return &StripeGateway{cfg: cfg}, nil
}

func (g *StripeGateway) Name() string { return ProviderStripe }

func (g *StripeGateway) ParseCallback(r *http.Request) (Callback, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return Callback{}, errors.Join(ErrInvalidCallback, err)
	}
	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), g.cfg.WebhookSecret)
	if err != nil {
		return Callback{}, errors.Join(ErrInvalidToken, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.async_payment_failed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return Callback{}, errors.Join(ErrInvalidCallback, err)
		}
		return stripeCallback(&sess), nil
	default:
		return Callback{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Type)
	}
}

func (g *StripeGateway) Confirm(ctx context.Context, externalRef string) (Callback, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(externalRef, params)
	if err != nil {
		return Callback{}, errors.Join(ErrGateway, err)
	}
	return stripeCallback(sess), nil
}

func (g *StripeGateway) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	interval := string(stripe.PriceRecurringIntervalMonth)
	if req.Plan.Interval == plan.IntervalAnnual {
		interval = string(stripe.PriceRecurringIntervalYear)
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.Order.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Plan.Price.Currency)),
					UnitAmount: stripe.Int64(req.Amount()),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Plan.Name),
					},
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"order_id":   req.Order.ID.String(),
			"account_id": req.Order.AccountID.String(),
			"plan_id":    req.Plan.ID,
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, fmt.Errorf("%w: %s: %s", ErrGateway, stripeErr.Code, stripeErr.Msg)
		}
		return nil, errors.Join(ErrGateway, err)
	}
	return &CheckoutSession{OrderID: req.Order.ID, URL: sess.URL, ExternalRef: sess.ID}, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, providerRef string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := stripesubscription.Cancel(providerRef, params); err != nil {
		return errors.Join(ErrGateway, err)
	}
	return nil
}

func stripeCallback(sess *stripe.CheckoutSession) Callback {
	cb := Callback{
		ExternalRef: sess.ID,
		OrderRef:    sess.ClientReferenceID,
		RawStatus:   string(sess.PaymentStatus),
		Success:     sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if sess.Subscription != nil {
		cb.ProviderRef = sess.Subscription.ID
	}
	return cb
}
