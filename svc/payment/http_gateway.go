package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/retry"
	"github.com/dmitrymomot/entitlekit/pkg/webhook"
)

// GatewayConfig configures HTTPGateway. SuccessStatus is the single status
// code the provider documents as a confirmed payment.
type GatewayConfig struct {
	BaseURL         string        `env:"PAYMENT_GATEWAY_BASE_URL"`
	Secret          string        `env:"PAYMENT_GATEWAY_SECRET"`
	SuccessStatus   int           `env:"PAYMENT_GATEWAY_SUCCESS_STATUS" envDefault:"3"`
	SignatureMaxAge time.Duration `env:"PAYMENT_GATEWAY_SIGNATURE_MAX_AGE" envDefault:"5m"`
	RequestTimeout  time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"5s"`
}

func (c GatewayConfig) Configured() bool {
	return c.BaseURL != "" && c.Secret != ""
}

const maxCallbackBody = 64 << 10

// HTTPGateway talks to a provider that reports payments with a numeric
// status code. POST callbacks are JSON signed with pkg/webhook headers; GET
// redirects carry the shared secret as the token parameter.
type HTTPGateway struct {
	cfg     GatewayConfig
	base    *url.URL
	sender  *webhook.Sender
	breaker *webhook.CircuitBreaker
	log     *slog.Logger
}

type GatewayOption func(*HTTPGateway)

func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *HTTPGateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithHTTPClient replaces the outbound client, mostly for tests.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *HTTPGateway) { g.sender = webhook.NewSenderWithClient(c) }
}

func NewHTTPGateway(cfg GatewayConfig, opts ...GatewayOption) (*HTTPGateway, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid base URL", ErrNotConfigured)
	}
	g := &HTTPGateway{
		cfg:     cfg,
		base:    base,
		sender:  webhook.NewSender(),
		breaker: webhook.NewCircuitBreaker(5, 2, 30*time.Second),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("payment.http"))
	return g, nil
}

func (g *HTTPGateway) Name() string { return ProviderHTTP }

// gatewayMessage is the provider's transaction shape in callbacks and lookups.
type gatewayMessage struct {
	TransactionID  string          `json:"transaction_id"`
	OrderID        string          `json:"order_id"`
	Status         json.RawMessage `json:"status"`
	SubscriptionID string          `json:"subscription_id"`
}

func (g *HTTPGateway) ParseCallback(r *http.Request) (Callback, error) {
	if r.Method == http.MethodGet {
		return g.parseRedirect(r)
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return Callback{}, errors.Join(ErrInvalidCallback, err)
	}
	sig, err := webhook.FromHeader(r.Header)
	if err != nil {
		return Callback{}, err
	}
	if err := webhook.Verify(g.cfg.Secret, payload, sig, g.cfg.SignatureMaxAge); err != nil {
		return Callback{}, err
	}

	var msg gatewayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Callback{}, errors.Join(ErrInvalidCallback, err)
	}
	return g.callback(msg), nil
}

func (g *HTTPGateway) parseRedirect(r *http.Request) (Callback, error) {
	q := r.URL.Query()
	if !hmac.Equal([]byte(q.Get("token")), []byte(g.cfg.Secret)) {
		return Callback{}, ErrInvalidToken
	}
	cb := Callback{
		ExternalRef: q.Get("transaction"),
		OrderRef:    q.Get("order"),
		ProviderRef: q.Get("subscription"),
		RawStatus:   q.Get("status"),
	}
	cb.Success = g.isSuccess(cb.RawStatus)
	return cb, nil
}

func (g *HTTPGateway) callback(msg gatewayMessage) Callback {
	raw := strings.Trim(strings.TrimSpace(string(msg.Status)), `"`)
	if raw == "null" {
		raw = ""
	}
	return Callback{
		ExternalRef: msg.TransactionID,
		OrderRef:    msg.OrderID,
		ProviderRef: msg.SubscriptionID,
		RawStatus:   raw,
		Success:     g.isSuccess(raw),
	}
}

// isSuccess accepts only the configured code. Missing or garbled values are not success.
func (g *HTTPGateway) isSuccess(raw string) bool {
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	return err == nil && code == g.cfg.SuccessStatus
}

func (g *HTTPGateway) Confirm(ctx context.Context, externalRef string) (Callback, error) {
	var msg gatewayMessage
	endpoint := g.endpoint("transactions", externalRef)
	if err := g.sender.Call(ctx, http.MethodGet, endpoint, nil, &msg, g.callOptions()...); err != nil {
		return Callback{}, errors.Join(ErrGateway, err)
	}
	if msg.TransactionID == "" {
		msg.TransactionID = externalRef
	}
	return g.callback(msg), nil
}

type checkoutPayload struct {
	OrderID    string `json:"order_id"`
	PlanID     string `json:"plan_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type checkoutResponse struct {
	URL           string `json:"url"`
	TransactionID string `json:"transaction_id"`
}

func (g *HTTPGateway) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	body := checkoutPayload{
		OrderID:    req.Order.ID.String(),
		PlanID:     req.Plan.ID,
		Amount:     req.Amount(),
		Currency:   req.Plan.Price.Currency,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	}
	var resp checkoutResponse
	if err := g.sender.Call(ctx, http.MethodPost, g.endpoint("checkout"), body, &resp, g.callOptions()...); err != nil {
		return nil, errors.Join(ErrGateway, err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: no checkout URL returned", ErrGateway)
	}
	return &CheckoutSession{OrderID: req.Order.ID, URL: resp.URL, ExternalRef: resp.TransactionID}, nil
}

func (g *HTTPGateway) CancelSubscription(ctx context.Context, providerRef string) error {
	endpoint := g.endpoint("subscriptions", providerRef, "cancel")
	if err := g.sender.Call(ctx, http.MethodPost, endpoint, struct{}{}, nil, g.callOptions()...); err != nil {
		return errors.Join(ErrGateway, err)
	}
	return nil
}

func (g *HTTPGateway) endpoint(parts ...string) string {
	return g.base.JoinPath(parts...).String()
}

func (g *HTTPGateway) callOptions() []webhook.Option {
	return []webhook.Option{
		webhook.WithHeader("Authorization", "Bearer "+g.cfg.Secret),
		webhook.WithTimeout(g.cfg.RequestTimeout),
		webhook.WithAttempts(3),
		webhook.WithBackoff(retry.ExponentialBackoff{
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			JitterFactor:    0.1,
		}),
		webhook.WithCircuitBreaker(g.breaker),
		webhook.WithSignature(g.cfg.Secret),
		webhook.WithObserver(func(a webhook.Attempt) {
			if a.Err != nil {
				g.log.Warn("gateway request attempt failed",
					slog.Int("attempt", a.Number),
					slog.Int("status_code", a.StatusCode),
					logger.Duration(a.Duration),
					logger.Error(a.Err),
				)
			}
		}),
	}
}

// SignedCallback builds a POST callback body the way the provider does.
// Used by tests and local tooling.
func SignedCallback(secret, endpoint string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	sig, err := webhook.Sign(secret, payload, time.Now())
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	sig.Apply(req.Header)
	return req, nil
}
