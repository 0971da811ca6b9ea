package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/entitlekit/pkg/webhook"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

const secret = "gateway-secret"

func newGateway(t *testing.T, baseURL string) *payment.HTTPGateway {
	t.Helper()
	g, err := payment.NewHTTPGateway(payment.GatewayConfig{
		BaseURL:         baseURL,
		Secret:          secret,
		SuccessStatus:   3,
		SignatureMaxAge: time.Minute,
		RequestTimeout:  time.Second,
	})
	require.NoError(t, err)
	return g
}

func TestNewHTTPGateway(t *testing.T) {
	t.Parallel()

	_, err := payment.NewHTTPGateway(payment.GatewayConfig{BaseURL: "https://pay.example.com"})
	require.ErrorIs(t, err, payment.ErrNotConfigured)

	_, err = payment.NewHTTPGateway(payment.GatewayConfig{BaseURL: "not a url", Secret: "s"})
	require.ErrorIs(t, err, payment.ErrNotConfigured)
}

func TestHTTPGatewayParseCallback(t *testing.T) {
	t.Parallel()
	g := newGateway(t, "https://pay.example.com")

	post := func(t *testing.T, status any) payment.Callback {
		t.Helper()
		req, err := payment.SignedCallback(secret, "https://app.example.com/payments/callback", map[string]any{
			"transaction_id":  "tx-9",
			"order_id":        "order-9",
			"status":          status,
			"subscription_id": "sub-9",
		})
		require.NoError(t, err)
		cb, err := g.ParseCallback(req)
		require.NoError(t, err)
		return cb
	}

	tests := []struct {
		name    string
		status  any
		raw     string
		success bool
	}{
		{"numeric success", 3, "3", true},
		{"string success", "3", "3", true},
		{"declined", 5, "5", false},
		{"missing status", nil, "", false},
		{"garbled status", "paid", "paid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cb := post(t, tt.status)
			assert.Equal(t, tt.success, cb.Success)
			assert.Equal(t, tt.raw, cb.RawStatus)
			assert.Equal(t, "tx-9", cb.ExternalRef)
			assert.Equal(t, "order-9", cb.OrderRef)
			assert.Equal(t, "sub-9", cb.ProviderRef)
		})
	}

	t.Run("bad signature", func(t *testing.T) {
		t.Parallel()
		req, err := payment.SignedCallback("other-secret", "https://app.example.com/payments/callback", map[string]any{"transaction_id": "tx"})
		require.NoError(t, err)
		_, err = g.ParseCallback(req)
		require.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("unsigned", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/payments/callback", nil)
		_, err := g.ParseCallback(req)
		require.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("redirect with token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/payments/callback?transaction=tx-1&order=o-1&status=3&token="+secret, nil)
		cb, err := g.ParseCallback(req)
		require.NoError(t, err)
		assert.True(t, cb.Success)
		assert.Equal(t, "tx-1", cb.ExternalRef)
	})

	t.Run("redirect with wrong token", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/payments/callback?transaction=tx-1&status=3&token=guess", nil)
		_, err := g.ParseCallback(req)
		require.ErrorIs(t, err, payment.ErrInvalidToken)
	})
}

func TestHTTPGatewayCalls(t *testing.T) {
	t.Parallel()

	var canceled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+secret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/transactions/tx-ok":
			_ = json.NewEncoder(w).Encode(map[string]any{"transaction_id": "tx-ok", "order_id": "o-1", "status": 3})
		case r.Method == http.MethodGet && r.URL.Path == "/transactions/tx-open":
			_ = json.NewEncoder(w).Encode(map[string]any{"order_id": "o-2", "status": 1})
		case r.Method == http.MethodPost && r.URL.Path == "/checkout":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"url":            "https://pay.example.com/c/" + body["order_id"].(string),
				"transaction_id": "tx-new",
			})
		case r.Method == http.MethodPost && r.URL.Path == "/subscriptions/sub-1/cancel":
			canceled.Store(true)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	g := newGateway(t, srv.URL)
	ctx := context.Background()

	cb, err := g.Confirm(ctx, "tx-ok")
	require.NoError(t, err)
	assert.True(t, cb.Success)
	assert.Equal(t, "o-1", cb.OrderRef)

	cb, err = g.Confirm(ctx, "tx-open")
	require.NoError(t, err)
	assert.False(t, cb.Success)
	assert.Equal(t, "tx-open", cb.ExternalRef)

	_, err = g.Confirm(ctx, "tx-missing")
	require.ErrorIs(t, err, payment.ErrGateway)

	order := payment.Order{ID: uuid.New(), PlanID: "basic_monthly"}
	sess, err := g.Checkout(ctx, payment.CheckoutRequest{
		Order: order,
		Plan:  plan.Plan{ID: "basic_monthly", Price: plan.Money{Amount: 900, Currency: "USD"}},
	})
	require.NoError(t, err)
	assert.Equal(t, order.ID, sess.OrderID)
	assert.Equal(t, "https://pay.example.com/c/"+order.ID.String(), sess.URL)
	assert.Equal(t, "tx-new", sess.ExternalRef)

	require.NoError(t, g.CancelSubscription(ctx, "sub-1"))
	assert.True(t, canceled.Load())
}

func TestCheckoutRequestAmount(t *testing.T) {
	t.Parallel()
	p := plan.Plan{Price: plan.Money{Amount: 2900, Currency: "USD"}}

	tests := []struct {
		discount int
		want     int64
	}{
		{0, 2900},
		{10, 2610},
		{33, 1943},
		{100, 0},
	}
	for _, tt := range tests {
		req := payment.CheckoutRequest{Order: payment.Order{DiscountPercent: tt.discount}, Plan: p}
		assert.Equal(t, tt.want, req.Amount(), "discount %d", tt.discount)
	}
}
