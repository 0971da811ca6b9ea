package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	// PriceIDs maps catalog plan ids to Paddle price ids.
	PriceIDs map[string]string `env:"PADDLE_PRICE_IDS" envSeparator:"," envKeyValSeparator:":"`
}

// PaddleGateway uses Paddle Billing transactions. The order id travels in
// custom_data.order_id.
type PaddleGateway struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	cfg      PaddleConfig
}

func NewPaddleGateway(cfg PaddleConfig) (*PaddleGateway, error) {
	if cfg.APIKey == "" || cfg.WebhookSecret == "" {
		return nil, ErrNotConfigured
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: invalid paddle environment %q", ErrNotConfigured, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleGateway{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
		cfg:      cfg,
	}, nil
}

func (g *PaddleGateway) Name() string { return ProviderPaddle }

func (g *PaddleGateway) ParseCallback(r *http.Request) (Callback, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return Callback{}, errors.Join(ErrInvalidCallback, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(payload))

	valid, err := g.verifier.Verify(r)
	if err != nil || !valid {
		return Callback{}, errors.Join(ErrInvalidToken, err)
	}

	var event struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return Callback{}, errors.Join(ErrInvalidCallback, err)
	}

	switch event.EventType {
	case "transaction.completed", "transaction.paid", "transaction.payment_failed":
	default:
		return Callback{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.EventType)
	}

	cb := Callback{}
	cb.ExternalRef, _ = event.Data["id"].(string)
	cb.RawStatus, _ = event.Data["status"].(string)
	cb.ProviderRef, _ = event.Data["subscription_id"].(string)
	if custom, ok := event.Data["custom_data"].(map[string]any); ok {
		cb.OrderRef, _ = custom["order_id"].(string)
	}
	cb.Success = paddleSuccess(cb.RawStatus)
	return cb, nil
}

func (g *PaddleGateway) Confirm(ctx context.Context, externalRef string) (Callback, error) {
	txn, err := g.client.TransactionsClient.GetTransaction(ctx, &paddle.GetTransactionRequest{TransactionID: externalRef})
	if err != nil {
		return Callback{}, errors.Join(ErrGateway, err)
	}
	cb := Callback{ExternalRef: txn.ID, RawStatus: string(txn.Status)}
	cb.Success = paddleSuccess(cb.RawStatus)
	if txn.SubscriptionID != nil {
		cb.ProviderRef = *txn.SubscriptionID
	}
	if v, ok := txn.CustomData["order_id"].(string); ok {
		cb.OrderRef = v
	}
	return cb, nil
}

func (g *PaddleGateway) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	priceID := g.cfg.PriceIDs[req.Plan.ID]
	if priceID == "" {
		return nil, fmt.Errorf("%w: no paddle price for plan %s", ErrNotPurchasable, req.Plan.ID)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})
	txReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"order_id":   req.Order.ID.String(),
			"account_id": req.Order.AccountID.String(),
		},
	}
	if req.SuccessURL != "" {
		txReq.Checkout = &paddle.TransactionCheckout{URL: paddle.PtrTo(req.SuccessURL)}
	}

	txn, err := g.client.TransactionsClient.CreateTransaction(ctx, txReq)
	if err != nil {
		return nil, errors.Join(ErrGateway, err)
	}
	if txn.Checkout == nil || txn.Checkout.URL == nil {
		return nil, fmt.Errorf("%w: no checkout URL returned from paddle", ErrGateway)
	}
	return &CheckoutSession{OrderID: req.Order.ID, URL: *txn.Checkout.URL, ExternalRef: txn.ID}, nil
}

func (g *PaddleGateway) CancelSubscription(ctx context.Context, providerRef string) error {
	_, err := g.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: providerRef,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return errors.Join(ErrGateway, err)
	}
	return nil
}

func paddleSuccess(status string) bool {
	return status == string(paddle.TransactionStatusCompleted) || status == string(paddle.TransactionStatusPaid)
}
