package payment

import (
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// State is the reconciled result of a callback.
type State string

const (
	StateApplied  State = "applied"
	StateRenewed  State = "renewed"
	StateFailed   State = "failed"
	StateRejected State = "rejected"
	StatePending  State = "pending"
)

// Order is the checkout context held server-side.
type Order struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	PlanID          string    `json:"plan_id"`
	CouponCode      string    `json:"coupon_code,omitempty"`
	DiscountPercent int       `json:"discount_percent,omitempty"`
	Provider        string    `json:"provider"`
	CreatedAt       time.Time `json:"created_at"`
}

// Event is the idempotency record of one external reference.
type Event struct {
	ID          uuid.UUID
	ExternalRef string
	Provider    string
	// OrderID and AccountID are nil when the callback named an unknown order.
	OrderID   uuid.UUID
	AccountID uuid.UUID
	PlanID    string
	Outcome   Outcome
	State     State
	RawStatus string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Callback is a gateway notification after authenticity checks.
type Callback struct {
	ExternalRef string
	OrderRef    string
	Success     bool
	RawStatus   string
	// ProviderRef is the gateway's recurring subscription id, if any.
	ProviderRef string
}

// Result is returned to whoever delivered the callback.
type Result struct {
	State       State     `json:"state"`
	ExternalRef string    `json:"external_ref"`
	AccountID   uuid.UUID `json:"account_id,omitempty"`
	PlanID      string    `json:"plan_id,omitempty"`
	Duplicate   bool      `json:"duplicate"`
}

func resultOf(e *Event, duplicate bool) *Result {
	return &Result{
		State:       e.State,
		ExternalRef: e.ExternalRef,
		AccountID:   e.AccountID,
		PlanID:      e.PlanID,
		Duplicate:   duplicate,
	}
}

// CheckoutSession is where the client is sent to pay.
type CheckoutSession struct {
	OrderID     uuid.UUID `json:"order_id"`
	URL         string    `json:"url"`
	ExternalRef string    `json:"external_ref,omitempty"`
}
