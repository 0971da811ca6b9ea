// Package usage is the append-only ledger of billable events.
//
// Events are never updated or deleted. Consumption for a period is always
// computed by Aggregate over [start, end), never cached. Recording is
// idempotent per (account, kind, artifact): replaying the same completed
// operation does not count twice.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

type Kind string

const (
	KindOperation      Kind = "operation"
	KindMeteredMinutes Kind = "metered_minutes"
)

var ErrInvalidEvent = apperr.New(apperr.ErrValidation, "invalid_usage_event", "invalid usage event")

// Event is one billable fact.
type Event struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Kind       Kind
	Quantity   int64
	ArtifactID string
	OccurredAt time.Time
}

func (e Event) Validate() error {
	switch {
	case e.AccountID == uuid.Nil:
		return fmt.Errorf("%w: account is required", ErrInvalidEvent)
	case e.Kind != KindOperation && e.Kind != KindMeteredMinutes:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	case e.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidEvent)
	case len(e.ArtifactID) > 200:
		return fmt.Errorf("%w: artifact id is too long", ErrInvalidEvent)
	}
	return nil
}

// Snapshot is the consumption of one period.
type Snapshot struct {
	OperationCount int64 `json:"operation_count"`
	MeteredMinutes int64 `json:"metered_minutes"`
}

// Store persists events.
type Store interface {
	// AppendUsage inserts e. When e.ArtifactID is set and an event with the
	// same account, kind and artifact exists, nothing is written and
	// inserted is false.
	AppendUsage(ctx context.Context, e Event) (inserted bool, err error)
	// AggregateUsage sums events with start <= occurred_at < end.
	AggregateUsage(ctx context.Context, accountID uuid.UUID, start, end time.Time) (Snapshot, error)
	// UsageRecorded reports whether an event for the artifact exists.
	UsageRecorded(ctx context.Context, accountID uuid.UUID, kind Kind, artifactID string) (bool, error)
}

// Ledger validates and stamps events before they reach the Store.
type Ledger struct {
	store Store
	now   func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends e and reports whether it was new.
func (l *Ledger) Record(ctx context.Context, e Event) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = l.now().UTC()
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	return l.store.AppendUsage(ctx, e)
}

// Recorded reports whether artifactID was already billed as kind. Empty ids are never recorded.
func (l *Ledger) Recorded(ctx context.Context, accountID uuid.UUID, kind Kind, artifactID string) (bool, error) {
	if artifactID == "" {
		return false, nil
	}
	return l.store.UsageRecorded(ctx, accountID, kind, artifactID)
}

func (l *Ledger) Aggregate(ctx context.Context, accountID uuid.UUID, start, end time.Time) (Snapshot, error) {
	if !end.After(start) {
		return Snapshot{}, fmt.Errorf("%w: empty period", ErrInvalidEvent)
	}
	return l.store.AggregateUsage(ctx, accountID, start, end)
}
