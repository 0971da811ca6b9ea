package payment

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	// GetOrder returns ErrOrderNotFound for an unknown id.
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindEvent returns ErrEventNotFound when the reference was never seen.
	FindEvent(ctx context.Context, externalRef string) (*Event, error)
	// InsertEvent reports false without writing when the reference exists.
	InsertEvent(ctx context.Context, e *Event) (inserted bool, err error)
	// PromoteEvent overwrites a non-success event with e. It reports false
	// when the stored event is already a success.
	PromoteEvent(ctx context.Context, e *Event) (promoted bool, err error)
	// SetEventState updates the reconciled state of a stored event.
	SetEventState(ctx context.Context, externalRef string, state State) error
}
