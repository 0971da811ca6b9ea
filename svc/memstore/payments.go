package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/svc/payment"
)

func (s *Store) CreateOrder(ctx context.Context, o *payment.Order) error {
	return s.do(ctx, func(st *state) error {
		st.orders[o.ID] = *o
		return nil
	})
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*payment.Order, error) {
	var out *payment.Order
	err := s.do(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return payment.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (s *Store) FindEvent(ctx context.Context, externalRef string) (*payment.Event, error) {
	var out *payment.Event
	err := s.do(ctx, func(st *state) error {
		e, ok := st.events[externalRef]
		if !ok {
			return payment.ErrEventNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (s *Store) InsertEvent(ctx context.Context, e *payment.Event) (bool, error) {
	var inserted bool
	err := s.do(ctx, func(st *state) error {
		if _, ok := st.events[e.ExternalRef]; ok {
			return nil
		}
		st.events[e.ExternalRef] = *e
		inserted = true
		return nil
	})
	return inserted, err
}

func (s *Store) PromoteEvent(ctx context.Context, e *payment.Event) (bool, error) {
	var promoted bool
	err := s.do(ctx, func(st *state) error {
		prior, ok := st.events[e.ExternalRef]
		if !ok || prior.Outcome == payment.OutcomeSuccess {
			return nil
		}
		st.events[e.ExternalRef] = *e
		promoted = true
		return nil
	})
	return promoted, err
}

func (s *Store) SetEventState(ctx context.Context, externalRef string, to payment.State) error {
	return s.do(ctx, func(st *state) error {
		e, ok := st.events[externalRef]
		if !ok {
			return payment.ErrEventNotFound
		}
		e.State = to
		st.events[externalRef] = e
		return nil
	})
}

// EventCount is the number of stored payment events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.events)
}
