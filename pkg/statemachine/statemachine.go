package statemachine

import (
	"context"
	"fmt"
)

// Guard decides whether a transition may proceed.
type Guard[S, E ~string, D any] func(ctx context.Context, from S, event E, data D) bool

// Action runs as part of a transition, before the caller stores the new state.
type Action[S, E ~string, D any] func(ctx context.Context, from, to S, event E, data D) error

// Transition moves any of From to To on Event.
type Transition[S, E ~string, D any] struct {
	From    []S
	Event   E
	To      S
	Guards  []Guard[S, E, D]
	Actions []Action[S, E, D]
}

// Machine is an immutable transition table. Safe for concurrent use.
type Machine[S, E ~string, D any] struct {
	table map[S]map[E][]Transition[S, E, D]
}

// New builds a Machine. Transitions registered for the same (from, event)
// pair are tried in definition order.
func New[S, E ~string, D any](defs ...Transition[S, E, D]) (*Machine[S, E, D], error) {
	m := &Machine[S, E, D]{table: make(map[S]map[E][]Transition[S, E, D])}
	for _, def := range defs {
		if len(def.From) == 0 || def.Event == "" {
			return nil, ErrInvalidTransition
		}
		for _, from := range def.From {
			if m.table[from] == nil {
				m.table[from] = make(map[E][]Transition[S, E, D])
			}
			m.table[from][def.Event] = append(m.table[from][def.Event], def)
		}
	}
	return m, nil
}

// MustNew is New that panics on an invalid definition.
func MustNew[S, E ~string, D any](defs ...Transition[S, E, D]) *Machine[S, E, D] {
	m, err := New(defs...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// Fire applies event to from and returns the destination state.
func (m *Machine[S, E, D]) Fire(ctx context.Context, from S, event E, data D) (S, error) {
	t, err := m.match(ctx, from, event, data)
	if err != nil {
		return from, err
	}
	for _, action := range t.Actions {
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, fmt.Errorf("%s --%s--> %s: %w", from, event, t.To, err)
		}
	}
	return t.To, nil
}

// CanFire reports whether Fire would find a transition. Actions are not run.
func (m *Machine[S, E, D]) CanFire(ctx context.Context, from S, event E, data D) bool {
	_, err := m.match(ctx, from, event, data)
	return err == nil
}

// Events lists the events registered for from.
func (m *Machine[S, E, D]) Events(from S) []E {
	events := make([]E, 0, len(m.table[from]))
	for e := range m.table[from] {
		events = append(events, e)
	}
	return events
}

func (m *Machine[S, E, D]) match(ctx context.Context, from S, event E, data D) (*Transition[S, E, D], error) {
	candidates := m.table[from][event]
	if len(candidates) == 0 {
		return nil, &NoTransitionError{State: string(from), Event: string(event)}
	}
next:
	for i := range candidates {
		for _, guard := range candidates[i].Guards {
			if !guard(ctx, from, event, data) {
				continue next
			}
		}
		return &candidates[i], nil
	}
	return nil, &RejectedError{State: string(from), Event: string(event)}
}
