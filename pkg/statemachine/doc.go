// Package statemachine evaluates transitions of a declarative state table.
//
// A Machine is built once from Transition definitions and holds no current
// state: the state lives in the caller's persisted record. Fire looks up the
// transitions registered for (from, event), picks the first whose guards all
// pass, runs its actions in order and returns the destination state. Any
// action error aborts the transition, so callers running Fire inside a
// database transaction get all-or-nothing semantics for free.
//
//	m := statemachine.MustNew(
//		statemachine.Transition[Status, Event, *Record]{
//			From:    []Status{StatusActive, StatusPaused},
//			Event:   EventCancel,
//			To:      StatusCanceled,
//			Actions: []statemachine.Action[Status, Event, *Record]{markCanceled},
//		},
//	)
//	next, err := m.Fire(ctx, rec.Status, EventCancel, rec)
package statemachine
