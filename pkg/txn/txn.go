// Package txn defines the transaction boundary shared by every store.
//
// A Transactor runs a function inside one atomic unit of work. Stores pick
// the active transaction up from the context, so services compose several
// repository calls into a single commit without knowing the backend. Nested
// WithinTx calls join the outer transaction.
//
// AfterCommit registers side effects (notifications, fan-out) that must only
// happen once the outermost transaction has committed.
package txn

import (
	"context"
	"sync"
)

// Transactor runs fn atomically. If fn returns an error every write made
// through ctx is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Hooks collects functions to run after a successful commit.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

type hooksKey struct{}

// Begin attaches a fresh hook set to ctx. Transactor implementations call it
// when they open the outermost transaction.
func Begin(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// Active reports whether ctx carries an open transaction.
func Active(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*Hooks)
	return ok
}

// AfterCommit schedules fn to run after the transaction in ctx commits.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok {
		h.mu.Lock()
		h.fns = append(h.fns, fn)
		h.mu.Unlock()
		return
	}
	fn(ctx)
}

// Run executes the collected hooks in registration order with a context
// detached from the finished transaction.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	for _, fn := range fns {
		fn(ctx)
	}
}
