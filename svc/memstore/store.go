// Package memstore is an in-memory implementation of every store interface
// plus txn.Transactor, for tests and local development.
//
// A transaction holds the store mutex from begin to commit, so transactions
// are fully serialized. Rollback restores a snapshot taken at begin. Values
// are copied on the way in and out; callers never share memory with the store.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	accounts map[uuid.UUID]account.Account
	// subs is a slice so a duplicated row can be seeded to exercise the
	// multiple-subscriptions invariant.
	subs        []subscription.Subscription
	usage       []usage.Event
	coupons     map[string]coupon.Coupon
	redemptions []coupon.Redemption
	orders      map[uuid.UUID]payment.Order
	events      map[string]payment.Event
}

func New() *Store {
	return &Store{data: &state{
		accounts: make(map[uuid.UUID]account.Account),
		coupons:  make(map[string]coupon.Coupon),
		orders:   make(map[uuid.UUID]payment.Order),
		events:   make(map[string]payment.Event),
	}}
}

func (s *state) clone() *state {
	c := &state{
		accounts:    maps.Clone(s.accounts),
		subs:        slices.Clone(s.subs),
		usage:       slices.Clone(s.usage),
		coupons:     maps.Clone(s.coupons),
		redemptions: slices.Clone(s.redemptions),
		orders:      maps.Clone(s.orders),
		events:      maps.Clone(s.events),
	}
	for id, a := range c.accounts {
		a.Categories = slices.Clone(a.Categories)
		c.accounts[id] = a
	}
	return c
}

type txKey struct{}

// WithinTx implements txn.Transactor. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.data.clone()
	txCtx, hooks := txn.Begin(context.WithValue(ctx, txKey{}, s))
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			s.mu.Unlock()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	hooks.Run(ctx)
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the state, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

var (
	_ txn.Transactor             = (*Store)(nil)
	_ account.Store              = (*Store)(nil)
	_ subscription.Store         = (*Store)(nil)
	_ subscription.ProfileMirror = (*Store)(nil)
	_ usage.Store                = (*Store)(nil)
	_ coupon.Store               = (*Store)(nil)
	_ payment.Store              = (*Store)(nil)
)
