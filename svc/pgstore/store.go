// Package pgstore implements every billing store on PostgreSQL with pgx.
//
// All methods take the active transaction from the context through pg.Conn,
// so a service call that spans several stores commits once. Row locks use
// SELECT ... FOR UPDATE; first-time subscription writes serialize on a
// transaction-scoped advisory lock keyed by account.
package pgstore

import (
	"context"
	"embed"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/entitlekit/pkg/pg"
	"github.com/dmitrymomot/entitlekit/svc/account"
	"github.com/dmitrymomot/entitlekit/svc/coupon"
	"github.com/dmitrymomot/entitlekit/svc/payment"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

// Migrations holds the goose schema. Apply with pg.MigrateFS(ctx, pool, Migrations, MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

type Store struct {
	pool *pgxpool.Pool
	*pg.Transactor
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, Transactor: pg.NewTransactor(pool)}
}

func (s *Store) conn(ctx context.Context) pg.DBTX {
	return pg.Conn(ctx, s.pool)
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func fromNullUUID(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

var (
	_ account.Store      = (*Store)(nil)
	_ subscription.Store = (*Store)(nil)
	_ usage.Store        = (*Store)(nil)
	_ coupon.Store       = (*Store)(nil)
	_ payment.Store      = (*Store)(nil)
)
