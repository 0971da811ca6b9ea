package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
)

var (
	ErrEmptyConnectionString = apperr.New(apperr.ErrNotConfigured, "pg_not_configured", "empty postgres connection string, set PG_CONN_URL")
	ErrInvalidConfig         = apperr.New(apperr.ErrValidation, "pg_invalid_config", "postgres connection string cannot be parsed")
	ErrUnavailable           = apperr.New(apperr.ErrUpstreamUnavailable, "pg_unavailable", "postgres is not reachable")
	ErrUnhealthy             = apperr.New(apperr.ErrUpstreamUnavailable, "pg_unhealthy", "postgres ping failed")
	ErrMigrationFailed       = errors.New("failed to apply migrations")
	ErrMissingMigrationDir   = errors.New("migration directory not provided")
	ErrTxFailed              = errors.New("transaction failed")
)

// IsNotFoundError detects pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, "23505")
}

// IsForeignKeyViolationError detects referential integrity violations (SQLSTATE 23503).
func IsForeignKeyViolationError(err error) bool {
	return hasCode(err, "23503")
}

// IsSerializationError detects serialization failures and deadlocks (SQLSTATE 40001, 40P01).
func IsSerializationError(err error) bool {
	return hasCode(err, "40001") || hasCode(err, "40P01")
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
