// Package sweeper demotes subscriptions whose paid period is over.
//
// Sweep lists candidates and expires each through subscription.Service, which
// re-checks the locked row. A candidate renewed or canceled after listing is
// left alone, so the sweeper and user actions race safely. One account
// failing does not stop the pass.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

type Config struct {
	Interval     time.Duration `env:"SWEEPER_INTERVAL" envDefault:"10m"`
	RenewalGrace time.Duration `env:"SWEEPER_RENEWAL_GRACE" envDefault:"72h"`
	BatchSize    int           `env:"SWEEPER_BATCH_SIZE" envDefault:"500"`
}

// Lifecycle is implemented by subscription.Service.
type Lifecycle interface {
	ExpiryCandidates(ctx context.Context, grace time.Duration, limit int) ([]uuid.UUID, error)
	Expire(ctx context.Context, accountID uuid.UUID, policy subscription.ExpiryPolicy) (*subscription.Transition, error)
}

type Sweeper struct {
	subs   Lifecycle
	policy subscription.ExpiryPolicy
	cfg    Config
	log    *slog.Logger
}

type Option func(*Sweeper)

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.log = l }
}

// WithQuotaCheck lets Sweep expire non-renewing subscriptions that used
// their whole quota before the period ended.
func WithQuotaCheck(check subscription.QuotaCheck) Option {
	return func(s *Sweeper) { s.policy.QuotaExhausted = check }
}

func New(subs Lifecycle, cfg Config, opts ...Option) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	s := &Sweeper{
		subs:   subs,
		policy: subscription.ExpiryPolicy{RenewalGrace: cfg.RenewalGrace},
		cfg:    cfg,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("sweeper"))
	return s
}

// Sweep runs one pass and returns how many subscriptions were expired.
// The error joins every per-account failure.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	ids, err := s.subs.ExpiryCandidates(ctx, s.cfg.RenewalGrace, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var (
		expired int
		errs    []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		t, err := s.subs.Expire(ctx, id, s.policy)
		if err != nil {
			s.log.ErrorContext(ctx, "failed to expire subscription", logger.AccountID(id), logger.Error(err))
			errs = append(errs, err)
			continue
		}
		if t.Changed {
			expired++
		}
	}

	s.log.InfoContext(ctx, "sweep finished",
		slog.Int("candidates", len(ids)),
		logger.Count(expired),
		logger.Duration(time.Since(start)),
	)
	return expired, errors.Join(errs...)
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.log.WarnContext(ctx, "sweep completed with errors", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
