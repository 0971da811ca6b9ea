package account

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/logger"
	"github.com/dmitrymomot/entitlekit/pkg/retry"
	"github.com/dmitrymomot/entitlekit/pkg/txn"
	"github.com/dmitrymomot/entitlekit/svc/entitlement"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
)

// Entitlements resolves the plan that caps category selection.
type Entitlements interface {
	Effective(ctx context.Context, accountID uuid.UUID) (subscription.Effective, error)
}

type Service struct {
	tx      txn.Transactor
	store   Store
	ent     Entitlements
	catalog *plan.Catalog
	log     *slog.Logger
	now     func() time.Time

	waitAttempts int
	waitBackoff  retry.BackoffStrategy
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithProfileWait tunes WaitForProfile polling.
func WithProfileWait(attempts int, backoff retry.BackoffStrategy) Option {
	return func(s *Service) {
		s.waitAttempts = attempts
		s.waitBackoff = backoff
	}
}

func NewService(tx txn.Transactor, store Store, ent Entitlements, catalog *plan.Catalog, opts ...Option) *Service {
	s := &Service{
		tx:           tx,
		store:        store,
		ent:          ent,
		catalog:      catalog,
		log:          logger.Nop(),
		now:          time.Now,
		waitAttempts: 6,
		waitBackoff: retry.ExponentialBackoff{
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("account"))
	return s
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.store.GetAccount(ctx, id)
}

// Create registers a profile on the free plan.
func (s *Service) Create(ctx context.Context, a Account) (*Account, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(a.Email))
	if err != nil || addr.Name != "" {
		return nil, ErrInvalidEmail
	}
	if a.Role == "" {
		a.Role = RoleStandard
	}
	if !a.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Locale == "" {
		a.Locale = "en"
	}
	cats, err := normalizeCategories(a.Categories)
	if err != nil {
		return nil, err
	}

	free := s.catalog.Free()
	now := s.now().UTC()
	a.Email = strings.ToLower(addr.Address)
	a.Categories = cats
	a.PrimaryCategory = ""
	if len(cats) > 0 {
		a.PrimaryCategory = cats[0]
	}
	a.PlanID, a.Tier = free.ID, free.Tier
	a.CreatedAt, a.UpdatedAt = now, now

	if err := s.store.CreateAccount(ctx, &a); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "account created", logger.AccountID(a.ID))
	return &a, nil
}

// WaitForProfile polls for a profile that is written asynchronously after
// signup. It returns ErrProfileNotReady once the attempts run out.
func (s *Service) WaitForProfile(ctx context.Context, id uuid.UUID) (*Account, error) {
	var found *Account
	err := retry.Until(ctx, s.waitAttempts, s.waitBackoff, func(ctx context.Context) (bool, error) {
		a, err := s.store.GetAccount(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		found = a
		return true, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		s.log.WarnContext(ctx, "profile not available", logger.AccountID(id), logger.Count(s.waitAttempts))
		return nil, ErrProfileNotReady
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SelectCategories replaces the account's categories. The first becomes the
// primary category. A denial is returned as *entitlement.DeniedError.
// It is usually the first write after signup, so it waits for the profile.
func (s *Service) SelectCategories(ctx context.Context, id uuid.UUID, categories []string) (*Account, error) {
	cats, err := normalizeCategories(categories)
	if err != nil {
		return nil, err
	}
	if _, err := s.WaitForProfile(ctx, id); err != nil {
		return nil, err
	}

	var out *Account
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.store.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		eff, err := s.ent.Effective(ctx, id)
		if err != nil {
			return err
		}
		if n := len(cats); n > 0 {
			if err := entitlement.New(eff).CanSelectCategory(int64(n - 1)).Err(); err != nil {
				return err
			}
		}

		primary := ""
		if len(cats) > 0 {
			primary = cats[0]
		}
		if err := s.store.SetCategories(ctx, id, cats, primary); err != nil {
			return err
		}
		a.Categories, a.PrimaryCategory, a.UpdatedAt = cats, primary, s.now().UTC()
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
