package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type Status string

const (
	// StatusNone is the state of an account without a subscription row.
	// It is never persisted.
	StatusNone     Status = "none"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Subscription is the authoritative plan record of one account.
type Subscription struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	PlanID          string
	Status          Status
	PeriodStart     time.Time
	PeriodEnd       time.Time
	AutoRenew       bool
	CanceledAt      *time.Time
	PausedAt        *time.Time
	BonusOperations int64
	BonusCategories int64
	// ProviderRef is the gateway's subscription id, used to stop renewals.
	ProviderRef string
	// AssignedAt is the most recent paid-plan assignment. Nil until the
	// first one; until then usage periods are calendar months.
	AssignedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusOf returns StatusNone for a nil subscription.
func StatusOf(s *Subscription) Status {
	if s == nil {
		return StatusNone
	}
	return s.Status
}

func (s *Subscription) clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Period is a half-open usage window [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CalendarMonth is the UTC month containing now.
func CalendarMonth(now time.Time) Period {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// PeriodAt returns the usage window containing now. Before any paid
// assignment it is the calendar month. Afterwards windows roll by interval
// from PeriodStart, the anchor of the latest assignment or expiry.
func PeriodAt(s *Subscription, interval plan.Interval, now time.Time) Period {
	if s == nil || s.AssignedAt == nil {
		return CalendarMonth(now)
	}
	current := Period{Start: s.PeriodStart, End: s.PeriodEnd}
	if current.End.After(current.Start) && current.Contains(now) {
		return current
	}
	anchor := s.PeriodStart
	if now.Before(anchor) {
		return Period{Start: anchor, End: interval.Add(anchor, 1)}
	}
	for n := 1; ; n++ {
		end := interval.Add(anchor, n)
		if now.Before(end) {
			return Period{Start: interval.Add(anchor, n-1), End: end}
		}
	}
}

// Effective is what a subscription entitles its account to at one instant.
type Effective struct {
	Subscription    *Subscription
	Plan            plan.Plan
	Period          Period
	BonusOperations int64
	BonusCategories int64
}

// Resolve computes the effective plan. No row, a paused or expired row and a
// canceled row past its period end all resolve to the free plan. A canceled
// row keeps its plan until PeriodEnd unless it was paused when canceled.
func Resolve(s *Subscription, catalog *plan.Catalog, now time.Time) (Effective, error) {
	free := catalog.Free()
	if s == nil {
		return Effective{Plan: free, Period: CalendarMonth(now)}, nil
	}

	p, err := catalog.Get(s.PlanID)
	if err != nil {
		return Effective{}, apperr.Wrapf(ErrUnknownPlan, "account %s plan %q", s.AccountID, s.PlanID)
	}

	eff := Effective{Subscription: s, Plan: p}
	switch {
	case s.Status == StatusActive:
	case s.Status == StatusCanceled && s.PausedAt == nil && now.Before(s.PeriodEnd):
	default:
		eff.Plan = free
	}
	if eff.Plan.ID == s.PlanID {
		eff.BonusOperations = s.BonusOperations
		eff.BonusCategories = s.BonusCategories
	}
	eff.Period = PeriodAt(s, p.Interval, now)
	return eff, nil
}
