package subscription

import (
	"context"
	"time"

	"github.com/dmitrymomot/entitlekit/pkg/statemachine"
	"github.com/dmitrymomot/entitlekit/svc/plan"
)

type Event string

const (
	EventAssign  Event = "assign"
	EventUpgrade Event = "upgrade"
	EventRenew   Event = "renew"
	EventCancel  Event = "cancel"
	EventPause   Event = "pause"
	EventResume  Event = "resume"
	EventExpire  Event = "expire"
	EventBonus   Event = "bonus"
)

// change carries one transition through the machine. Actions mutate sub.
type change struct {
	sub     *Subscription
	now     time.Time
	current plan.Plan
	target  plan.Plan
	free    plan.Plan
	assign  Assignment
	expiry  expiryState
}

type expiryState struct {
	grace     time.Duration
	exhausted bool
}

type (
	transition = statemachine.Transition[Status, Event, *change]
	guard      = statemachine.Guard[Status, Event, *change]
	action     = statemachine.Action[Status, Event, *change]
)

var lifecycle = statemachine.MustNew(
	transition{
		From:    []Status{StatusNone, StatusExpired},
		Event:   EventAssign,
		To:      StatusActive,
		Actions: []action{assignPlan},
	},
	transition{
		// A paused or canceled row may still hold a paid plan; buying a lower
		// one must not strip it.
		From:    []Status{StatusPaused, StatusCanceled},
		Event:   EventAssign,
		To:      StatusActive,
		Guards:  []guard{keepsHeldPlan},
		Actions: []action{assignPlan},
	},
	transition{
		// A bonus-only row sits on the free plan while active.
		From:    []Status{StatusActive},
		Event:   EventAssign,
		To:      StatusActive,
		Guards:  []guard{onFreePlan},
		Actions: []action{assignPlan},
	},
	transition{
		From:    []Status{StatusActive},
		Event:   EventUpgrade,
		To:      StatusActive,
		Guards:  []guard{onPaidPlan, losesNothing},
		Actions: []action{upgradePlan},
	},
	transition{
		From:    []Status{StatusActive},
		Event:   EventRenew,
		To:      StatusActive,
		Guards:  []guard{samePlan},
		Actions: []action{renewPeriod},
	},
	transition{
		From:    []Status{StatusActive, StatusPaused},
		Event:   EventCancel,
		To:      StatusCanceled,
		Guards:  []guard{onPaidPlan},
		Actions: []action{markCanceled},
	},
	transition{
		From:    []Status{StatusActive},
		Event:   EventPause,
		To:      StatusPaused,
		Guards:  []guard{onPaidPlan},
		Actions: []action{markPaused},
	},
	transition{
		From:    []Status{StatusPaused},
		Event:   EventResume,
		To:      StatusActive,
		Actions: []action{clearPause},
	},
	transition{
		From:    []Status{StatusActive, StatusPaused, StatusCanceled},
		Event:   EventExpire,
		To:      StatusExpired,
		Guards:  []guard{onPaidPlan, expiryDue},
		Actions: []action{demoteToFree},
	},
)

func onFreePlan(_ context.Context, _ Status, _ Event, c *change) bool {
	return c.current.IsFree()
}

func onPaidPlan(_ context.Context, _ Status, _ Event, c *change) bool {
	return !c.current.IsFree()
}

func samePlan(_ context.Context, _ Status, _ Event, c *change) bool {
	return c.current.ID == c.target.ID
}

// losesNothing allows only a move to a higher tier that keeps every feature.
func losesNothing(_ context.Context, _ Status, _ Event, c *change) bool {
	if c.target.Tier.Rank() <= c.current.Tier.Rank() {
		return false
	}
	return len(plan.Compare(c.current, c.target).LostFeatures) == 0
}

// keepsHeldPlan allows the same plan or an upgrade while the row still
// holds its paid plan, and anything once the held period is over.
func keepsHeldPlan(ctx context.Context, from Status, event Event, c *change) bool {
	if c.current.IsFree() || !c.now.Before(c.sub.PeriodEnd) {
		return true
	}
	if c.current.ID == c.target.ID {
		return true
	}
	return losesNothing(ctx, from, event, c)
}

// expiryDue is evaluated against the locked row, never a caller snapshot.
func expiryDue(_ context.Context, from Status, _ Event, c *change) bool {
	ended := !c.now.Before(c.sub.PeriodEnd)
	switch {
	case from == StatusCanceled:
		return ended
	case c.sub.AutoRenew:
		return !c.now.Before(c.sub.PeriodEnd.Add(c.expiry.grace))
	case from == StatusPaused:
		return ended
	default:
		return ended || c.expiry.exhausted
	}
}

func assignPlan(_ context.Context, _, _ Status, _ Event, c *change) error {
	s, now := c.sub, c.now
	s.PlanID = c.target.ID
	s.PeriodStart = now
	s.PeriodEnd = c.assign.periodEnd(c.target, now)
	s.AutoRenew = !c.assign.NoRenew
	s.CanceledAt = nil
	s.PausedAt = nil
	s.BonusOperations = c.assign.Grant.Operations
	s.BonusCategories = c.assign.Grant.Categories
	s.AssignedAt = &now
	if c.assign.ProviderRef != "" {
		s.ProviderRef = c.assign.ProviderRef
	}
	return nil
}

func upgradePlan(_ context.Context, _, _ Status, _ Event, c *change) error {
	s, now := c.sub, c.now
	s.PlanID = c.target.ID
	s.PeriodStart = now
	s.PeriodEnd = c.assign.periodEnd(c.target, now)
	s.AutoRenew = !c.assign.NoRenew
	s.BonusOperations += c.assign.Grant.Operations
	s.BonusCategories += c.assign.Grant.Categories
	s.AssignedAt = &now
	if c.assign.ProviderRef != "" {
		s.ProviderRef = c.assign.ProviderRef
	}
	return nil
}

func renewPeriod(_ context.Context, _, _ Status, _ Event, c *change) error {
	s, now := c.sub, c.now
	s.PeriodStart = now
	s.PeriodEnd = c.assign.periodEnd(c.target, now)
	s.AutoRenew = !c.assign.NoRenew
	s.AssignedAt = &now
	if c.assign.ProviderRef != "" {
		s.ProviderRef = c.assign.ProviderRef
	}
	return nil
}

// markCanceled leaves PausedAt alone: a paused row stays without access.
func markCanceled(_ context.Context, _, _ Status, _ Event, c *change) error {
	now := c.now
	c.sub.AutoRenew = false
	c.sub.CanceledAt = &now
	return nil
}

func markPaused(_ context.Context, _, _ Status, _ Event, c *change) error {
	now := c.now
	c.sub.PausedAt = &now
	return nil
}

func clearPause(_ context.Context, _, _ Status, _ Event, c *change) error {
	c.sub.PausedAt = nil
	return nil
}

func demoteToFree(_ context.Context, _, _ Status, _ Event, c *change) error {
	s, now := c.sub, c.now
	s.PlanID = c.free.ID
	s.PeriodStart = now
	s.PeriodEnd = c.free.Interval.Add(now, 1)
	s.AutoRenew = false
	s.PausedAt = nil
	s.BonusOperations = 0
	s.BonusCategories = 0
	return nil
}
