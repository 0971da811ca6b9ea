package entitlement

import (
	"fmt"

	"github.com/dmitrymomot/entitlekit/pkg/apperr"
	"github.com/dmitrymomot/entitlekit/svc/plan"
	"github.com/dmitrymomot/entitlekit/svc/subscription"
	"github.com/dmitrymomot/entitlekit/svc/usage"
)

type Reason string

const (
	ReasonQuotaExceeded      Reason = "quota_exceeded"
	ReasonLimitExceeded      Reason = "limit_exceeded"
	ReasonFeatureUnavailable Reason = "feature_unavailable"
)

// Decision is the answer to one gated check. Max and Remaining are -1 for
// unlimited dimensions.
type Decision struct {
	Allowed   bool         `json:"allowed"`
	Reason    Reason       `json:"reason,omitempty"`
	Limit     plan.Limit   `json:"limit,omitempty"`
	Feature   plan.Feature `json:"feature,omitempty"`
	Used      int64        `json:"used"`
	Max       int64        `json:"max"`
	Remaining int64        `json:"remaining"`
	// Duplicate marks a replayed artifact that was billed before.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Err returns nil for allowed decisions and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}

// DeniedError carries a denial across error boundaries.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	if e.Decision.Feature != "" {
		return fmt.Sprintf("feature %q is not included in the current plan", e.Decision.Feature)
	}
	return fmt.Sprintf("%s: %s used %d of %d", e.Decision.Reason, e.Decision.Limit, e.Decision.Used, e.Decision.Max)
}

func (e *DeniedError) Unwrap() error { return apperr.ErrDenied }
func (e *DeniedError) Code() string  { return string(e.Decision.Reason) }

func (e *DeniedError) Details() map[string]any {
	d := map[string]any{"used": e.Decision.Used, "max": e.Decision.Max}
	if e.Decision.Limit != "" {
		d["limit"] = e.Decision.Limit
	}
	if e.Decision.Feature != "" {
		d["feature"] = e.Decision.Feature
	}
	return d
}

// Resolver evaluates gated actions against one plan plus bonus quota.
// The zero value is not useful; use New or ForPlan.
type Resolver struct {
	plan            plan.Plan
	bonusOperations int64
	bonusCategories int64
}

// New builds a Resolver for effective entitlements.
func New(eff subscription.Effective) Resolver {
	return ForPlan(eff.Plan, eff.BonusOperations, eff.BonusCategories)
}

func ForPlan(p plan.Plan, bonusOperations, bonusCategories int64) Resolver {
	return Resolver{
		plan:            p,
		bonusOperations: max(bonusOperations, 0),
		bonusCategories: max(bonusCategories, 0),
	}
}

func (r Resolver) Plan() plan.Plan { return r.plan }

// CanPerformOperation is true when used < maxOperationsPerPeriod + bonusOperations.
func (r Resolver) CanPerformOperation(used int64) Decision {
	return quota(plan.LimitOperations, r.plan.MaxOperationsPerPeriod, r.bonusOperations, used, ReasonQuotaExceeded)
}

// CanConsumeMinutes is true when usedMinutes < maxMeteredMinutesPerPeriod.
func (r Resolver) CanConsumeMinutes(usedMinutes int64) Decision {
	return quota(plan.LimitMeteredMinutes, r.plan.MaxMeteredMinutesPerPeriod, 0, usedMinutes, ReasonQuotaExceeded)
}

// CanSelectCategory is true when currentCount < maxConcurrentCategories + bonusCategories.
func (r Resolver) CanSelectCategory(currentCount int64) Decision {
	return quota(plan.LimitCategories, r.plan.MaxConcurrentCategories, r.bonusCategories, currentCount, ReasonLimitExceeded)
}

func (r Resolver) HasFeature(f plan.Feature) Decision {
	if r.plan.HasFeature(f) {
		return Decision{Allowed: true, Feature: f, Max: plan.Unlimited, Remaining: plan.Unlimited}
	}
	return Decision{Reason: ReasonFeatureUnavailable, Feature: f}
}

// CheckArtifact validates a single artifact against the per-artifact caps.
func (r Resolver) CheckArtifact(seconds, bytes int64) Decision {
	if d := ceiling(plan.LimitArtifactLength, r.plan.MaxArtifactSeconds, seconds); !d.Allowed {
		return d
	}
	return ceiling(plan.LimitArtifactSize, r.plan.MaxArtifactBytes, bytes)
}

// Usage summarizes a period snapshot against the plan.
func (r Resolver) Usage(s usage.Snapshot) UsageView {
	return UsageView{
		Operations:     r.CanPerformOperation(s.OperationCount),
		MeteredMinutes: r.CanConsumeMinutes(s.MeteredMinutes),
	}
}

// UsageView is the usage-versus-limit snapshot shown to clients.
type UsageView struct {
	Operations     Decision `json:"operations"`
	MeteredMinutes Decision `json:"metered_minutes"`
}

func quota(limit plan.Limit, base, bonus, used int64, reason Reason) Decision {
	if base == plan.Unlimited {
		return Decision{Allowed: true, Limit: limit, Used: used, Max: plan.Unlimited, Remaining: plan.Unlimited}
	}
	total := base + bonus
	d := Decision{Limit: limit, Used: used, Max: total, Remaining: max(total-used, 0)}
	if used < total {
		d.Allowed = true
		return d
	}
	d.Reason = reason
	return d
}

func ceiling(limit plan.Limit, maxValue, value int64) Decision {
	if maxValue == plan.Unlimited {
		return Decision{Allowed: true, Limit: limit, Used: value, Max: plan.Unlimited, Remaining: plan.Unlimited}
	}
	d := Decision{Limit: limit, Used: value, Max: maxValue, Remaining: max(maxValue-value, 0)}
	if value <= maxValue {
		d.Allowed = true
		return d
	}
	d.Reason = ReasonLimitExceeded
	return d
}
