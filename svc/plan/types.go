package plan

import (
	"fmt"
	"time"
)

// Unlimited disables a limit.
const Unlimited int64 = -1

// Tier is the closed set of plan levels, ordered by Rank.
type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

var tierRank = map[Tier]int{
	TierFree:       0,
	TierBasic:      1,
	TierPro:        2,
	TierEnterprise: 3,
}

// Rank orders tiers from free upwards. Unknown tiers rank below free.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Feature is a gated capability.
type Feature string

const (
	FeatureHistory            Feature = "history"
	FeatureComparison         Feature = "comparison"
	FeatureExport             Feature = "export"
	FeatureAdvancedAnalysis   Feature = "advanced_analysis"
	FeatureDelegateManagement Feature = "delegate_management"
	FeatureDashboard          Feature = "dashboard"
)

var features = map[Feature]struct{}{
	FeatureHistory:            {},
	FeatureComparison:         {},
	FeatureExport:             {},
	FeatureAdvancedAnalysis:   {},
	FeatureDelegateManagement: {},
	FeatureDashboard:          {},
}

func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if _, ok := features[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidFeature, s)
	}
	return f, nil
}

func (f *Feature) UnmarshalText(b []byte) error {
	v, err := ParseFeature(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Limit names a quota dimension. Used in denial reasons.
type Limit string

const (
	LimitOperations     Limit = "operations"
	LimitMeteredMinutes Limit = "metered_minutes"
	LimitArtifactLength Limit = "artifact_seconds"
	LimitArtifactSize   Limit = "artifact_bytes"
	LimitCategories     Limit = "categories"
)

// Interval is the billing period length.
type Interval string

const (
	IntervalNone    Interval = "none"
	IntervalMonthly Interval = "monthly"
	IntervalAnnual  Interval = "annual"
)

func (i *Interval) UnmarshalText(b []byte) error {
	switch v := Interval(b); v {
	case IntervalNone, IntervalMonthly, IntervalAnnual:
		*i = v
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidInterval, string(b))
	}
}

// Add returns t advanced by n intervals. IntervalNone is treated as monthly,
// which is how free-plan periods roll.
func (i Interval) Add(t time.Time, n int) time.Time {
	if i == IntervalAnnual {
		return t.AddDate(n, 0, 0)
	}
	return t.AddDate(0, n, 0)
}

// Money is an amount in the smallest currency unit.
type Money struct {
	Amount   int64  `yaml:"amount" json:"amount"`
	Currency string `yaml:"currency" json:"currency"`
}
