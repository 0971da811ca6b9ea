package plan

import "slices"

// Plan is one catalog entry.
type Plan struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Tier     Tier     `yaml:"tier" json:"tier"`
	Price    Money    `yaml:"price" json:"price"`
	Interval Interval `yaml:"interval" json:"interval"`
	Public   bool     `yaml:"public" json:"public"`

	MaxOperationsPerPeriod     int64 `yaml:"max_operations_per_period" json:"max_operations_per_period"`
	MaxMeteredMinutesPerPeriod int64 `yaml:"max_metered_minutes_per_period" json:"max_metered_minutes_per_period"`
	MaxArtifactSeconds         int64 `yaml:"max_artifact_seconds" json:"max_artifact_seconds"`
	MaxArtifactBytes           int64 `yaml:"max_artifact_bytes" json:"max_artifact_bytes"`
	MaxConcurrentCategories    int64 `yaml:"max_concurrent_categories" json:"max_concurrent_categories"`

	Features []Feature `yaml:"features" json:"features"`
}

func (p Plan) IsFree() bool {
	return p.Tier == TierFree
}

func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// Limits returns every quota of the plan keyed by name.
func (p Plan) Limits() map[Limit]int64 {
	return map[Limit]int64{
		LimitOperations:     p.MaxOperationsPerPeriod,
		LimitMeteredMinutes: p.MaxMeteredMinutesPerPeriod,
		LimitArtifactLength: p.MaxArtifactSeconds,
		LimitArtifactSize:   p.MaxArtifactBytes,
		LimitCategories:     p.MaxConcurrentCategories,
	}
}

// Comparison lists what changes when moving from one plan to another.
type Comparison struct {
	NewFeatures     []Feature
	LostFeatures    []Feature
	IncreasedLimits map[Limit]LimitChange
	DecreasedLimits map[Limit]LimitChange
}

type LimitChange struct {
	From int64
	To   int64
}

// IsUpgrade reports a move that loses nothing.
func (c *Comparison) IsUpgrade() bool {
	return len(c.LostFeatures) == 0 && len(c.DecreasedLimits) == 0
}

// Compare returns the differences between current and target.
func Compare(current, target Plan) *Comparison {
	c := &Comparison{
		IncreasedLimits: make(map[Limit]LimitChange),
		DecreasedLimits: make(map[Limit]LimitChange),
	}
	for _, f := range target.Features {
		if !current.HasFeature(f) {
			c.NewFeatures = append(c.NewFeatures, f)
		}
	}
	for _, f := range current.Features {
		if !target.HasFeature(f) {
			c.LostFeatures = append(c.LostFeatures, f)
		}
	}

	targetLimits := target.Limits()
	for name, from := range current.Limits() {
		to := targetLimits[name]
		if to == from {
			continue
		}
		change := LimitChange{From: from, To: to}
		switch {
		case from == Unlimited:
			c.DecreasedLimits[name] = change
		case to == Unlimited, to > from:
			c.IncreasedLimits[name] = change
		default:
			c.DecreasedLimits[name] = change
		}
	}
	return c
}
