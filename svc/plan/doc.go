// Package plan defines the plan catalog: tiers, feature flags and per-period
// limits. Plans are immutable data loaded once at startup, from the embedded
// default catalog or from a YAML file named by PLAN_CATALOG_PATH.
//
// Tier, Feature and Interval are closed enumerations. They are validated when
// decoded (YAML, JSON or a request parameter) so the rest of the system never
// re-checks raw strings.
//
// Limits use Unlimited (-1) as the "no cap" sentinel.
package plan
