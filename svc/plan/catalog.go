package plan

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Config selects the catalog source.
type Config struct {
	CatalogPath string `env:"PLAN_CATALOG_PATH"`
}

// Catalog is a validated, read-only set of plans.
type Catalog struct {
	plans map[string]Plan
	order []string
	free  string
}

// NewCatalog validates plans and builds a Catalog. There must be exactly one
// free plan, ids must be unique and paid plans need a billing interval.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	c := &Catalog{plans: make(map[string]Plan, len(plans))}
	var errs []error
	for _, p := range plans {
		switch {
		case p.ID == "":
			errs = append(errs, errors.New("plan without id"))
			continue
		case !p.Tier.Valid():
			errs = append(errs, fmt.Errorf("plan %s: unknown tier %q", p.ID, p.Tier))
		case !p.IsFree() && (p.Interval == "" || p.Interval == IntervalNone):
			errs = append(errs, fmt.Errorf("plan %s: paid plans need a billing interval", p.ID))
		}
		if _, dup := c.plans[p.ID]; dup {
			errs = append(errs, fmt.Errorf("plan %s: duplicate id", p.ID))
			continue
		}
		for name, v := range p.Limits() {
			if v < Unlimited {
				errs = append(errs, fmt.Errorf("plan %s: %s must be >= -1", p.ID, name))
			}
		}
		if p.IsFree() {
			if c.free != "" {
				errs = append(errs, fmt.Errorf("plan %s: second free plan, %s already declared", p.ID, c.free))
			}
			c.free = p.ID
		}
		p.Features = slices.Clone(p.Features)
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	if c.free == "" {
		errs = append(errs, errors.New("no free plan"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(append([]error{ErrInvalidCatalog}, errs...)...)
	}

	slices.SortStableFunc(c.order, func(a, b string) int {
		return c.plans[a].Tier.Rank() - c.plans[b].Tier.Rank()
	})
	return c, nil
}

// LoadYAML reads a catalog document: a top-level "plans" list.
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	return NewCatalog(doc.Plans...)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return LoadYAML(bytes.NewReader(defaultCatalog))
}

// Load returns the catalog at cfg.CatalogPath, or the embedded one when unset.
func Load(cfg Config) (*Catalog, error) {
	if cfg.CatalogPath == "" {
		return Default()
	}
	f, err := os.Open(cfg.CatalogPath)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func (c *Catalog) Get(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrPlanNotFound, id)
	}
	return p, nil
}

// Free returns the free plan.
func (c *Catalog) Free() Plan {
	return c.plans[c.free]
}

// ByTier returns the first plan of tier t, in catalog order.
func (c *Catalog) ByTier(t Tier) (Plan, error) {
	for _, id := range c.order {
		if p := c.plans[id]; p.Tier == t {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: no plan for tier %q", ErrPlanNotFound, t)
}

// All returns plans sorted by tier.
func (c *Catalog) All() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}
