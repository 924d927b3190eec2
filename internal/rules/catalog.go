// Package rules provides the fraud rule catalog and the CEL-based
// expression rule engine.
package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
)

// ErrCatalogUnavailable means the rule catalog could not be read.
// Engines abort the run on this error rather than screening with a
// partial rule set.
var ErrCatalogUnavailable = errors.New("rule catalog unavailable")

// Catalog reads active rule definitions from the repository, with an
// optional cache in front so each screening run does not hit the
// database once per engine.
type Catalog struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewCatalog creates a catalog reader. cache may be nil.
func NewCatalog(repo domain.Repository, cache domain.Cache, ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Catalog{repo: repo, cache: cache, ttl: ttl}
}

// ActiveByCategory returns the active rules of one category as a map
// keyed by rule code, for O(1) lookup inside the engines.
func (c *Catalog) ActiveByCategory(ctx context.Context, category domain.Category) (map[string]*domain.RuleDefinition, error) {
	defs, err := c.activeList(ctx, "rules:"+string(category), func(ctx context.Context) ([]*domain.RuleDefinition, error) {
		return c.repo.ListActiveRulesByCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	byCode := make(map[string]*domain.RuleDefinition, len(defs))
	for _, def := range defs {
		byCode[def.Code] = def
	}
	return byCode, nil
}

// ActiveRules returns all active rules ordered by execution order.
func (c *Catalog) ActiveRules(ctx context.Context) ([]*domain.RuleDefinition, error) {
	return c.activeList(ctx, "rules:all", c.repo.ListActiveRules)
}

// ByCode returns a single rule definition, active or not.
func (c *Catalog) ByCode(ctx context.Context, code string) (*domain.RuleDefinition, error) {
	def, err := c.repo.GetRuleByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// IsActive reports whether a rule exists and is active. Lookup errors
// count as inactive.
func (c *Catalog) IsActive(ctx context.Context, code string) bool {
	def, err := c.repo.GetRuleByCode(ctx, code)
	if err != nil {
		return false
	}
	return def.Active
}

// Invalidate drops the cached catalog snapshots. Called after rule
// changes so the next screening sees the new catalog.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Delete(ctx, "rules:all")
	for _, category := range domain.AllCategories() {
		_ = c.cache.Delete(ctx, "rules:"+string(category))
	}
}

func (c *Catalog) activeList(ctx context.Context, key string, load func(context.Context) ([]*domain.RuleDefinition, error)) ([]*domain.RuleDefinition, error) {
	if c.cache != nil {
		if defs, err := c.cache.GetRuleSet(ctx, key); err == nil && defs != nil {
			return defs, nil
		}
	}

	defs, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	if c.cache != nil {
		_ = c.cache.SetRuleSet(ctx, key, defs, c.ttl)
	}
	return defs, nil
}
