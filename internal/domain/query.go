package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// GlobalRegion tags the unfiltered activations query.
const GlobalRegion = "global"

// CharterRegions are the location filters accepted by the activations listing,
// in the order they are queried by default.
var CharterRegions = []string{
	"south america",
	"africa",
	"asia",
	"europe",
	"north america",
	"oceania",
	"caribbean",
	"central america",
	"middle east",
}

// Query is one activations listing request.
type Query struct {
	Region   string // GlobalRegion or a location filter
	Disaster string // disaster type filter, e.g. "flood"
}

// IsGlobal reports whether the query has no location filter.
func (q Query) IsGlobal() bool { return q.Region == GlobalRegion }

// QueryPlan is the ordered list of queries for one collection run. Order is
// significant: earlier queries win deduplication ties.
type QueryPlan []Query

// DefaultQueryPlan returns the global query followed by every Charter region.
func DefaultQueryPlan(disaster string) QueryPlan {
	plan, _ := NewQueryPlan(disaster, true, CharterRegions)
	return plan
}

// NewQueryPlan builds a plan with the global query first (when includeGlobal)
// followed by regions in the given order. Regions must be known Charter
// regions and may not repeat.
func NewQueryPlan(disaster string, includeGlobal bool, regions []string) (QueryPlan, error) {
	disaster = strings.TrimSpace(disaster)
	if disaster == "" {
		return nil, errors.New("query plan: disaster filter is required")
	}

	plan := make(QueryPlan, 0, len(regions)+1)
	if includeGlobal {
		plan = append(plan, Query{Region: GlobalRegion, Disaster: disaster})
	}
	for _, r := range regions {
		r = strings.ToLower(strings.TrimSpace(r))
		if !slices.Contains(CharterRegions, r) {
			return nil, fmt.Errorf("query plan: unknown region %q", r)
		}
		plan = append(plan, Query{Region: r, Disaster: disaster})
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// SingleRegionPlan queries one location filter only. The region is passed
// through as-is so ad hoc filters (a country name, say) still work.
func SingleRegionPlan(disaster, region string) QueryPlan {
	return QueryPlan{{Region: strings.ToLower(strings.TrimSpace(region)), Disaster: disaster}}
}

// Validate checks the ordering invariants: the plan is non-empty, the global
// query appears at most once and only in first position, and no region
// repeats.
func (p QueryPlan) Validate() error {
	if len(p) == 0 {
		return errors.New("query plan: no queries")
	}
	seen := make(map[string]bool, len(p))
	for i, q := range p {
		if q.Region == "" {
			return fmt.Errorf("query plan: query %d has no region", i)
		}
		if q.IsGlobal() && i != 0 {
			return fmt.Errorf("query plan: global query must run first, found at position %d", i)
		}
		if seen[q.Region] {
			return fmt.Errorf("query plan: region %q repeated", q.Region)
		}
		seen[q.Region] = true
	}
	return nil
}

// Regions returns the region tags in plan order.
func (p QueryPlan) Regions() []string {
	out := make([]string, len(p))
	for i, q := range p {
		out[i] = q.Region
	}
	return out
}
