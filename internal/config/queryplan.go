package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

// QueryPlanFile is the YAML form of a collection query plan.
//
//	disaster: flood
//	include_global: true
//	regions: [europe, asia]
type QueryPlanFile struct {
	Disaster      string   `yaml:"disaster"`
	IncludeGlobal *bool    `yaml:"include_global"` // default true
	Regions       []string `yaml:"regions"`        // default: every Charter region
}

// QueryPlan returns the plan to run. It reads QueryPlanFile when set and
// otherwise queries every region after the global query.
func (c *Config) QueryPlan() (domain.QueryPlan, error) {
	if c.QueryPlanFile == "" {
		return domain.DefaultQueryPlan(c.Disaster), nil
	}
	return LoadQueryPlan(c.QueryPlanFile, c.Disaster)
}

// LoadQueryPlan reads a YAML query plan. disaster applies when the file does
// not name one.
func LoadQueryPlan(path, disaster string) (domain.QueryPlan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query plan: %w", err)
	}
	var f QueryPlanFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse query plan %s: %w", path, err)
	}

	if f.Disaster != "" {
		disaster = f.Disaster
	}
	includeGlobal := true
	if f.IncludeGlobal != nil {
		includeGlobal = *f.IncludeGlobal
	}
	regions := f.Regions
	if regions == nil {
		regions = domain.CharterRegions
	}
	return domain.NewQueryPlan(disaster, includeGlobal, regions)
}
