package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlanRank is one tier of the compensation plan as written in the plan file.
type PlanRank struct {
	Name           string  `yaml:"name"`
	Level          int     `yaml:"level"`
	PVThreshold    float64 `yaml:"pv_threshold"`
	GVThreshold    float64 `yaml:"gv_threshold"`
	CommissionRate float64 `yaml:"commission_rate"`
}

// Plan is the default compensation plan used to seed an empty ranks table.
type Plan struct {
	Ranks []PlanRank `yaml:"ranks"`
}

// LoadPlan reads and validates a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}
	return ParsePlan(raw)
}

// ParsePlan decodes a plan document. Ranks are returned sorted by level.
func ParsePlan(raw []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("invalid plan yaml: %w", err)
	}
	if len(plan.Ranks) == 0 {
		return nil, fmt.Errorf("plan defines no ranks")
	}

	names := make(map[string]bool, len(plan.Ranks))
	levels := make(map[int]bool, len(plan.Ranks))
	for i, r := range plan.Ranks {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, fmt.Errorf("rank %d has no name", i)
		}
		key := strings.ToLower(name)
		if names[key] {
			return nil, fmt.Errorf("duplicate rank name %q", name)
		}
		if levels[r.Level] {
			return nil, fmt.Errorf("duplicate rank level %d", r.Level)
		}
		if r.PVThreshold < 0 || r.GVThreshold < 0 {
			return nil, fmt.Errorf("rank %q has a negative threshold", name)
		}
		if r.CommissionRate < 0 || r.CommissionRate > 100 {
			return nil, fmt.Errorf("rank %q commission rate must be between 0 and 100", name)
		}
		names[key] = true
		levels[r.Level] = true
		plan.Ranks[i].Name = name
	}

	sort.Slice(plan.Ranks, func(i, j int) bool { return plan.Ranks[i].Level < plan.Ranks[j].Level })
	return &plan, nil
}
