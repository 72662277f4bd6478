// Package domain defines tenant policy rules and validation results.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RuleType identifies what a policy rule constrains.
type RuleType string

const (
	// CostCeilingRule compares the session's estimated cost against a ceiling.
	CostCeilingRule RuleType = "cost_ceiling"
	// SecurityRule forbids denylisted configuration values.
	SecurityRule RuleType = "security"
	// RegionRule restricts which regions resources may be placed in.
	RegionRule RuleType = "region"
)

// Effect is what a matching rule does: deny blocks the session, warn only
// annotates the validation result.
type Effect string

const (
	DenyEffect Effect = "deny"
	WarnEffect Effect = "warn"
)

// Rule is a tenant-scoped policy constraint. Lower priority numbers take
// precedence; within one rule type the first matching deny wins.
//
// Params by rule type:
//   - cost_ceiling: {"max_cost": <number>}
//   - security: {"denylist": {"<config key>": ["<value>", ...]}, "require_approval": <bool>}
//   - region: {"allowed_regions": ["<region>", ...]}
type Rule struct {
	ID        uuid.UUID
	ProjectID string
	RuleType  RuleType
	Priority  int
	Effect    Effect
	Params    map[string]any
	CreatedAt time.Time
}

// MaxCost returns the cost ceiling for a cost_ceiling rule, or false when the
// param is missing or malformed.
func (r *Rule) MaxCost() (float64, bool) {
	value, ok := r.Params["max_cost"]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Denylist returns the forbidden configuration values for a security rule,
// keyed by configuration key.
func (r *Rule) Denylist() map[string][]string {
	raw, ok := r.Params["denylist"].(map[string]any)
	if !ok {
		return nil
	}
	denylist := make(map[string][]string, len(raw))
	for key, values := range raw {
		list, ok := values.([]any)
		if !ok {
			continue
		}
		for _, value := range list {
			if s, ok := value.(string); ok {
				denylist[key] = append(denylist[key], s)
			}
		}
	}
	return denylist
}

// RequiresApproval reports whether a security rule downgrades its match to a
// human-approval warning instead of a hard deny.
func (r *Rule) RequiresApproval() bool {
	v, ok := r.Params["require_approval"].(bool)
	return ok && v
}

// AllowedRegions returns the regions permitted by a region rule.
func (r *Rule) AllowedRegions() []string {
	raw, ok := r.Params["allowed_regions"].([]any)
	if !ok {
		return nil
	}
	regions := make([]string, 0, len(raw))
	for _, value := range raw {
		if s, ok := value.(string); ok {
			regions = append(regions, s)
		}
	}
	return regions
}
