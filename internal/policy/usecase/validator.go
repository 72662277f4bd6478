package usecase

import (
	"context"
	"fmt"
	"sort"

	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
	ledgerUseCase "github.com/allisson/provision/internal/ledger/usecase"
	policyDomain "github.com/allisson/provision/internal/policy/domain"
)

// validator implements Validator. The three steps (permission, quota, policy
// rules) are all evaluated, never short-circuited, so one call returns the
// complete violation list.
type validator struct {
	grantReader ledgerUseCase.GrantReader
	quotaLedger ledgerUseCase.QuotaLedger
	ruleRepo    RuleRepository
}

// NewValidator creates a new policy and quota validator.
func NewValidator(
	grantReader ledgerUseCase.GrantReader,
	quotaLedger ledgerUseCase.QuotaLedger,
	ruleRepo RuleRepository,
) Validator {
	return &validator{
		grantReader: grantReader,
		quotaLedger: quotaLedger,
		ruleRepo:    ruleRepo,
	}
}

// Validate evaluates a proposed change-set and returns the full validation result.
func (v *validator) Validate(
	ctx context.Context,
	request *policyDomain.Request,
) (*policyDomain.Result, error) {
	result := &policyDomain.Result{}

	for _, resource := range request.Resources {
		result.CostEstimate += resource.UnitCost
	}

	if err := v.checkPermissions(ctx, request, result); err != nil {
		return nil, err
	}
	if err := v.checkQuotas(ctx, request, result); err != nil {
		return nil, err
	}
	if err := v.checkRules(ctx, request, result); err != nil {
		return nil, err
	}

	result.IsValid = len(result.Violations) == 0
	return result, nil
}

// checkPermissions verifies the caller holds a grant covering each resource
// type's capability, including size and region constraints.
func (v *validator) checkPermissions(
	ctx context.Context,
	request *policyDomain.Request,
	result *policyDomain.Result,
) error {
	grants, err := v.grantReader.ActiveGrants(ctx, request.CallerID, request.ProjectID)
	if err != nil {
		return err
	}

	byCapability := make(map[string][]*ledgerDomain.PermissionGrant)
	for _, grant := range grants {
		byCapability[grant.Capability] = append(byCapability[grant.Capability], grant)
	}

	for _, resource := range request.Resources {
		capability := policyDomain.DeployCapability(resource.Type)

		covered := false
		for _, grant := range byCapability[capability] {
			if grant.AllowsRegion(resource.Region()) && grant.AllowsSize(resource.Size()) {
				covered = true
				break
			}
		}

		if !covered {
			result.Violations = append(result.Violations, policyDomain.Violation{
				Code: fmt.Sprintf("permission_denied:%s", capability),
				Message: fmt.Sprintf(
					"caller %q holds no grant covering capability %q with the requested region/size",
					request.CallerID, capability,
				),
				ResourceType: resource.Type,
			})
		}
	}

	return nil
}

// checkQuotas verifies used + requested <= limit per resource type.
func (v *validator) checkQuotas(
	ctx context.Context,
	request *policyDomain.Request,
	result *policyDomain.Result,
) error {
	records, err := v.quotaLedger.Quotas(ctx, request.ProjectID)
	if err != nil {
		return err
	}

	byType := make(map[string]*ledgerDomain.QuotaRecord, len(records))
	for _, record := range records {
		byType[record.ResourceType] = record
	}

	requested := make(map[string]int)
	for _, resource := range request.Resources {
		requested[resource.Type]++
	}

	// Sorted for deterministic violation order.
	types := make([]string, 0, len(requested))
	for resourceType := range requested {
		types = append(types, resourceType)
	}
	sort.Strings(types)

	for _, resourceType := range types {
		count := requested[resourceType]
		record, ok := byType[resourceType]
		if !ok {
			result.Violations = append(result.Violations, policyDomain.Violation{
				Code:         fmt.Sprintf("quota_exceeded:%s", resourceType),
				Message:      fmt.Sprintf("no quota configured for resource type %q", resourceType),
				ResourceType: resourceType,
			})
			continue
		}
		if record.Used+count > record.Limit {
			result.Violations = append(result.Violations, policyDomain.Violation{
				Code: fmt.Sprintf("quota_exceeded:%s", resourceType),
				Message: fmt.Sprintf(
					"resource type %q: requested %d, remaining %d",
					resourceType, count, record.Remaining(),
				),
				ResourceType: resourceType,
			})
		}
	}

	return nil
}

// checkRules evaluates tenant policy rules in ascending priority order.
// Within one rule type the first matching deny wins; warn-effect rules only
// append warnings. Priority ties break by rule ID for determinism.
func (v *validator) checkRules(
	ctx context.Context,
	request *policyDomain.Request,
	result *policyDomain.Result,
) error {
	rules, err := v.ruleRepo.ListByProject(ctx, request.ProjectID)
	if err != nil {
		return err
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})

	denied := make(map[policyDomain.RuleType]bool)

	for _, rule := range rules {
		if denied[rule.RuleType] {
			continue
		}

		violation, warning := v.evaluateRule(rule, request, result.CostEstimate)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if violation != nil {
			if rule.Effect == policyDomain.WarnEffect {
				result.Warnings = append(result.Warnings, violation.Message)
				continue
			}
			result.Violations = append(result.Violations, *violation)
			denied[rule.RuleType] = true
		}
	}

	return nil
}

// evaluateRule checks one rule against the request. It returns a violation
// when the rule matches, plus an optional standalone warning (security rules
// with a human-approval requirement warn instead of denying).
func (v *validator) evaluateRule(
	rule *policyDomain.Rule,
	request *policyDomain.Request,
	costEstimate float64,
) (*policyDomain.Violation, string) {
	switch rule.RuleType {
	case policyDomain.CostCeilingRule:
		maxCost, ok := rule.MaxCost()
		if !ok {
			return nil, ""
		}
		if costEstimate > maxCost {
			return &policyDomain.Violation{
				Code: "policy_denied:cost_ceiling",
				Message: fmt.Sprintf(
					"estimated cost %.2f exceeds ceiling %.2f", costEstimate, maxCost,
				),
			}, ""
		}

	case policyDomain.SecurityRule:
		denylist := rule.Denylist()
		for _, resource := range request.Resources {
			for key, forbidden := range denylist {
				value, ok := resource.Config[key].(string)
				if !ok {
					continue
				}
				for _, banned := range forbidden {
					if value != banned {
						continue
					}
					message := fmt.Sprintf(
						"resource type %q: configuration %s=%q is denylisted",
						resource.Type, key, value,
					)
					if rule.RequiresApproval() {
						return nil, message + " (requires human approval)"
					}
					return &policyDomain.Violation{
						Code:         "policy_denied:security",
						Message:      message,
						ResourceType: resource.Type,
					}, ""
				}
			}
		}

	case policyDomain.RegionRule:
		allowed := rule.AllowedRegions()
		if len(allowed) == 0 {
			return nil, ""
		}
		allowedSet := make(map[string]bool, len(allowed))
		for _, region := range allowed {
			allowedSet[region] = true
		}
		for _, resource := range request.Resources {
			region := resource.Region()
			if region == "" || allowedSet[region] {
				continue
			}
			return &policyDomain.Violation{
				Code: "policy_denied:region",
				Message: fmt.Sprintf(
					"resource type %q: region %q is not permitted by project policy",
					resource.Type, region,
				),
				ResourceType: resource.Type,
			}, ""
		}
	}

	return nil, ""
}
