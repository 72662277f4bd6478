// Package usecase implements the policy and quota validator for proposed
// change-sets.
package usecase

import (
	"context"

	policyDomain "github.com/allisson/provision/internal/policy/domain"
)

// RuleRepository defines persistence operations for policy rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *policyDomain.Rule) error
	ListByProject(ctx context.Context, projectID string) ([]*policyDomain.Rule, error)
}

// Validator evaluates a proposed change-set against permissions, quotas, and
// tenant policy rules. Validation never mutates state and is never retried:
// failures are synchronous, local, and user-correctable.
type Validator interface {
	Validate(ctx context.Context, request *policyDomain.Request) (*policyDomain.Result, error)
}
