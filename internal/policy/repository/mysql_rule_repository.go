package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	policyDomain "github.com/allisson/provision/internal/policy/domain"
)

// MySQLRuleRepository implements policy rule persistence for MySQL databases.
type MySQLRuleRepository struct {
	db *sql.DB
}

// NewMySQLRuleRepository creates a new MySQL rule repository.
func NewMySQLRuleRepository(db *sql.DB) *MySQLRuleRepository {
	return &MySQLRuleRepository{db: db}
}

// Create inserts a new policy rule.
func (m *MySQLRuleRepository) Create(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, m.db)

	params, err := json.Marshal(rule.Params)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rule params")
	}

	id, err := rule.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rule id")
	}

	query := `INSERT INTO policy_rules (id, project_id, rule_type, priority, effect, params, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		rule.ProjectID,
		rule.RuleType,
		rule.Priority,
		rule.Effect,
		params,
		rule.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rule")
	}
	return nil
}

// ListByProject retrieves all policy rules for a project in priority order.
func (m *MySQLRuleRepository) ListByProject(
	ctx context.Context,
	projectID string,
) ([]*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, project_id, rule_type, priority, effect, params, created_at
			  FROM policy_rules
			  WHERE project_id = ?
			  ORDER BY priority, id`

	rows, err := querier.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rules")
	}
	defer rows.Close()

	return scanRules(rows)
}
