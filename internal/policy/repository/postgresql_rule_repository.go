// Package repository implements data persistence for tenant policy rules.
// Repositories support both PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	policyDomain "github.com/allisson/provision/internal/policy/domain"
)

// PostgreSQLRuleRepository implements policy rule persistence for PostgreSQL databases.
type PostgreSQLRuleRepository struct {
	db *sql.DB
}

// NewPostgreSQLRuleRepository creates a new PostgreSQL rule repository.
func NewPostgreSQLRuleRepository(db *sql.DB) *PostgreSQLRuleRepository {
	return &PostgreSQLRuleRepository{db: db}
}

// Create inserts a new policy rule.
func (p *PostgreSQLRuleRepository) Create(ctx context.Context, rule *policyDomain.Rule) error {
	querier := database.GetTx(ctx, p.db)

	params, err := json.Marshal(rule.Params)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rule params")
	}

	query := `INSERT INTO policy_rules (id, project_id, rule_type, priority, effect, params, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		rule.ID,
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
func (p *PostgreSQLRuleRepository) ListByProject(
	ctx context.Context,
	projectID string,
) ([]*policyDomain.Rule, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, project_id, rule_type, priority, effect, params, created_at
			  FROM policy_rules
			  WHERE project_id = $1
			  ORDER BY priority, id`

	rows, err := querier.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rules")
	}
	defer rows.Close()

	return scanRules(rows)
}

// scanRules converts result rows into rule entities, decoding the params JSON column.
func scanRules(rows *sql.Rows) ([]*policyDomain.Rule, error) {
	var rules []*policyDomain.Rule
	for rows.Next() {
		var rule policyDomain.Rule
		var params []byte
		if err := rows.Scan(
			&rule.ID,
			&rule.ProjectID,
			&rule.RuleType,
			&rule.Priority,
			&rule.Effect,
			&params,
			&rule.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rule")
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &rule.Params); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal rule params")
			}
		}
		rules = append(rules, &rule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rules")
	}
	return rules, nil
}
