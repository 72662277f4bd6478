package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/allisson/provision/internal/database"
	apperrors "github.com/allisson/provision/internal/errors"
	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

// PostgreSQLGrantRepository implements permission grant persistence for PostgreSQL databases.
type PostgreSQLGrantRepository struct {
	db *sql.DB
}

// NewPostgreSQLGrantRepository creates a new PostgreSQL grant repository.
func NewPostgreSQLGrantRepository(db *sql.DB) *PostgreSQLGrantRepository {
	return &PostgreSQLGrantRepository{db: db}
}

// Create inserts a new permission grant.
func (p *PostgreSQLGrantRepository) Create(
	ctx context.Context,
	grant *ledgerDomain.PermissionGrant,
) error {
	querier := database.GetTx(ctx, p.db)

	constraints, err := json.Marshal(grant.Constraints)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant constraints")
	}

	query := `INSERT INTO permission_grants (id, user_id, project_id, capability, constraints, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = querier.ExecContext(
		ctx,
		query,
		grant.ID,
		grant.UserID,
		grant.ProjectID,
		grant.Capability,
		constraints,
		grant.ExpiresAt,
		grant.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create grant")
	}
	return nil
}

// ListActive retrieves the unexpired grants a user holds on a project.
func (p *PostgreSQLGrantRepository) ListActive(
	ctx context.Context,
	userID string,
	projectID string,
	now time.Time,
) ([]*ledgerDomain.PermissionGrant, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, project_id, capability, constraints, expires_at, created_at
			  FROM permission_grants
			  WHERE user_id = $1 AND project_id = $2 AND (expires_at IS NULL OR expires_at > $3)
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, userID, projectID, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list grants")
	}
	defer rows.Close()

	return scanGrants(rows)
}

// scanGrants converts result rows into grant entities, decoding the
// constraints JSON column.
func scanGrants(rows *sql.Rows) ([]*ledgerDomain.PermissionGrant, error) {
	var grants []*ledgerDomain.PermissionGrant
	for rows.Next() {
		var grant ledgerDomain.PermissionGrant
		var constraints []byte
		if err := rows.Scan(
			&grant.ID,
			&grant.UserID,
			&grant.ProjectID,
			&grant.Capability,
			&constraints,
			&grant.ExpiresAt,
			&grant.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan grant")
		}
		if len(constraints) > 0 {
			if err := json.Unmarshal(constraints, &grant.Constraints); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal grant constraints")
			}
		}
		grants = append(grants, &grant)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate grants")
	}
	return grants, nil
}
