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

// MySQLGrantRepository implements permission grant persistence for MySQL databases.
type MySQLGrantRepository struct {
	db *sql.DB
}

// NewMySQLGrantRepository creates a new MySQL grant repository.
func NewMySQLGrantRepository(db *sql.DB) *MySQLGrantRepository {
	return &MySQLGrantRepository{db: db}
}

// Create inserts a new permission grant.
func (m *MySQLGrantRepository) Create(
	ctx context.Context,
	grant *ledgerDomain.PermissionGrant,
) error {
	querier := database.GetTx(ctx, m.db)

	constraints, err := json.Marshal(grant.Constraints)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant constraints")
	}

	id, err := grant.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal grant id")
	}

	query := `INSERT INTO permission_grants (id, user_id, project_id, capability, constraints, expires_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLGrantRepository) ListActive(
	ctx context.Context,
	userID string,
	projectID string,
	now time.Time,
) ([]*ledgerDomain.PermissionGrant, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, project_id, capability, constraints, expires_at, created_at
			  FROM permission_grants
			  WHERE user_id = ? AND project_id = ? AND (expires_at IS NULL OR expires_at > ?)
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, userID, projectID, now)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list grants")
	}
	defer rows.Close()

	return scanGrants(rows)
}
