package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

var grantColumns = []string{
	"id", "user_id", "project_id", "capability", "constraints", "expires_at", "created_at",
}

func testGrant(t *testing.T) *ledgerDomain.PermissionGrant {
	t.Helper()
	return &ledgerDomain.PermissionGrant{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     "alice",
		ProjectID:  "project-1",
		Capability: "deploy",
		Constraints: ledgerDomain.GrantConstraints{
			MaxSize: 4,
			Regions: []string{"us-east-1"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgreSQLGrantRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLGrantRepository(db)
	grant := testGrant(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO permission_grants")).
		WithArgs(
			grant.ID, grant.UserID, grant.ProjectID, grant.Capability,
			sqlmock.AnyArg(), nil, grant.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), grant))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLGrantRepository_ListActive(t *testing.T) {
	t.Run("DecodesConstraints", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLGrantRepository(db)
		grant := testGrant(t)
		now := time.Now().UTC()

		constraints, err := json.Marshal(grant.Constraints)
		require.NoError(t, err)

		rows := sqlmock.NewRows(grantColumns).AddRow(
			grant.ID, grant.UserID, grant.ProjectID, grant.Capability,
			constraints, nil, grant.CreatedAt,
		)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, project_id, capability")).
			WithArgs("alice", "project-1", now).
			WillReturnRows(rows)

		grants, err := repo.ListActive(context.Background(), "alice", "project-1", now)
		require.NoError(t, err)
		require.Len(t, grants, 1)
		assert.Equal(t, grant.Capability, grants[0].Capability)
		assert.Equal(t, 4, grants[0].Constraints.MaxSize)
		assert.Equal(t, []string{"us-east-1"}, grants[0].Constraints.Regions)
		assert.Nil(t, grants[0].ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoGrants", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLGrantRepository(db)
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, project_id, capability")).
			WithArgs("bob", "project-1", now).
			WillReturnRows(sqlmock.NewRows(grantColumns))

		grants, err := repo.ListActive(context.Background(), "bob", "project-1", now)
		require.NoError(t, err)
		assert.Empty(t, grants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
