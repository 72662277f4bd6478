package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/provision/internal/errors"
	ledgerDomain "github.com/allisson/provision/internal/ledger/domain"
)

var quotaColumns = []string{"project_id", "resource_type", "quota_limit", "used", "updated_at"}

func TestPostgreSQLQuotaRepository_ListByProject(t *testing.T) {
	t.Run("ReturnsRecords", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLQuotaRepository(db)
		now := time.Now().UTC()

		rows := sqlmock.NewRows(quotaColumns).
			AddRow("project-1", "storage", 100, 20, now).
			AddRow("project-1", "vm", 10, 3, now)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT project_id, resource_type, quota_limit, used, updated_at")).
			WithArgs("project-1").
			WillReturnRows(rows)

		records, err := repo.ListByProject(context.Background(), "project-1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "storage", records[0].ResourceType)
		assert.Equal(t, 80, records[0].Remaining())
		assert.Equal(t, "vm", records[1].ResourceType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyProject", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLQuotaRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT project_id, resource_type, quota_limit, used, updated_at")).
			WithArgs("project-2").
			WillReturnRows(sqlmock.NewRows(quotaColumns))

		records, err := repo.ListByProject(context.Background(), "project-2")
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLQuotaRepository_AdjustUsed(t *testing.T) {
	t.Run("Adjusts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLQuotaRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE quotas")).
			WithArgs(2, sqlmock.AnyArg(), "project-1", "vm").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AdjustUsed(context.Background(), "project-1", "vm", 2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownQuota", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLQuotaRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE quotas")).
			WithArgs(1, sqlmock.AnyArg(), "project-1", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.AdjustUsed(context.Background(), "project-1", "missing", 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgreSQLQuotaRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLQuotaRepository(db)
	record := &ledgerDomain.QuotaRecord{
		ProjectID:    "project-1",
		ResourceType: "vm",
		Limit:        10,
		Used:         0,
		UpdatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quotas")).
		WithArgs(record.ProjectID, record.ResourceType, record.Limit, record.Used, record.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}
