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

func TestMySQLQuotaRepository_ListByProject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLQuotaRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(quotaColumns).
		AddRow("project-1", "vm", 10, 3, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT project_id, resource_type, quota_limit, used, updated_at")).
		WithArgs("project-1").
		WillReturnRows(rows)

	records, err := repo.ListByProject(context.Background(), "project-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].Remaining())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLQuotaRepository_AdjustUsed(t *testing.T) {
	t.Run("Adjusts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMySQLQuotaRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE quotas")).
			WithArgs(-1, sqlmock.AnyArg(), "project-1", "vm").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AdjustUsed(context.Background(), "project-1", "vm", -1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownQuota", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMySQLQuotaRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE quotas")).
			WithArgs(1, sqlmock.AnyArg(), "project-1", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.AdjustUsed(context.Background(), "project-1", "missing", 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLQuotaRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLQuotaRepository(db)
	record := &ledgerDomain.QuotaRecord{
		ProjectID:    "project-1",
		ResourceType: "storage",
		Limit:        100,
		Used:         0,
		UpdatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quotas")).
		WithArgs(record.ProjectID, record.ResourceType, record.Limit, record.Used, record.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}
