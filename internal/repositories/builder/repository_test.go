package builder

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syed-c/standzon-sub002/pkg/database"
	"github.com/syed-c/standzon-sub002/pkg/models"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "postgres"), logger)
	return NewRepository(db, logger), mock
}

func builderRows(builders ...models.Builder) *sqlmock.Rows {
	rows := sqlmock.NewRows(columns)
	for _, b := range builders {
		rows.AddRow(b.ID, b.TenantID, b.CompanyName, b.Email, b.Phone, b.ContactPerson, b.Website,
			b.City, b.Country, b.Verified, b.Rating, b.ProjectsCompleted, b.Source, b.GMBImported,
			b.ClaimStatus, nil, b.CreatedAt, b.UpdatedAt, nil)
	}
	return rows
}

func TestRepository_List(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("returns live builders in stable order", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`SELECT id, tenant_id, company_name, .* FROM builders WHERE tenant_id = \$1 AND deleted_at IS NULL ORDER BY created_at ASC, id ASC`).
			WillReturnRows(builderRows(
				models.Builder{ID: "b1", TenantID: "t1", CompanyName: "Expo Stands", Email: "info@expo.com", Verified: true, Rating: 4.5, ProjectsCompleted: 12, CreatedAt: created},
				models.Builder{ID: "b2", TenantID: "t1", CompanyName: "Stand Co", CreatedAt: created},
			))

		builders, err := repo.List(context.Background(), "t1", ListOptions{Limit: 100})
		require.NoError(t, err)
		require.Len(t, builders, 2)
		assert.Equal(t, "b1", builders[0].ID)
		assert.True(t, builders[0].Verified)
		assert.Equal(t, 4.5, builders[0].Rating)
		assert.Equal(t, 12, builders[0].ProjectsCompleted)
		assert.Nil(t, builders[0].DeletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("search filters by name or email", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`\(company_name ILIKE \$2 OR email ILIKE \$3\)`).
			WillReturnRows(builderRows())

		builders, err := repo.List(context.Background(), "t1", ListOptions{Search: " expo "})
		require.NoError(t, err)
		assert.Empty(t, builders)
		assert.NotNil(t, builders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("include deleted drops the deleted filter", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`FROM builders WHERE tenant_id = \$1 ORDER BY`).
			WillReturnRows(builderRows())

		_, err := repo.List(context.Background(), "t1", ListOptions{IncludeDeleted: true})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`FROM builders`).WillReturnError(errors.New("connection reset"))

		_, err := repo.List(context.Background(), "t1", ListOptions{})
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, httperror.GetStatusCode(err))
	})
}

func TestRepository_UpsertBatch(t *testing.T) {
	t.Run("assigns ids and tenant", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec(`INSERT INTO builders .* ON CONFLICT \(tenant_id, id\) DO UPDATE SET company_name = EXCLUDED.company_name`).
			WillReturnResult(sqlmock.NewResult(0, 2))

		builders := []models.Builder{
			{CompanyName: "Expo Stands"},
			{ID: "b2", CompanyName: "Stand Co", ClaimStatus: models.ClaimStatusVerified},
		}
		rows, err := repo.UpsertBatch(context.Background(), "t1", builders)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)
		assert.NotEmpty(t, builders[0].ID)
		assert.Equal(t, "t1", builders[0].TenantID)
		assert.Equal(t, models.ClaimStatusUnclaimed, builders[0].ClaimStatus)
		assert.Equal(t, models.ClaimStatusVerified, builders[1].ClaimStatus)
		assert.False(t, builders[1].CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to import", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		rows, err := repo.UpsertBatch(context.Background(), "t1", nil)
		require.NoError(t, err)
		assert.Zero(t, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_SoftDeleteAsDuplicates(t *testing.T) {
	t.Run("marks removed builders", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec(`UPDATE builders SET deleted_at = \$1, duplicate_of_id = \$2, updated_at = \$3 WHERE tenant_id = \$4 AND id IN \(\$5, \$6\) AND id <> \$7 AND deleted_at IS NULL`).
			WithArgs(sqlmock.AnyArg(), "b1", sqlmock.AnyArg(), "t1", "b2", "b3", "b1").
			WillReturnResult(sqlmock.NewResult(0, 2))

		rows, err := repo.SoftDeleteAsDuplicates(context.Background(), "t1", "b1", []string{"b2", "b3"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to remove", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		rows, err := repo.SoftDeleteAsDuplicates(context.Background(), "t1", "b1", nil)
		require.NoError(t, err)
		assert.Zero(t, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins an open transaction", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE builders`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ctx, tx, err := repo.DB().GetTx(context.Background(), nil)
		require.NoError(t, err)
		_, err = repo.SoftDeleteAsDuplicates(ctx, "t1", "b1", []string{"b2"})
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec(`DELETE FROM builders WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs("t1", "b1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Delete(context.Background(), "t1", "b1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectExec(`DELETE FROM builders`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), "t1", "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}

func TestRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`FROM builders WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs("t1", "b1").
			WillReturnRows(builderRows(models.Builder{ID: "b1", TenantID: "t1", CompanyName: "Expo Stands"}))

		b, err := repo.Get(context.Background(), "t1", "b1")
		require.NoError(t, err)
		assert.Equal(t, "Expo Stands", b.CompanyName)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTestRepository(t)
		mock.ExpectQuery(`FROM builders`).WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "t1", "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
	})
}
