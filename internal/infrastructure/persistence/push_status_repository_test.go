package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stockup/backend/internal/domain/integration"
)

func newMockPushStatusRepository(t *testing.T) (*GormPushStatusRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPushStatusRepository(gormDB), mock, mockDB
}

func TestGormPushStatusRepository_AddProgress(t *testing.T) {
	t.Run("increments percentage in SQL", func(t *testing.T) {
		repo, mock, mockDB := newMockPushStatusRepository(t)
		defer mockDB.Close()

		statusID := uuid.New()

		mock.ExpectExec(`UPDATE "integration_push_statuses" SET "percentage_pushed"=percentage_pushed \+ \$1 WHERE id = \$2`).
			WithArgs(25.0, statusID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.AddProgress(context.Background(), statusID, 25.0)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error when the status record is gone", func(t *testing.T) {
		repo, mock, mockDB := newMockPushStatusRepository(t)
		defer mockDB.Close()

		statusID := uuid.New()

		mock.ExpectExec(`UPDATE "integration_push_statuses" SET "percentage_pushed"=percentage_pushed \+ \$1 WHERE id = \$2`).
			WithArgs(25.0, statusID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AddProgress(context.Background(), statusID, 25.0)

		assert.ErrorIs(t, err, integration.ErrPushStatusNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPushStatusRepository_FindByID(t *testing.T) {
	t.Run("finds existing status", func(t *testing.T) {
		repo, mock, mockDB := newMockPushStatusRepository(t)
		defer mockDB.Close()

		statusID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "operation_key", "total_batches", "percentage_pushed"}).
			AddRow(statusID, tenantID, "transfer-order-push", 3, 66.6)

		mock.ExpectQuery(`SELECT \* FROM "integration_push_statuses" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, statusID, 1).
			WillReturnRows(rows)

		status, err := repo.FindByID(context.Background(), tenantID, statusID)

		assert.NoError(t, err)
		assert.NotNil(t, status)
		assert.Equal(t, 3, status.TotalBatches)
		assert.InDelta(t, 66.6, status.PercentagePushed, 0.001)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for unknown status", func(t *testing.T) {
		repo, mock, mockDB := newMockPushStatusRepository(t)
		defer mockDB.Close()

		statusID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "integration_push_statuses" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, statusID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		status, err := repo.FindByID(context.Background(), tenantID, statusID)

		assert.Nil(t, status)
		assert.ErrorIs(t, err, integration.ErrPushStatusNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
