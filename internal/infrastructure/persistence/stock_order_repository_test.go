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

	"github.com/stockup/backend/internal/domain/stockorder"
)

// newMockStockOrderRepository creates a GormStockOrderRepository with a mocked SQL connection
func newMockStockOrderRepository(t *testing.T) (*GormStockOrderRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormStockOrderRepository(gormDB), mock, mockDB
}

func TestGormStockOrderRepository_FindByID(t *testing.T) {
	t.Run("finds existing order", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "name", "store_id", "warehouse_id", "state", "item_count"}).
			AddRow(orderID, tenantID, "Weekly replenishment", uuid.New(), uuid.New(), "generated", 42)

		mock.ExpectQuery(`SELECT \* FROM "stock_orders" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, orderID, 1).
			WillReturnRows(rows)

		order, err := repo.FindByID(context.Background(), tenantID, orderID)

		assert.NoError(t, err)
		assert.NotNil(t, order)
		assert.Equal(t, orderID, order.ID)
		assert.Equal(t, stockorder.StateGenerated, order.State)
		assert.Equal(t, 42, order.ItemCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error for non-existent order", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stock_orders" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, orderID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		order, err := repo.FindByID(context.Background(), tenantID, orderID)

		assert.Error(t, err)
		assert.Nil(t, order)
		assert.Equal(t, stockorder.ErrOrderNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockOrderRepository_TransitionState(t *testing.T) {
	t.Run("transitions when order is in expected state", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`UPDATE "stock_orders" SET "state"=\$1,"updated_at"=\$2 WHERE tenant_id = \$3 AND id = \$4 AND state = \$5`).
			WithArgs(stockorder.StateFulfilmentInProcess, sqlmock.AnyArg(), tenantID, orderID, stockorder.StateFulfilmentPending).
			WillReturnResult(sqlmock.NewResult(0, 1))

		moved, err := repo.TransitionState(context.Background(), tenantID, orderID,
			stockorder.StateFulfilmentPending, stockorder.StateFulfilmentInProcess)

		assert.NoError(t, err)
		assert.True(t, moved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports lost race when another writer already moved the order", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`UPDATE "stock_orders" SET "state"=\$1,"updated_at"=\$2 WHERE tenant_id = \$3 AND id = \$4 AND state = \$5`).
			WithArgs(stockorder.StateFulfilmentInProcess, sqlmock.AnyArg(), tenantID, orderID, stockorder.StateFulfilmentPending).
			WillReturnResult(sqlmock.NewResult(0, 0))

		moved, err := repo.TransitionState(context.Background(), tenantID, orderID,
			stockorder.StateFulfilmentPending, stockorder.StateFulfilmentInProcess)

		assert.NoError(t, err)
		assert.False(t, moved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockOrderRepository_Delete(t *testing.T) {
	t.Run("deletes existing order", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`DELETE FROM "stock_orders" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, orderID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), tenantID, orderID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns error when order does not exist", func(t *testing.T) {
		repo, mock, mockDB := newMockStockOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		tenantID := uuid.New()

		mock.ExpectExec(`DELETE FROM "stock_orders" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, orderID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), tenantID, orderID)

		assert.Equal(t, stockorder.ErrOrderNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
