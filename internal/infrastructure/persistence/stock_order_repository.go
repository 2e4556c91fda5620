package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockup/backend/internal/domain/shared"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// StockOrderSortFields whitelists the sortable columns
var StockOrderSortFields = map[string]bool{
	"name":       true,
	"state":      true,
	"item_count": true,
	"created_at": true,
	"updated_at": true,
}

// GormStockOrderRepository implements StockOrderRepository using GORM
type GormStockOrderRepository struct {
	db *gorm.DB
}

// NewGormStockOrderRepository creates a new GormStockOrderRepository
func NewGormStockOrderRepository(db *gorm.DB) *GormStockOrderRepository {
	return &GormStockOrderRepository{db: db}
}

// FindByID finds a stock order by ID within a tenant
func (r *GormStockOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stockorder.StockOrder, error) {
	var order stockorder.StockOrder
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stockorder.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindAll finds all stock orders for a tenant
func (r *GormStockOrderRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stockorder.StockOrder, error) {
	var orders []stockorder.StockOrder
	query := r.applyFilter(r.db.WithContext(ctx).Model(&stockorder.StockOrder{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByState finds stock orders in a given state for a tenant
func (r *GormStockOrderRepository) FindByState(ctx context.Context, tenantID uuid.UUID, state stockorder.State, filter shared.Filter) ([]stockorder.StockOrder, error) {
	var orders []stockorder.StockOrder
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stockorder.StockOrder{}).
			Where("tenant_id = ? AND state = ?", tenantID, state),
		filter,
	)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates a stock order
func (r *GormStockOrderRepository) Save(ctx context.Context, order *stockorder.StockOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// TransitionState performs a guarded state update. The WHERE clause on the
// current state makes the transition single-shot: of two concurrent callers
// only one matches a row, the other sees RowsAffected == 0.
func (r *GormStockOrderRepository) TransitionState(ctx context.Context, tenantID, id uuid.UUID, from, to stockorder.State) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&stockorder.StockOrder{}).
		Where("tenant_id = ? AND id = ? AND state = ?", tenantID, id, from).
		Updates(map[string]any{
			"state":      to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete deletes a stock order within a tenant
func (r *GormStockOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&stockorder.StockOrder{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return stockorder.ErrOrderNotFound
	}
	return nil
}

// Count counts stock orders for a tenant
func (r *GormStockOrderRepository) Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&stockorder.StockOrder{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormStockOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, StockOrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStockOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "state":
			query = query.Where("state = ?", value)
		case "store_id":
			query = query.Where("store_id = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		}
	}

	return query
}

// Ensure GormStockOrderRepository implements StockOrderRepository
var _ stockorder.StockOrderRepository = (*GormStockOrderRepository)(nil)
