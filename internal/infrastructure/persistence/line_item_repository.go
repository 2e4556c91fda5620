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

// LineItemSortFields whitelists the sortable columns
var LineItemSortFields = map[string]bool{
	"sku":                true,
	"name":               true,
	"bin_location":       true,
	"ordered_quantity":   true,
	"fulfilled_quantity": true,
	"received_quantity":  true,
	"created_at":         true,
	"updated_at":         true,
}

// GormLineItemRepository implements LineItemRepository using GORM
type GormLineItemRepository struct {
	db *gorm.DB
}

// NewGormLineItemRepository creates a new GormLineItemRepository
func NewGormLineItemRepository(db *gorm.DB) *GormLineItemRepository {
	return &GormLineItemRepository{db: db}
}

// FindByID finds a line item by ID within a tenant
func (r *GormLineItemRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stockorder.LineItem, error) {
	var item stockorder.LineItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stockorder.ErrLineItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByOrder finds all line items of an order
func (r *GormLineItemRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]stockorder.LineItem, error) {
	var items []stockorder.LineItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("sku ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByOrderPaged finds line items of an order with filtering
func (r *GormLineItemRepository) FindByOrderPaged(ctx context.Context, tenantID, orderID uuid.UUID, fulfilled *bool, filter shared.Filter) ([]stockorder.LineItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&stockorder.LineItem{}).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID)

	if fulfilled != nil {
		query = query.Where("fulfilled = ?", *fulfilled)
	}
	if filter.Search != "" {
		query = query.Where("sku ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := "bin_location ASC, sku ASC"
	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, LineItemSortFields, "sku")
		orderBy = sortField + " " + ValidateSortOrder(filter.OrderDir)
	}

	var items []stockorder.LineItem
	if err := query.Order(orderBy).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Save creates or updates a line item
func (r *GormLineItemRepository) Save(ctx context.Context, item *stockorder.LineItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveAll creates or updates line items in bulk
func (r *GormLineItemRepository) SaveAll(ctx context.Context, items []stockorder.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Save(&items).Error
}

// ZeroUnreceived forces the received quantity to zero on items still
// flagged received=false, closing out lines the store never counted.
func (r *GormLineItemRepository) ZeroUnreceived(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&stockorder.LineItem{}).
		Where("tenant_id = ? AND order_id = ? AND received = ?", tenantID, orderID, false).
		Updates(map[string]any{
			"received_quantity": 0,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteByOrder removes all line items of an order
func (r *GormLineItemRepository) DeleteByOrder(ctx context.Context, tenantID, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&stockorder.LineItem{}, "tenant_id = ? AND order_id = ?", tenantID, orderID).Error
}

// Ensure GormLineItemRepository implements LineItemRepository
var _ stockorder.LineItemRepository = (*GormLineItemRepository)(nil)
