package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockup/backend/internal/domain/integration"
)

// GormPushStatusRepository implements PushStatusRepository using GORM
type GormPushStatusRepository struct {
	db *gorm.DB
}

// NewGormPushStatusRepository creates a new GormPushStatusRepository
func NewGormPushStatusRepository(db *gorm.DB) *GormPushStatusRepository {
	return &GormPushStatusRepository{db: db}
}

// Create inserts a new push status record
func (r *GormPushStatusRepository) Create(ctx context.Context, status *integration.PushStatus) error {
	return r.db.WithContext(ctx).Create(status).Error
}

// FindByID finds a push status by ID within a tenant
func (r *GormPushStatusRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*integration.PushStatus, error) {
	var status integration.PushStatus
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrPushStatusNotFound
		}
		return nil, err
	}
	return &status, nil
}

// AddProgress atomically increments the pushed percentage. The increment
// happens in SQL so concurrently completing batches never lose updates.
func (r *GormPushStatusRepository) AddProgress(ctx context.Context, id uuid.UUID, delta float64) error {
	result := r.db.WithContext(ctx).
		Model(&integration.PushStatus{}).
		Where("id = ?", id).
		Update("percentage_pushed", gorm.Expr("percentage_pushed + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrPushStatusNotFound
	}
	return nil
}

// Delete removes a push status record
func (r *GormPushStatusRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&integration.PushStatus{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrPushStatusNotFound
	}
	return nil
}

// Ensure GormPushStatusRepository implements PushStatusRepository
var _ integration.PushStatusRepository = (*GormPushStatusRepository)(nil)
