package integration

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockup/backend/internal/domain/shared"
)

// PushStatus tracks the progress of one long-running batch push so the UI
// can render a progress bar while a worker run is in flight. The percentage
// is incremented per finished batch and intentionally counts failed batches
// too; it measures work consumed, not work succeeded.
type PushStatus struct {
	shared.TenantAggregateRoot
	// OperationKey correlates the status with the worker run that owns it
	OperationKey string `gorm:"type:varchar(128);not null;index"`
	// TotalBatches is the number of batches the push was split into
	TotalBatches int `gorm:"not null;default:0"`
	// PercentagePushed accumulates toward 100 as batches finish
	PercentagePushed float64 `gorm:"not null;default:0"`
}

// TableName returns the database table name
func (PushStatus) TableName() string {
	return "integration_push_statuses"
}

// NewPushStatus creates a progress record for a batch push
func NewPushStatus(tenantID uuid.UUID, operationKey string, totalBatches int) (*PushStatus, error) {
	if tenantID == uuid.Nil || operationKey == "" || totalBatches <= 0 {
		return nil, ErrInvalidInput
	}
	return &PushStatus{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OperationKey:        operationKey,
		TotalBatches:        totalBatches,
	}, nil
}

// PushStatusRepository provides access to push progress records
type PushStatusRepository interface {
	Create(ctx context.Context, status *PushStatus) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*PushStatus, error)
	// AddProgress atomically increments the pushed percentage. Concurrent
	// batch completions must not lose increments.
	AddProgress(ctx context.Context, id uuid.UUID, delta float64) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
