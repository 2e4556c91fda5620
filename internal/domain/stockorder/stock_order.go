package stockorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/stockup/backend/internal/domain/shared"
)

// StockOrder represents a replenishment order aggregate root.
// It tracks goods ordered from a warehouse for delivery to a store, from
// generation out of ERP inventory through fulfilment, transfer to the ERP
// and receiving at the store.
type StockOrder struct {
	shared.TenantAggregateRoot
	Name        string    `gorm:"type:varchar(200);not null"`
	StoreID     uuid.UUID `gorm:"type:uuid;not null;index"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	State       State     `gorm:"type:varchar(32);not null;default:'empty';index"`
	// TransferOrderNumber is the ERP document number once the order has been
	// pushed as a transfer order.
	TransferOrderNumber string `gorm:"type:varchar(64)"`
	// ConsignmentID is the POS-side consignment created for this order.
	ConsignmentID string `gorm:"type:varchar(64)"`
	ItemCount     int    `gorm:"not null;default:0"`
	GeneratedAt   *time.Time
	ApprovedAt    *time.Time
	FulfilledAt   *time.Time
	ReceivedAt    *time.Time
	CompletedAt   *time.Time
}

// TableName returns the database table name
func (StockOrder) TableName() string {
	return "stock_orders"
}

// NewStockOrder creates a new stock order in the empty state
func NewStockOrder(tenantID uuid.UUID, name string, storeID, warehouseID uuid.UUID) (*StockOrder, error) {
	if name == "" {
		return nil, ErrInvalidOrderName
	}
	if storeID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, ErrInvalidStoreReference
	}
	return &StockOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		StoreID:             storeID,
		WarehouseID:         warehouseID,
		State:               StateEmpty,
	}, nil
}

// TransitionTo moves the order to the target state, validating the move
func (o *StockOrder) TransitionTo(target State) error {
	if !target.IsValid() {
		return ErrInvalidState
	}
	if !o.State.CanTransitionTo(target) {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	switch target {
	case StateGenerated:
		o.GeneratedAt = &now
	case StateFulfilmentPending:
		o.ApprovedAt = &now
	case StateReceivingPending:
		o.FulfilledAt = &now
	case StateComplete:
		o.ReceivedAt = &now
		o.CompletedAt = &now
	}
	o.State = target
	o.UpdatedAt = now
	o.AddDomainEvent(NewStateChangedEvent(o, target))
	return nil
}

// MarkGenerated records the generated item count and moves to generated
func (o *StockOrder) MarkGenerated(itemCount int) error {
	if itemCount < 0 {
		return ErrInvalidItemCount
	}
	o.ItemCount = itemCount
	return o.TransitionTo(StateGenerated)
}

// SetTransferOrderNumber records the ERP document number
func (o *StockOrder) SetTransferOrderNumber(number string) {
	o.TransferOrderNumber = number
	o.UpdatedAt = time.Now()
}

// SetConsignmentID records the POS consignment identifier
func (o *StockOrder) SetConsignmentID(id string) {
	o.ConsignmentID = id
	o.UpdatedAt = time.Now()
}

// CanEdit returns true if direct user edits are allowed in the current state
func (o *StockOrder) CanEdit() bool {
	return o.State.AllowsUserEdits()
}
