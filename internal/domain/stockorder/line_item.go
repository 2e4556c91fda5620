package stockorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem represents one product line in a stock order.
// Fulfilled quantity above the ordered quantity is tolerated; a zero
// fulfilled quantity with fulfilled=false simply means not yet handled.
type LineItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"`
	SKU       string    `gorm:"type:varchar(64);not null;index"`
	Name      string    `gorm:"type:varchar(200)"`
	// BinLocation is the warehouse picking hint
	BinLocation       string          `gorm:"type:varchar(64)"`
	OrderedQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FulfilledQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Approved          bool            `gorm:"not null;default:false"`
	Fulfilled         bool            `gorm:"not null;default:false"`
	Received          bool            `gorm:"not null;default:false"`
	// ConsignmentProductID is the POS-side consignment line identifier
	ConsignmentProductID string    `gorm:"type:varchar(64)"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the database table name
func (LineItem) TableName() string {
	return "stock_order_line_items"
}

// NewLineItem creates a line item for an order
func NewLineItem(orderID, tenantID, productID uuid.UUID, sku, name string, orderedQuantity decimal.Decimal) (*LineItem, error) {
	if orderID == uuid.Nil || productID == uuid.Nil {
		return nil, ErrInvalidLineItem
	}
	if sku == "" {
		return nil, ErrInvalidLineItem
	}
	if orderedQuantity.IsNegative() {
		return nil, ErrInvalidQuantity
	}
	now := time.Now()
	return &LineItem{
		ID:                uuid.New(),
		OrderID:           orderID,
		TenantID:          tenantID,
		ProductID:         productID,
		SKU:               sku,
		Name:              name,
		OrderedQuantity:   orderedQuantity,
		FulfilledQuantity: decimal.Zero,
		ReceivedQuantity:  decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Approve marks the line as approved with the final ordered quantity
func (i *LineItem) Approve(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	i.OrderedQuantity = quantity
	i.Approved = true
	i.UpdatedAt = time.Now()
	return nil
}

// Fulfil records the picked quantity
func (i *LineItem) Fulfil(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	i.FulfilledQuantity = quantity
	i.Fulfilled = true
	i.UpdatedAt = time.Now()
	return nil
}

// Receive records the counted quantity at the store
func (i *LineItem) Receive(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return ErrInvalidQuantity
	}
	i.ReceivedQuantity = quantity
	i.Received = true
	i.UpdatedAt = time.Now()
	return nil
}

// HasReceivedStock returns true if a non-zero quantity was counted
func (i *LineItem) HasReceivedStock() bool {
	return i.ReceivedQuantity.GreaterThan(decimal.Zero)
}
