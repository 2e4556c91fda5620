package stockorder

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockup/backend/internal/domain/stockorder"
)

// =============================================================================
// Stock order DTOs
// =============================================================================

// CreateOrderRequest represents a request to create a new stock order
type CreateOrderRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=200"`
	StoreID     uuid.UUID `json:"store_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
}

// UpdateOrderRequest represents a request to rename a stock order
type UpdateOrderRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=200"`
}

// OrderResponse represents a stock order in API responses
type OrderResponse struct {
	ID                  uuid.UUID        `json:"id"`
	TenantID            uuid.UUID        `json:"tenant_id"`
	Name                string           `json:"name"`
	StoreID             uuid.UUID        `json:"store_id"`
	WarehouseID         uuid.UUID        `json:"warehouse_id"`
	State               stockorder.State `json:"state"`
	TransferOrderNumber string           `json:"transfer_order_number,omitempty"`
	ConsignmentID       string           `json:"consignment_id,omitempty"`
	ItemCount           int              `json:"item_count"`
	Editable            bool             `json:"editable"`
	GeneratedAt         *time.Time       `json:"generated_at,omitempty"`
	FulfilledAt         *time.Time       `json:"fulfilled_at,omitempty"`
	ReceivedAt          *time.Time       `json:"received_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// toOrderResponse converts a domain order to a response DTO
func toOrderResponse(order *stockorder.StockOrder) *OrderResponse {
	return &OrderResponse{
		ID:                  order.ID,
		TenantID:            order.TenantID,
		Name:                order.Name,
		StoreID:             order.StoreID,
		WarehouseID:         order.WarehouseID,
		State:               order.State,
		TransferOrderNumber: order.TransferOrderNumber,
		ConsignmentID:       order.ConsignmentID,
		ItemCount:           order.ItemCount,
		Editable:            order.CanEdit(),
		GeneratedAt:         order.GeneratedAt,
		FulfilledAt:         order.FulfilledAt,
		ReceivedAt:          order.ReceivedAt,
		CompletedAt:         order.CompletedAt,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

// =============================================================================
// Line item DTOs
// =============================================================================

// UpdateLineItemRequest represents one line in a bulk line-item update.
// Quantities are absolute values, not deltas.
type UpdateLineItemRequest struct {
	ID                uuid.UUID        `json:"id" binding:"required"`
	OrderedQuantity   *decimal.Decimal `json:"ordered_quantity"`
	FulfilledQuantity *decimal.Decimal `json:"fulfilled_quantity"`
	ReceivedQuantity  *decimal.Decimal `json:"received_quantity"`
	Approved          *bool            `json:"approved"`
}

// BulkUpdateLineItemsRequest represents a bulk line-item update
type BulkUpdateLineItemsRequest struct {
	Items []UpdateLineItemRequest `json:"items" binding:"required,min=1,dive"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID                   uuid.UUID       `json:"id"`
	OrderID              uuid.UUID       `json:"order_id"`
	ProductID            uuid.UUID       `json:"product_id"`
	SKU                  string          `json:"sku"`
	Name                 string          `json:"name"`
	BinLocation          string          `json:"bin_location"`
	OrderedQuantity      decimal.Decimal `json:"ordered_quantity"`
	FulfilledQuantity    decimal.Decimal `json:"fulfilled_quantity"`
	ReceivedQuantity     decimal.Decimal `json:"received_quantity"`
	Approved             bool            `json:"approved"`
	Fulfilled            bool            `json:"fulfilled"`
	Received             bool            `json:"received"`
	ConsignmentProductID string          `json:"consignment_product_id,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// toLineItemResponse converts a domain line item to a response DTO
func toLineItemResponse(item *stockorder.LineItem) LineItemResponse {
	return LineItemResponse{
		ID:                   item.ID,
		OrderID:              item.OrderID,
		ProductID:            item.ProductID,
		SKU:                  item.SKU,
		Name:                 item.Name,
		BinLocation:          item.BinLocation,
		OrderedQuantity:      item.OrderedQuantity,
		FulfilledQuantity:    item.FulfilledQuantity,
		ReceivedQuantity:     item.ReceivedQuantity,
		Approved:             item.Approved,
		Fulfilled:            item.Fulfilled,
		Received:             item.Received,
		ConsignmentProductID: item.ConsignmentProductID,
		UpdatedAt:            item.UpdatedAt,
	}
}

// OpenForFulfilmentResponse reports the outcome of an open attempt
type OpenForFulfilmentResponse struct {
	Order *OrderResponse `json:"order"`
	// Opened is false when a concurrent open already moved the order into
	// fulfilment; the caller joined an in-process run instead of starting one.
	Opened bool `json:"opened"`
}
