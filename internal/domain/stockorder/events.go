package stockorder

import (
	"github.com/google/uuid"

	"github.com/stockup/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStockOrder = "StockOrder"

// Event type constants
const (
	EventTypeStockOrderStateChanged = "StockOrderStateChanged"
	EventTypeStockOrderGenerated    = "StockOrderGenerated"
	EventTypeStockOrderCompleted    = "StockOrderCompleted"
)

// StateChangedEvent is raised on every lifecycle transition
type StateChangedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	NewState State     `json:"new_state"`
}

// NewStateChangedEvent creates a new StateChangedEvent
func NewStateChangedEvent(order *StockOrder, newState State) *StateChangedEvent {
	return &StateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockOrderStateChanged, AggregateTypeStockOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		NewState:        newState,
	}
}

// EventType returns the event type name
func (e *StateChangedEvent) EventType() string {
	return EventTypeStockOrderStateChanged
}

// GeneratedEvent is raised when generation fills an order with line items
type GeneratedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID `json:"order_id"`
	ItemCount int       `json:"item_count"`
}

// NewGeneratedEvent creates a new GeneratedEvent
func NewGeneratedEvent(order *StockOrder) *GeneratedEvent {
	return &GeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockOrderGenerated, AggregateTypeStockOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		ItemCount:       order.ItemCount,
	}
}

// EventType returns the event type name
func (e *GeneratedEvent) EventType() string {
	return EventTypeStockOrderGenerated
}

// CompletedEvent is raised when receiving finishes and the order closes
type CompletedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID `json:"order_id"`
	FailedUpdates int       `json:"failed_updates"`
}

// NewCompletedEvent creates a new CompletedEvent
func NewCompletedEvent(order *StockOrder, failedUpdates int) *CompletedEvent {
	return &CompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockOrderCompleted, AggregateTypeStockOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		FailedUpdates:   failedUpdates,
	}
}

// EventType returns the event type name
func (e *CompletedEvent) EventType() string {
	return EventTypeStockOrderCompleted
}
