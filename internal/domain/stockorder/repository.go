package stockorder

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockup/backend/internal/domain/shared"
)

// StockOrderRepository defines the interface for stock order persistence
type StockOrderRepository interface {
	// FindByID finds a stock order by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockOrder, error)

	// FindAll finds all stock orders for a tenant with filtering
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]StockOrder, error)

	// FindByState finds stock orders in a given state for a tenant
	FindByState(ctx context.Context, tenantID uuid.UUID, state State, filter shared.Filter) ([]StockOrder, error)

	// Save creates or updates a stock order
	Save(ctx context.Context, order *StockOrder) error

	// TransitionState performs a guarded state update: the order moves to
	// the target state only if it is still in the expected state. Returns
	// false when another writer already moved the order away, which makes
	// side-effecting transitions single-shot under concurrent triggers.
	TransitionState(ctx context.Context, tenantID, id uuid.UUID, from, to State) (bool, error)

	// Delete deletes a stock order for a tenant
	Delete(ctx context.Context, tenantID, id uuid.UUID) error

	// Count counts stock orders for a tenant with optional filters
	Count(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}

// LineItemRepository defines the interface for line item persistence
type LineItemRepository interface {
	// FindByID finds a line item by ID for a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LineItem, error)

	// FindByOrder finds all line items of an order
	FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]LineItem, error)

	// FindByOrderPaged finds line items of an order with filtering. The
	// fulfilled filter splits the fulfilment screen into handled and
	// pending tabs; Search matches against the SKU.
	FindByOrderPaged(ctx context.Context, tenantID, orderID uuid.UUID, fulfilled *bool, filter shared.Filter) ([]LineItem, int64, error)

	// Save creates or updates a line item
	Save(ctx context.Context, item *LineItem) error

	// SaveAll creates or updates line items in bulk
	SaveAll(ctx context.Context, items []LineItem) error

	// ZeroUnreceived forces the received quantity to zero on every item of
	// the order still flagged received=false. Returns the number of rows
	// touched.
	ZeroUnreceived(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error)

	// DeleteByOrder removes all line items of an order
	DeleteByOrder(ctx context.Context, tenantID, orderID uuid.UUID) error
}
