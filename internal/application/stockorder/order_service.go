// Package stockorder holds the application services around the stock-order
// lifecycle: the CRUD surface backing the admin screens and the worker runs
// that drive orders through generation, transfer to the ERP and receiving.
package stockorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/shared"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// OrderService handles stock-order business operations
type OrderService struct {
	orders    stockorder.StockOrderRepository
	lineItems stockorder.LineItemRepository
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orders stockorder.StockOrderRepository,
	lineItems stockorder.LineItemRepository,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		lineItems: lineItems,
		logger:    logger,
	}
}

// Create creates a new stock order in the empty state
func (s *OrderService) Create(ctx context.Context, tenantID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	order, err := stockorder.NewStockOrder(tenantID, req.Name, req.StoreID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("stock order created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", order.ID.String()))
	return toOrderResponse(order), nil
}

// Get retrieves a stock order by ID
func (s *OrderService) Get(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// List retrieves stock orders with pagination and optional state filtering
func (s *OrderService) List(ctx context.Context, tenantID uuid.UUID, state *stockorder.State, filter shared.Filter) (*shared.Paginated[*OrderResponse], error) {
	var (
		orders []stockorder.StockOrder
		err    error
	)
	if state != nil {
		if !state.IsValid() {
			return nil, stockorder.ErrInvalidState
		}
		orders, err = s.orders.FindByState(ctx, tenantID, *state, filter)
	} else {
		orders, err = s.orders.FindAll(ctx, tenantID, filter)
	}
	if err != nil {
		return nil, err
	}

	stateFilter := filter
	if state != nil {
		if stateFilter.Filters == nil {
			stateFilter.Filters = make(map[string]interface{})
		}
		stateFilter.Filters["state"] = state.String()
	}
	total, err := s.orders.Count(ctx, tenantID, stateFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]*OrderResponse, len(orders))
	for i := range orders {
		responses[i] = toOrderResponse(&orders[i])
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Update renames a stock order. Renames are allowed only while the order
// still accepts user edits.
func (s *OrderService) Update(ctx context.Context, tenantID, orderID uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanEdit() {
		return nil, fmt.Errorf("%w: order is %s", stockorder.ErrEditNotAllowed, order.State)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, stockorder.ErrInvalidOrderName
		}
		order.Name = *req.Name
		order.UpdatedAt = time.Now()
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// Delete removes a stock order and its line items. Orders that have entered
// the integration legs can no longer be deleted.
func (s *OrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if order.State != stockorder.StateEmpty && !order.CanEdit() {
		return fmt.Errorf("%w: order is %s", stockorder.ErrEditNotAllowed, order.State)
	}

	if err := s.lineItems.DeleteByOrder(ctx, tenantID, orderID); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, tenantID, orderID); err != nil {
		return err
	}

	s.logger.Info("stock order deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()))
	return nil
}

// OpenForFulfilment moves the order from fulfilment_pending into
// fulfilment_in_process. The transition is a guarded update so only the
// first of several concurrent opens performs it; later callers get the
// order back with Opened=false and join the run already in process.
func (s *OrderService) OpenForFulfilment(ctx context.Context, tenantID, orderID uuid.UUID) (*OpenForFulfilmentResponse, error) {
	moved, err := s.orders.TransitionState(ctx, tenantID, orderID,
		stockorder.StateFulfilmentPending, stockorder.StateFulfilmentInProcess)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !moved && order.State != stockorder.StateFulfilmentInProcess {
		return nil, fmt.Errorf("%w: cannot open order in state %s",
			stockorder.ErrInvalidStateTransition, order.State)
	}

	if moved {
		s.logger.Info("order opened for fulfilment",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", orderID.String()))
	}
	return &OpenForFulfilmentResponse{Order: toOrderResponse(order), Opened: moved}, nil
}

// SubmitForApproval moves a generated order into the approval queue
func (s *OrderService) SubmitForApproval(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, tenantID, orderID, stockorder.StateApprovalPending)
}

// Approve releases an approval-pending order toward fulfilment
func (s *OrderService) Approve(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, tenantID, orderID, stockorder.StateFulfilmentPending)
}

func (s *OrderService) transition(ctx context.Context, tenantID, orderID uuid.UUID, target stockorder.State) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// ListLineItems retrieves line items of an order with pagination. The
// fulfilled filter splits the fulfilment screen into handled and pending
// tabs; filter.Search matches against the SKU.
func (s *OrderService) ListLineItems(ctx context.Context, tenantID, orderID uuid.UUID, fulfilled *bool, filter shared.Filter) (*shared.Paginated[LineItemResponse], error) {
	items, total, err := s.lineItems.FindByOrderPaged(ctx, tenantID, orderID, fulfilled, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]LineItemResponse, len(items))
	for i := range items {
		responses[i] = toLineItemResponse(&items[i])
	}
	result := shared.NewPaginated(responses, total, filter.Page, filter.PageSize)
	return &result, nil
}

// UpdateLineItems applies a bulk update to line items of an order. The
// whole batch is rejected when the order state does not permit edits or
// when any referenced item does not belong to the order.
func (s *OrderService) UpdateLineItems(ctx context.Context, tenantID, orderID uuid.UUID, req BulkUpdateLineItemsRequest) ([]LineItemResponse, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanEdit() {
		return nil, fmt.Errorf("%w: order is %s", stockorder.ErrEditNotAllowed, order.State)
	}

	updated := make([]stockorder.LineItem, 0, len(req.Items))
	for _, update := range req.Items {
		item, err := s.lineItems.FindByID(ctx, tenantID, update.ID)
		if err != nil {
			return nil, err
		}
		if item.OrderID != orderID {
			return nil, fmt.Errorf("%w: item %s belongs to another order",
				stockorder.ErrInvalidLineItem, update.ID)
		}

		if update.OrderedQuantity != nil {
			if update.OrderedQuantity.IsNegative() {
				return nil, stockorder.ErrInvalidQuantity
			}
			item.OrderedQuantity = *update.OrderedQuantity
			item.UpdatedAt = time.Now()
		}
		if update.FulfilledQuantity != nil {
			if err := item.Fulfil(*update.FulfilledQuantity); err != nil {
				return nil, err
			}
		}
		if update.ReceivedQuantity != nil {
			if err := item.Receive(*update.ReceivedQuantity); err != nil {
				return nil, err
			}
		}
		if update.Approved != nil {
			item.Approved = *update.Approved
			item.UpdatedAt = time.Now()
		}
		updated = append(updated, *item)
	}

	if err := s.lineItems.SaveAll(ctx, updated); err != nil {
		return nil, err
	}

	responses := make([]LineItemResponse, len(updated))
	for i := range updated {
		responses[i] = toLineItemResponse(&updated[i])
	}
	return responses, nil
}
