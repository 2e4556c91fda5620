package stockorder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/domain/notification"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// GenerateConfig tunes the generation run
type GenerateConfig struct {
	// InventoryTable is the ERP data entity holding on-hand quantities
	InventoryTable string
	// CompanyFilterKey is the entity field carrying the company identifier
	CompanyFilterKey string
}

func (c *GenerateConfig) applyDefaults() {
	if c.InventoryTable == "" {
		c.InventoryTable = "InventoryOnHandItems"
	}
	if c.CompanyFilterKey == "" {
		c.CompanyFilterKey = "dataAreaId"
	}
}

// GenerateWorker fills an empty stock order with line items derived from the
// ERP's on-hand inventory. Items below their reorder level get a line for
// the shortfall; fully stocked items are skipped.
type GenerateWorker struct {
	orders    stockorder.StockOrderRepository
	lineItems stockorder.LineItemRepository
	tokens    TokenProvider
	erp       integration.ERPGateway
	notifier  notification.StatusNotifier
	cfg       GenerateConfig
	logger    *zap.Logger
}

// NewGenerateWorker creates a new GenerateWorker
func NewGenerateWorker(
	orders stockorder.StockOrderRepository,
	lineItems stockorder.LineItemRepository,
	tokens TokenProvider,
	erp integration.ERPGateway,
	notifier notification.StatusNotifier,
	cfg GenerateConfig,
	logger *zap.Logger,
) *GenerateWorker {
	cfg.applyDefaults()
	return &GenerateWorker{
		orders:    orders,
		lineItems: lineItems,
		tokens:    tokens,
		erp:       erp,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one generation run. Exactly one terminal status event is
// emitted whether the run succeeds or fails.
func (w *GenerateWorker) Run(ctx context.Context, req WorkerRequest) (err error) {
	defer func() {
		notifyTerminal(ctx, w.notifier, w.logger, req, err == nil)
	}()

	order, err := w.orders.FindByID(ctx, req.TenantID, req.OrderID)
	if err != nil {
		return err
	}
	if order.State != stockorder.StateEmpty {
		return fmt.Errorf("%w: cannot generate order in state %s",
			stockorder.ErrInvalidStateTransition, order.State)
	}

	credential, err := w.tokens.EnsureValidCredential(ctx, req.TenantID, integration.ProviderKindERP)
	if err != nil {
		return err
	}

	rows, err := w.erp.FetchEntities(ctx, credential, w.cfg.InventoryTable, w.cfg.CompanyFilterKey)
	if err != nil {
		return err
	}

	items, err := w.buildLineItems(order, rows)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		if err = w.lineItems.SaveAll(ctx, items); err != nil {
			return err
		}
	}

	if err = order.MarkGenerated(len(items)); err != nil {
		return err
	}
	if err = w.orders.Save(ctx, order); err != nil {
		return err
	}

	w.logger.Info("stock order generated",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("order_id", req.OrderID.String()),
		zap.Int("inventory_rows", len(rows)),
		zap.Int("line_items", len(items)))
	return nil
}

// buildLineItems applies the reorder math to the fetched inventory rows
func (w *GenerateWorker) buildLineItems(order *stockorder.StockOrder, rows []integration.Entity) ([]stockorder.LineItem, error) {
	items := make([]stockorder.LineItem, 0, len(rows))
	for _, row := range rows {
		sku := entityString(row, "ItemNumber")
		if sku == "" {
			w.logger.Warn("skipping inventory row without item number",
				zap.String("order_id", order.ID.String()))
			continue
		}

		onHand := entityDecimal(row, "AvailableOnHandQuantity")
		reorderLevel := entityDecimal(row, "ReorderQuantity")
		shortfall := reorderLevel.Sub(onHand)
		if !shortfall.IsPositive() {
			continue
		}

		item, err := stockorder.NewLineItem(order.ID, order.TenantID, productID(row),
			sku, entityString(row, "ProductName"), shortfall)
		if err != nil {
			return nil, err
		}
		item.BinLocation = entityString(row, "BinLocation")
		items = append(items, *item)
	}
	return items, nil
}
