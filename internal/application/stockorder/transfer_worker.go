package stockorder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/domain/notification"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// TransferConfig tunes the transfer-order push
type TransferConfig struct {
	// TransferLineTable is the ERP data entity receiving transfer-order lines
	TransferLineTable string
	// BatchSize mirrors the gateway's batch size for the progress record
	BatchSize int
}

func (c *TransferConfig) applyDefaults() {
	if c.TransferLineTable == "" {
		c.TransferLineTable = "TransferOrderLines"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
}

// TransferOrderWorker pushes the fulfilled line items of an order to the ERP
// as transfer-order lines. Rejected batches are recorded on the outcome and
// do not fail the run; only a fatal push error moves the order into
// push_failure.
type TransferOrderWorker struct {
	orders       stockorder.StockOrderRepository
	lineItems    stockorder.LineItemRepository
	pushStatuses integration.PushStatusRepository
	tokens       TokenProvider
	erp          integration.ERPGateway
	notifier     notification.StatusNotifier
	cfg          TransferConfig
	logger       *zap.Logger
}

// NewTransferOrderWorker creates a new TransferOrderWorker
func NewTransferOrderWorker(
	orders stockorder.StockOrderRepository,
	lineItems stockorder.LineItemRepository,
	pushStatuses integration.PushStatusRepository,
	tokens TokenProvider,
	erp integration.ERPGateway,
	notifier notification.StatusNotifier,
	cfg TransferConfig,
	logger *zap.Logger,
) *TransferOrderWorker {
	cfg.applyDefaults()
	return &TransferOrderWorker{
		orders:       orders,
		lineItems:    lineItems,
		pushStatuses: pushStatuses,
		tokens:       tokens,
		erp:          erp,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// Run executes one transfer-order push. Exactly one terminal status event is
// emitted whether the run succeeds or fails.
func (w *TransferOrderWorker) Run(ctx context.Context, req WorkerRequest) (err error) {
	defer func() {
		notifyTerminal(ctx, w.notifier, w.logger, req, err == nil)
	}()

	if err = w.enterPushing(ctx, req); err != nil {
		return err
	}
	if err = w.push(ctx, req); err != nil {
		w.failPush(ctx, req)
		return err
	}
	return nil
}

// push performs the claimed run. Every error reported here sends the order
// to push_failure so the entry guard accepts a retry.
func (w *TransferOrderWorker) push(ctx context.Context, req WorkerRequest) error {
	order, err := w.orders.FindByID(ctx, req.TenantID, req.OrderID)
	if err != nil {
		return err
	}

	records, err := w.buildTransferLines(ctx, order)
	if err != nil {
		return err
	}

	credential, err := w.tokens.EnsureValidCredential(ctx, req.TenantID, integration.ProviderKindERP)
	if err != nil {
		return err
	}

	status, err := w.createPushStatus(ctx, req, len(records))
	if err != nil {
		return err
	}

	progress := func(pctx context.Context, delta float64) {
		if perr := w.pushStatuses.AddProgress(pctx, status.ID, delta); perr != nil {
			w.logger.Warn("progress update failed",
				zap.String("push_status_id", status.ID.String()),
				zap.Error(perr))
		}
	}

	outcome, err := w.erp.PushInBatches(ctx, credential, w.cfg.TransferLineTable, records, progress)
	if err != nil {
		return err
	}
	if !outcome.AllSucceeded() {
		w.logger.Warn("transfer order pushed with rejected batches",
			zap.String("order_id", req.OrderID.String()),
			zap.Int("failed_batches", len(outcome.FailedBatches)),
			zap.Int("failed_records", outcome.FailedRecordCount()))
	}

	if err = order.TransitionTo(stockorder.StateReceivingPending); err != nil {
		return err
	}
	if err = w.orders.Save(ctx, order); err != nil {
		return err
	}

	w.logger.Info("transfer order pushed",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("order_id", req.OrderID.String()),
		zap.String("transfer_order_number", order.TransferOrderNumber),
		zap.Int("total_batches", outcome.TotalBatches),
		zap.Int("succeeded_batches", outcome.SucceededBatches))
	return nil
}

// enterPushing claims the push leg through a guarded transition, covering
// both the first attempt and a retry after push_failure
func (w *TransferOrderWorker) enterPushing(ctx context.Context, req WorkerRequest) error {
	moved, err := w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
		stockorder.StateFulfilmentInProcess, stockorder.StatePushingToERP)
	if err != nil {
		return err
	}
	if !moved {
		moved, err = w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
			stockorder.StatePushFailure, stockorder.StatePushingToERP)
		if err != nil {
			return err
		}
	}
	if !moved {
		return fmt.Errorf("%w: order is not ready for transfer push",
			stockorder.ErrInvalidStateTransition)
	}
	return nil
}

// buildTransferLines converts fulfilled line items into ERP transfer-order
// line records, assigning the transfer order number on first push
func (w *TransferOrderWorker) buildTransferLines(ctx context.Context, order *stockorder.StockOrder) ([]integration.Entity, error) {
	items, err := w.lineItems.FindByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, err
	}

	if order.TransferOrderNumber == "" {
		order.SetTransferOrderNumber(transferOrderNumber(order))
	}

	records := make([]integration.Entity, 0, len(items))
	line := 0
	for i := range items {
		item := &items[i]
		if !item.Fulfilled || !item.FulfilledQuantity.IsPositive() {
			continue
		}
		line++
		records = append(records, integration.Entity{
			"TransferOrderNumber": order.TransferOrderNumber,
			"LineNumber":          line,
			"ItemNumber":          item.SKU,
			"TransferQuantity":    formatQuantity(item.FulfilledQuantity),
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: order has no fulfilled line items", integration.ErrInvalidInput)
	}
	return records, nil
}

// createPushStatus records the progress row the UI polls during the push
func (w *TransferOrderWorker) createPushStatus(ctx context.Context, req WorkerRequest, recordCount int) (*integration.PushStatus, error) {
	totalBatches := (recordCount + w.cfg.BatchSize - 1) / w.cfg.BatchSize
	status, err := integration.NewPushStatus(req.TenantID, req.MessageID, totalBatches)
	if err != nil {
		return nil, err
	}
	if err := w.pushStatuses.Create(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}

// failPush moves the order into push_failure. The original error is what the
// caller reports; a failed failure-transition only gets logged.
func (w *TransferOrderWorker) failPush(ctx context.Context, req WorkerRequest) {
	moved, err := w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
		stockorder.StatePushingToERP, stockorder.StatePushFailure)
	if err != nil || !moved {
		w.logger.Error("could not mark order as push failure",
			zap.String("order_id", req.OrderID.String()),
			zap.Bool("moved", moved),
			zap.Error(err))
	}
}

// transferOrderNumber derives a stable ERP document number for the order
func transferOrderNumber(order *stockorder.StockOrder) string {
	id := strings.ToUpper(strings.ReplaceAll(order.ID.String(), "-", ""))
	return "TO-" + id[:10]
}
