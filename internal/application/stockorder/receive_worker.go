package stockorder

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/domain/notification"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// ReceiveConfig tunes the receiving run
type ReceiveConfig struct {
	// Concurrency bounds in-flight POS calls per run
	Concurrency int
}

func (c *ReceiveConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
}

// ReceiveWorker closes the receiving leg of an order against the POS. Each
// counted line item updates its consignment line, uncounted lines delete
// theirs, and the consignment is marked received. Single-item failures are
// logged and absorbed; the order completes as long as the consignment itself
// closes.
type ReceiveWorker struct {
	orders    stockorder.StockOrderRepository
	lineItems stockorder.LineItemRepository
	tokens    TokenProvider
	pos       integration.POSGateway
	notifier  notification.StatusNotifier
	cfg       ReceiveConfig
	logger    *zap.Logger
}

// NewReceiveWorker creates a new ReceiveWorker
func NewReceiveWorker(
	orders stockorder.StockOrderRepository,
	lineItems stockorder.LineItemRepository,
	tokens TokenProvider,
	pos integration.POSGateway,
	notifier notification.StatusNotifier,
	cfg ReceiveConfig,
	logger *zap.Logger,
) *ReceiveWorker {
	cfg.applyDefaults()
	return &ReceiveWorker{
		orders:    orders,
		lineItems: lineItems,
		tokens:    tokens,
		pos:       pos,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes one receiving run. Exactly one terminal status event is
// emitted whether the run succeeds or fails.
func (w *ReceiveWorker) Run(ctx context.Context, req WorkerRequest) (err error) {
	defer func() {
		notifyTerminal(ctx, w.notifier, w.logger, req, err == nil)
	}()

	if err = w.enterReceiving(ctx, req); err != nil {
		return err
	}
	if err = w.receive(ctx, req); err != nil {
		w.failReceiving(ctx, req)
		return err
	}
	return nil
}

// receive performs the claimed run. Every error reported here sends the
// order to receiving_failure so the entry guard accepts a retry.
func (w *ReceiveWorker) receive(ctx context.Context, req WorkerRequest) error {
	order, err := w.orders.FindByID(ctx, req.TenantID, req.OrderID)
	if err != nil {
		return err
	}

	credential, err := w.tokens.EnsureValidCredential(ctx, req.TenantID, integration.ProviderKindPOS)
	if err != nil {
		return err
	}

	items, err := w.lineItems.FindByOrder(ctx, req.TenantID, req.OrderID)
	if err != nil {
		return err
	}

	failed := w.syncConsignmentLines(ctx, credential, items)

	if order.ConsignmentID != "" {
		if err = w.pos.MarkConsignmentReceived(ctx, credential, order.ConsignmentID); err != nil {
			return fmt.Errorf("mark consignment received: %w", err)
		}
	}

	if err = order.TransitionTo(stockorder.StateComplete); err != nil {
		return err
	}
	if err = w.orders.Save(ctx, order); err != nil {
		return err
	}

	// Anything never counted is zeroed so POS and order agree on what
	// arrived. Best effort; the order is already complete.
	if zeroed, zerr := w.lineItems.ZeroUnreceived(ctx, req.TenantID, req.OrderID); zerr != nil {
		w.logger.Warn("zeroing unreceived quantities failed",
			zap.String("order_id", req.OrderID.String()),
			zap.Error(zerr))
	} else if zeroed > 0 {
		w.logger.Info("zeroed unreceived quantities",
			zap.String("order_id", req.OrderID.String()),
			zap.Int64("line_items", zeroed))
	}

	w.logger.Info("stock order received",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("order_id", req.OrderID.String()),
		zap.Int("line_items", len(items)),
		zap.Int("failed_items", failed))
	return nil
}

// enterReceiving claims the receiving leg through a guarded transition,
// covering both the first attempt and a retry after receiving_failure
func (w *ReceiveWorker) enterReceiving(ctx context.Context, req WorkerRequest) error {
	moved, err := w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
		stockorder.StateReceivingPending, stockorder.StateReceivingInProcess)
	if err != nil {
		return err
	}
	if !moved {
		moved, err = w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
			stockorder.StateReceivingFailure, stockorder.StateReceivingInProcess)
		if err != nil {
			return err
		}
	}
	if !moved {
		return fmt.Errorf("%w: order is not ready for receiving",
			stockorder.ErrInvalidStateTransition)
	}
	return nil
}

// syncConsignmentLines pushes the counted quantities to the POS with bounded
// fan-out. Counted lines update their consignment product, uncounted lines
// delete theirs. Returns the number of lines that failed; failures never
// abort the run.
func (w *ReceiveWorker) syncConsignmentLines(ctx context.Context, credential *integration.Credential, items []stockorder.LineItem) int {
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i := range items {
		item := &items[i]
		if item.ConsignmentProductID == "" {
			continue
		}
		g.Go(func() error {
			var err error
			if item.HasReceivedStock() {
				err = w.pos.UpdateConsignmentProduct(gctx, credential, integration.ConsignmentUpdate{
					ConsignmentProductID: item.ConsignmentProductID,
					ReceivedQuantity:     item.ReceivedQuantity,
				})
			} else {
				err = w.pos.DeleteConsignmentProduct(gctx, credential, item.ConsignmentProductID)
			}
			if err != nil {
				failed.Add(1)
				w.logger.Warn("consignment line sync failed",
					zap.String("sku", item.SKU),
					zap.String("consignment_product_id", item.ConsignmentProductID),
					zap.Bool("counted", item.HasReceivedStock()),
					zap.Error(err))
			}
			return nil
		})
	}
	// item errors are absorbed above, the group never fails
	_ = g.Wait()

	return int(failed.Load())
}

// failReceiving moves the order into receiving_failure. The original error
// is what the caller reports; a failed failure-transition only gets logged.
func (w *ReceiveWorker) failReceiving(ctx context.Context, req WorkerRequest) {
	moved, err := w.orders.TransitionState(ctx, req.TenantID, req.OrderID,
		stockorder.StateReceivingInProcess, stockorder.StateReceivingFailure)
	if err != nil || !moved {
		w.logger.Error("could not mark order as receiving failure",
			zap.String("order_id", req.OrderID.String()),
			zap.Bool("moved", moved),
			zap.Error(err))
	}
}
