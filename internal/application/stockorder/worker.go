package stockorder

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/integration"
	"github.com/stockup/backend/internal/domain/notification"
)

// TokenProvider is the slice of the token lifecycle the workers depend on
type TokenProvider interface {
	EnsureValidCredential(ctx context.Context, tenantID uuid.UUID, provider integration.ProviderKind) (*integration.Credential, error)
}

// WorkerRequest identifies one worker run and the session that started it
type WorkerRequest struct {
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
	OrderID  uuid.UUID `json:"order_id" binding:"required"`
	// UserID addresses the admin session awaiting progress events
	UserID uuid.UUID `json:"user_id" binding:"required"`
	// MessageID correlates status events with this run
	MessageID string `json:"message_id" binding:"required"`
}

// notifyTerminal emits the single terminal status event for a run. Delivery
// failures are logged, never propagated; status events are fire-and-forget.
func notifyTerminal(ctx context.Context, notifier notification.StatusNotifier, logger *zap.Logger, req WorkerRequest, success bool) {
	msg := notification.NewStatusMessage(req.MessageID, req.UserID, success)
	if err := notifier.NotifyStatus(context.WithoutCancel(ctx), msg); err != nil {
		logger.Warn("terminal status delivery failed",
			zap.String("message_id", req.MessageID),
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err))
	}
}

// entityString reads a string field from an untyped ERP row
func entityString(row integration.Entity, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// entityDecimal reads a numeric field from an untyped ERP row. OData rows
// decode numbers as float64 or, for typed decimals, as strings.
func entityDecimal(row integration.Entity, key string) decimal.Decimal {
	switch v := row[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case json.Number:
		if d, err := decimal.NewFromString(v.String()); err == nil {
			return d
		}
	case int:
		return decimal.NewFromInt(int64(v))
	}
	return decimal.Zero
}

// productID derives the internal product reference for an inventory row.
// Rows carrying a usable GUID keep it; anything else gets a fresh one.
func productID(row integration.Entity) uuid.UUID {
	if id, err := uuid.Parse(entityString(row, "ProductId")); err == nil {
		return id
	}
	return uuid.New()
}

// formatQuantity renders a decimal for an ERP numeric field
func formatQuantity(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
