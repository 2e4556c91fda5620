package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/notification"
)

// LocalNotifier delivers status events through the in-process registry.
// A missing subscriber is not an error; the event is simply dropped.
type LocalNotifier struct {
	registry notification.Registry
	logger   *zap.Logger
}

// NewLocalNotifier creates a notifier backed by the given registry
func NewLocalNotifier(registry notification.Registry, logger *zap.Logger) *LocalNotifier {
	return &LocalNotifier{registry: registry, logger: logger}
}

// NotifyStatus pushes the event to the user's live connection, if any
func (n *LocalNotifier) NotifyStatus(_ context.Context, msg notification.StatusMessage) error {
	if delivered := n.registry.Send(msg.UserID, msg.MessageID, msg); !delivered {
		n.logger.Debug("status event dropped, no live connection",
			zap.String("user_id", msg.UserID.String()),
			zap.String("message_id", msg.MessageID))
	}
	return nil
}

// Ensure LocalNotifier implements StatusNotifier
var _ notification.StatusNotifier = (*LocalNotifier)(nil)

// HTTPNotifier relays status events to the host's status-push callback.
// Worker processes use it to reach the instance holding the user's live
// connection.
type HTTPNotifier struct {
	callbackURL string
	authToken   string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewHTTPNotifier creates a notifier that posts to the callback endpoint
func NewHTTPNotifier(callbackURL, authToken string, logger *zap.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		callbackURL: callbackURL,
		authToken:   authToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

// NotifyStatus posts the event to the callback endpoint
func (n *HTTPNotifier) NotifyStatus(ctx context.Context, msg notification.StatusMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.callbackURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.authToken)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: callback returned %d", notification.ErrDeliveryFailed, resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Ensure HTTPNotifier implements StatusNotifier
var _ notification.StatusNotifier = (*HTTPNotifier)(nil)
