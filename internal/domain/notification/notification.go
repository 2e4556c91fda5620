// Package notification contains the progress broadcast ports. Long-running
// worker runs report milestone and terminal status back to the admin session
// that started them, keyed by a caller-supplied correlation identifier.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrDeliveryFailed indicates the target user had no live connection.
// Senders treat this as informational; status events are fire-and-forget.
var ErrDeliveryFailed = errors.New("notification: no live connection for user")

// StatusMessage is one progress or terminal event for a worker run
type StatusMessage struct {
	// MessageID is the correlation identifier supplied when the run started
	MessageID string `json:"messageId"`
	// UserID addresses the admin session that initiated the run
	UserID uuid.UUID `json:"userId"`
	// Data carries the event payload, at minimum a success flag
	Data map[string]any `json:"data"`
}

// NewStatusMessage builds a terminal status event
func NewStatusMessage(messageID string, userID uuid.UUID, success bool) StatusMessage {
	return StatusMessage{
		MessageID: messageID,
		UserID:    userID,
		Data:      map[string]any{"success": success},
	}
}

// Connection is one live server-to-client event stream
type Connection interface {
	// Write pushes one named event down the stream
	Write(eventID string, payload any) error
	// Close releases the stream
	Close()
}

// Registry tracks at most one live connection per user. Attaching a new
// connection evicts the previous one; events sent to a user with no
// connection are dropped, never buffered.
type Registry interface {
	// Attach registers or replaces the connection for a user and returns a
	// registration token used to detach exactly this connection.
	Attach(userID uuid.UUID, conn Connection) uuid.UUID

	// Detach removes the connection if the token still owns the slot
	Detach(userID uuid.UUID, token uuid.UUID)

	// Send delivers an event to the user's connection. Returns false when
	// the event was dropped because no connection was attached.
	Send(userID uuid.UUID, eventID string, payload any) bool
}

// StatusNotifier relays worker status events toward the user's live
// connection. Implementations may deliver locally through a Registry or
// remotely through the host's status-push callback endpoint.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, msg StatusMessage) error
}
