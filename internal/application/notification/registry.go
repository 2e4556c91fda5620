// Package notification implements the progress broadcast channel: an
// in-process connection registry plus notifiers that relay worker status
// events to the admin session that started a run.
package notification

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/notification"
)

// ConnectionRegistry is the in-process registry of live progress streams.
// One slot per user; attaching replaces and closes the previous connection.
type ConnectionRegistry struct {
	mu     sync.RWMutex
	slots  map[uuid.UUID]*slot
	logger *zap.Logger
}

type slot struct {
	token uuid.UUID
	conn  notification.Connection
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry(logger *zap.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		slots:  make(map[uuid.UUID]*slot),
		logger: logger,
	}
}

// Attach registers or replaces the connection for a user. The evicted
// connection, if any, is closed so the old stream ends on reattach.
func (r *ConnectionRegistry) Attach(userID uuid.UUID, conn notification.Connection) uuid.UUID {
	token := uuid.New()

	r.mu.Lock()
	previous := r.slots[userID]
	r.slots[userID] = &slot{token: token, conn: conn}
	r.mu.Unlock()

	if previous != nil {
		previous.conn.Close()
		r.logger.Debug("replaced live connection",
			zap.String("user_id", userID.String()))
	}
	return token
}

// Detach removes the connection if the token still owns the slot. A stale
// token from an already-replaced connection is a no-op.
func (r *ConnectionRegistry) Detach(userID uuid.UUID, token uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.slots[userID]; ok && current.token == token {
		delete(r.slots, userID)
	}
}

// Send delivers an event to the user's connection. Events for users with no
// attached connection are dropped; there is no buffering or replay.
func (r *ConnectionRegistry) Send(userID uuid.UUID, eventID string, payload any) bool {
	r.mu.RLock()
	current := r.slots[userID]
	r.mu.RUnlock()

	if current == nil {
		return false
	}
	if err := current.conn.Write(eventID, payload); err != nil {
		r.logger.Warn("dropping event, connection write failed",
			zap.String("user_id", userID.String()),
			zap.String("event_id", eventID),
			zap.Error(err))
		return false
	}
	return true
}

// Ensure ConnectionRegistry implements Registry
var _ notification.Registry = (*ConnectionRegistry)(nil)
