package notification

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/notification"
)

// fakeConnection records writes and close calls
type fakeConnection struct {
	mu       sync.Mutex
	events   []string
	closed   bool
	writeErr error
}

func (c *fakeConnection) Write(eventID string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.events = append(c.events, eventID)
	return nil
}

func (c *fakeConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestConnectionRegistry_Send(t *testing.T) {
	t.Run("delivers to the attached connection", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()
		conn := &fakeConnection{}

		registry.Attach(userID, conn)

		delivered := registry.Send(userID, "msg-1", map[string]any{"success": true})

		assert.True(t, delivered)
		assert.Equal(t, []string{"msg-1"}, conn.events)
	})

	t.Run("drops events for users with no connection", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())

		delivered := registry.Send(uuid.New(), "msg-1", nil)

		assert.False(t, delivered)
	})

	t.Run("reports drop when the connection write fails", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()
		conn := &fakeConnection{writeErr: errors.New("broken pipe")}

		registry.Attach(userID, conn)

		assert.False(t, registry.Send(userID, "msg-1", nil))
	})

	t.Run("does not replay missed events to a late attacher", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()

		registry.Send(userID, "missed", nil)

		conn := &fakeConnection{}
		registry.Attach(userID, conn)

		assert.Empty(t, conn.events)
	})
}

func TestConnectionRegistry_Attach(t *testing.T) {
	t.Run("replaces and closes the previous connection", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()
		first := &fakeConnection{}
		second := &fakeConnection{}

		registry.Attach(userID, first)
		registry.Attach(userID, second)

		assert.True(t, first.isClosed())
		assert.False(t, second.isClosed())

		require.True(t, registry.Send(userID, "msg-1", nil))
		assert.Empty(t, first.events)
		assert.Equal(t, []string{"msg-1"}, second.events)
	})

	t.Run("keeps users separate", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		alice := uuid.New()
		bob := uuid.New()
		aliceConn := &fakeConnection{}
		bobConn := &fakeConnection{}

		registry.Attach(alice, aliceConn)
		registry.Attach(bob, bobConn)

		registry.Send(alice, "for-alice", nil)

		assert.Equal(t, []string{"for-alice"}, aliceConn.events)
		assert.Empty(t, bobConn.events)
	})
}

func TestConnectionRegistry_Detach(t *testing.T) {
	t.Run("removes the owned connection", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()
		conn := &fakeConnection{}

		token := registry.Attach(userID, conn)
		registry.Detach(userID, token)

		assert.False(t, registry.Send(userID, "msg-1", nil))
	})

	t.Run("stale token does not evict a newer connection", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		userID := uuid.New()
		first := &fakeConnection{}
		second := &fakeConnection{}

		staleToken := registry.Attach(userID, first)
		registry.Attach(userID, second)

		// the replaced connection detaches on its own goroutine exit
		registry.Detach(userID, staleToken)

		assert.True(t, registry.Send(userID, "msg-1", nil))
		assert.Equal(t, []string{"msg-1"}, second.events)
	})
}

func TestLocalNotifier_NotifyStatus(t *testing.T) {
	t.Run("delivers through the registry", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		notifier := NewLocalNotifier(registry, zap.NewNop())
		userID := uuid.New()
		conn := &fakeConnection{}
		registry.Attach(userID, conn)

		msg := notification.NewStatusMessage("msg-42", userID, true)
		err := notifier.NotifyStatus(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, []string{"msg-42"}, conn.events)
	})

	t.Run("missing subscriber is not an error", func(t *testing.T) {
		registry := NewConnectionRegistry(zap.NewNop())
		notifier := NewLocalNotifier(registry, zap.NewNop())

		msg := notification.NewStatusMessage("msg-43", uuid.New(), false)
		err := notifier.NotifyStatus(context.Background(), msg)

		assert.NoError(t, err)
	})
}
