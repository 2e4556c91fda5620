package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stockup/backend/internal/domain/notification"
)

// SSEMessage represents a message to be sent to an SSE client
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// sseMessageBufferSize allows events to queue without blocking the sender
const sseMessageBufferSize = 100

// sseConnection adapts one SSE stream to the registry's Connection port
type sseConnection struct {
	ch        chan SSEMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newSSEConnection() *sseConnection {
	return &sseConnection{
		ch:   make(chan SSEMessage, sseMessageBufferSize),
		done: make(chan struct{}),
	}
}

// Write pushes one named event down the stream. A full buffer or a closed
// stream reports an error so the registry can drop the event.
func (s *sseConnection) Write(eventID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	msg := SSEMessage{
		Event: "status",
		Data:  string(data),
		ID:    eventID,
	}

	select {
	case <-s.done:
		return fmt.Errorf("connection closed")
	case s.ch <- msg:
		return nil
	default:
		return fmt.Errorf("connection buffer full")
	}
}

// Close releases the stream. Safe to call more than once; the registry
// closes evicted connections and the handler closes on disconnect.
func (s *sseConnection) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Ensure sseConnection implements the Connection port
var _ notification.Connection = (*sseConnection)(nil)

// ProgressHandler serves the per-user progress event stream and the internal
// status-push callback that worker processes use to reach it.
type ProgressHandler struct {
	BaseHandler
	registry  notification.Registry
	heartbeat time.Duration
	logger    *zap.Logger
}

// ProgressOption is a functional option for configuring the handler
type ProgressOption func(*ProgressHandler)

// WithHeartbeat sets the heartbeat interval for idle streams
func WithHeartbeat(interval time.Duration) ProgressOption {
	return func(h *ProgressHandler) {
		h.heartbeat = interval
	}
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(registry notification.Registry, logger *zap.Logger, opts ...ProgressOption) *ProgressHandler {
	h := &ProgressHandler{
		registry:  registry,
		heartbeat: 30 * time.Second,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stream godoc
// @Summary      Subscribe to worker status events via SSE
// @Description  Establishes a Server-Sent Events connection carrying progress
// @Description  and terminal events for worker runs started by this session.
// @Description  A user holds at most one stream; reconnecting replaces it.
// @Tags         events
// @Produce      text/event-stream
// @Success      200 {string} string "SSE stream"
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/events/stream [get]
func (h *ProgressHandler) Stream(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return
	}

	// Set SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	conn := newSSEConnection()
	token := h.registry.Attach(userID, conn)
	defer func() {
		conn.Close()
		h.registry.Detach(userID, token)
	}()

	h.logger.Info("progress stream connected",
		zap.String("user_id", userID.String()))

	// Send initial connection event
	h.sendEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Info("progress stream disconnected",
				zap.String("user_id", userID.String()))
			return
		case <-conn.done:
			// Replaced by a newer stream for the same user
			h.logger.Info("progress stream replaced",
				zap.String("user_id", userID.String()))
			return
		case <-ticker.C:
			h.sendEvent(c.Writer, SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
			c.Writer.Flush()
		case msg := <-conn.ch:
			h.sendEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// sendEvent writes an SSE event to the response writer
func (h *ProgressHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// PushStatus godoc
// @Summary      Relay a worker status event
// @Description  Internal callback used by worker processes to deliver status
// @Description  events to the instance holding the user's live stream. Events
// @Description  for users with no attached stream are dropped.
// @Tags         events
// @Accept       json
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/worker-status [post]
func (h *ProgressHandler) PushStatus(c *gin.Context) {
	var msg notification.StatusMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if msg.MessageID == "" {
		h.BadRequest(c, "message id is required")
		return
	}

	if delivered := h.registry.Send(msg.UserID, msg.MessageID, msg); !delivered {
		h.logger.Debug("status event dropped, no live stream",
			zap.String("user_id", msg.UserID.String()),
			zap.String("message_id", msg.MessageID))
	}
	h.NoContent(c)
}

// RegisterRoutes registers the event stream and status callback routes
func (h *ProgressHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orgs := rg.Group("/orgs/:id")
	{
		orgs.GET("/events/stream", h.Stream)
		orgs.POST("/worker-status", h.PushStatus)
	}
}
