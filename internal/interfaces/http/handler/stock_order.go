package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	stockorderapp "github.com/stockup/backend/internal/application/stockorder"
	"github.com/stockup/backend/internal/domain/shared"
	"github.com/stockup/backend/internal/domain/stockorder"
)

// WorkerRunner is one asynchronous stock-order processing leg
type WorkerRunner interface {
	Run(ctx context.Context, req stockorderapp.WorkerRequest) error
}

// StockOrderHandler handles stock-order HTTP requests, including the
// trigger endpoints that start asynchronous worker runs.
type StockOrderHandler struct {
	BaseHandler
	service  *stockorderapp.OrderService
	generate WorkerRunner
	transfer WorkerRunner
	receive  WorkerRunner
	logger   *zap.Logger
}

// NewStockOrderHandler creates a new StockOrderHandler
func NewStockOrderHandler(
	service *stockorderapp.OrderService,
	generate WorkerRunner,
	transfer WorkerRunner,
	receive WorkerRunner,
	logger *zap.Logger,
) *StockOrderHandler {
	return &StockOrderHandler{
		service:  service,
		generate: generate,
		transfer: transfer,
		receive:  receive,
		logger:   logger,
	}
}

// ListStockOrdersRequest represents query parameters for listing stock orders
type ListStockOrdersRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	State    string `form:"state"`
	Search   string `form:"search"`
}

// GenerateOrderRequest starts a generation run for an empty order
type GenerateOrderRequest struct {
	OrderID   uuid.UUID `json:"order_id" binding:"required"`
	MessageID string    `json:"message_id"`
}

// TriggerWorkerRequest starts a transfer or receive run for an order
type TriggerWorkerRequest struct {
	MessageID string `json:"message_id"`
}

// WorkerStartedResponse acknowledges an accepted worker run
type WorkerStartedResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	MessageID string    `json:"message_id"`
}

// orgScope resolves the org from the path and checks it against the session
func (h *StockOrderHandler) orgScope(c *gin.Context) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid organization ID")
		return uuid.Nil, false
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return uuid.Nil, false
	}
	if orgID != tenantID {
		h.Forbidden(c, "Organization does not match session")
		return uuid.Nil, false
	}
	return tenantID, true
}

// orderID parses the order ID path parameter
func (h *StockOrderHandler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create godoc
// @Summary      Create a stock order
// @Description  Creates an empty stock order for a store and warehouse pair
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Param        request body stockorderapp.CreateOrderRequest true "Order details"
// @Success      201 {object} dto.Response{data=stockorderapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders [post]
func (h *StockOrderHandler) Create(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}

	var req stockorderapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.service.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get godoc
// @Summary      Get a stock order
// @Tags         stock-orders
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=stockorderapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId} [get]
func (h *StockOrderHandler) Get(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List godoc
// @Summary      List stock orders
// @Description  Lists stock orders with pagination and optional state filter
// @Tags         stock-orders
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        state query string false "Filter by lifecycle state"
// @Success      200 {object} dto.Response{data=[]stockorderapp.OrderResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders [get]
func (h *StockOrderHandler) List(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}

	var req ListStockOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 && req.PageSize <= 100 {
		filter.PageSize = req.PageSize
	}
	filter.Search = req.Search

	var state *stockorder.State
	if req.State != "" {
		s := stockorder.State(req.State)
		if !s.IsValid() {
			h.BadRequest(c, "Unknown state filter")
			return
		}
		state = &s
	}

	result, err := h.service.List(c.Request.Context(), tenantID, state, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @Summary      Rename a stock order
// @Description  Updates order metadata. Rejected when the state forbids edits.
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=stockorderapp.OrderResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId} [put]
func (h *StockOrderHandler) Update(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req stockorderapp.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.service.Update(c.Request.Context(), tenantID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Delete godoc
// @Summary      Delete a stock order
// @Tags         stock-orders
// @Param        orderId path string true "Order ID"
// @Success      204 "No Content"
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId} [delete]
func (h *StockOrderHandler) Delete(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), tenantID, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// OpenForFulfilment godoc
// @Summary      Open an order for fulfilment
// @Description  Moves the order into fulfilment. Joining an already-open run
// @Description  is not an error; the response reports whether this call opened it.
// @Tags         stock-orders
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=stockorderapp.OpenForFulfilmentResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/open [post]
func (h *StockOrderHandler) OpenForFulfilment(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	result, err := h.service.OpenForFulfilment(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SubmitForApproval godoc
// @Summary      Submit a generated order for approval
// @Tags         stock-orders
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=stockorderapp.OrderResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/submit [post]
func (h *StockOrderHandler) SubmitForApproval(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.SubmitForApproval(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Approve godoc
// @Summary      Approve an order for fulfilment
// @Tags         stock-orders
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=stockorderapp.OrderResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/approve [post]
func (h *StockOrderHandler) Approve(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	order, err := h.service.Approve(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListLineItems godoc
// @Summary      List order line items
// @Tags         stock-orders
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        fulfilled query bool false "Filter by fulfilment flag"
// @Success      200 {object} dto.Response{data=[]stockorderapp.LineItemResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/line-items [get]
func (h *StockOrderHandler) ListLineItems(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var query struct {
		Page      int   `form:"page"`
		PageSize  int   `form:"page_size"`
		Fulfilled *bool `form:"fulfilled"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 && query.PageSize <= 200 {
		filter.PageSize = query.PageSize
	}

	result, err := h.service.ListLineItems(c.Request.Context(), tenantID, orderID, query.Fulfilled, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// UpdateLineItems godoc
// @Summary      Bulk-update line items
// @Description  Applies quantity and approval changes to multiple lines.
// @Description  Rejected as a whole when the order state forbids edits.
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=[]stockorderapp.LineItemResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/line-items [put]
func (h *StockOrderHandler) UpdateLineItems(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req stockorderapp.BulkUpdateLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items, err := h.service.UpdateLineItems(c.Request.Context(), tenantID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Generate godoc
// @Summary      Start a line-item generation run
// @Description  Reads ERP on-hand inventory and fills the order with shortfall
// @Description  lines. Runs asynchronously; completion arrives on the event stream.
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Success      202 {object} dto.Response{data=WorkerStartedResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/generate [post]
func (h *StockOrderHandler) Generate(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}

	var req GenerateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.startWorker(c, h.generate, tenantID, req.OrderID, req.MessageID)
}

// Transfer godoc
// @Summary      Start a transfer-order push run
// @Description  Pushes fulfilled lines to the ERP as transfer-order lines.
// @Description  Runs asynchronously; completion arrives on the event stream.
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      202 {object} dto.Response{data=WorkerStartedResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/transfer-order [post]
func (h *StockOrderHandler) Transfer(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req TriggerWorkerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	h.startWorker(c, h.transfer, tenantID, orderID, req.MessageID)
}

// Receive godoc
// @Summary      Start a receiving run
// @Description  Syncs counted quantities to the POS consignment and completes
// @Description  the order. Runs asynchronously; completion arrives on the event stream.
// @Tags         stock-orders
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      202 {object} dto.Response{data=WorkerStartedResponse}
// @Security     BearerAuth
// @Router       /orgs/{id}/stock-orders/{orderId}/receive [post]
func (h *StockOrderHandler) Receive(c *gin.Context) {
	tenantID, ok := h.orgScope(c)
	if !ok {
		return
	}
	orderID, ok := h.orderID(c)
	if !ok {
		return
	}

	var req TriggerWorkerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	h.startWorker(c, h.receive, tenantID, orderID, req.MessageID)
}

// startWorker launches a worker run detached from the request lifecycle.
// The run outlives the HTTP exchange; its result is delivered as a status
// event correlated by the returned message ID.
func (h *StockOrderHandler) startWorker(c *gin.Context, runner WorkerRunner, tenantID, orderID uuid.UUID, messageID string) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid session")
		return
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}

	workerReq := stockorderapp.WorkerRequest{
		TenantID:  tenantID,
		OrderID:   orderID,
		UserID:    userID,
		MessageID: messageID,
	}

	go func() {
		if err := runner.Run(context.Background(), workerReq); err != nil {
			h.logger.Warn("worker run finished with error",
				zap.String("order_id", orderID.String()),
				zap.String("message_id", messageID),
				zap.Error(err))
		}
	}()

	h.Accepted(c, WorkerStartedResponse{OrderID: orderID, MessageID: messageID})
}

// RegisterRoutes registers all stock-order routes
func (h *StockOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orgs/:id/stock-orders")
	{
		orders.GET("", h.List)
		orders.POST("", h.Create)
		orders.POST("/generate", h.Generate)
		orders.GET("/:orderId", h.Get)
		orders.PUT("/:orderId", h.Update)
		orders.DELETE("/:orderId", h.Delete)
		orders.POST("/:orderId/open", h.OpenForFulfilment)
		orders.POST("/:orderId/submit", h.SubmitForApproval)
		orders.POST("/:orderId/approve", h.Approve)
		orders.GET("/:orderId/line-items", h.ListLineItems)
		orders.PUT("/:orderId/line-items", h.UpdateLineItems)
		orders.POST("/:orderId/transfer-order", h.Transfer)
		orders.POST("/:orderId/receive", h.Receive)
	}
}
