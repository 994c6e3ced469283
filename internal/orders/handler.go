package orders

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/response"
)

// Handler handles order HTTP endpoints.
type Handler struct {
	recorder *Recorder
	logger   *zap.Logger
}

// NewHandler creates an orders handler.
func NewHandler(recorder *Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{recorder: recorder, logger: logger}
}

// Receive handles POST /api/orders, the webhook sink. Any JSON object is accepted.
func (h *Handler) Receive(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil || order == nil {
		response.BadRequest(c, "order payload must be a JSON object")
		return
	}
	total, err := h.recorder.Record(c.Request.Context(), order)
	if err != nil {
		h.logger.Error("save order failed", zap.Error(err))
		response.Internal(c, "failed to save order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": order["formId"], "totalOrders": total})
}

// List handles GET /api/orders.
func (h *Handler) List(c *gin.Context) {
	list, err := h.recorder.Store().List(c.Request.Context())
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		response.Internal(c, "failed to list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": list, "total": len(list)})
}

// GetByFormID handles GET /api/orders/:formId.
func (h *Handler) GetByFormID(c *gin.Context) {
	o, err := h.recorder.Store().GetByFormID(c.Request.Context(), c.Param("formId"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		h.logger.Error("get order failed", zap.Error(err))
		response.Internal(c, "failed to load order")
		return
	}
	response.OK(c, o)
}

// Clear handles DELETE /api/orders.
func (h *Handler) Clear(c *gin.Context) {
	if err := h.recorder.Store().Clear(c.Request.Context()); err != nil {
		h.logger.Error("clear orders failed", zap.Error(err))
		response.Internal(c, "failed to clear orders")
		return
	}
	h.logger.Warn("all orders cleared", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, response.Body{Success: true, Message: "All orders cleared"})
}
