package coupons

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/pkg/response"
)

// ApplyRequest is the body for POST /api/coupons/apply.
type ApplyRequest struct {
	Code        string   `json:"code" binding:"required"`
	TotalAmount *float64 `json:"totalAmount" binding:"required"`
}

// Handler handles coupon HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a coupon handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /api/coupons.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// GetByCode handles GET /api/coupons/:code.
func (h *Handler) GetByCode(c *gin.Context) {
	coupon, err := h.svc.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, coupon)
}

// Create handles POST /api/coupons.
func (h *Handler) Create(c *gin.Context) {
	var req CreateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	coupon, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, coupon)
}

// Update handles PUT /api/coupons/:id.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	coupon, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, coupon)
}

// Delete handles DELETE /api/coupons/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Message: "Coupon deleted"})
}

// Apply handles POST /api/coupons/apply.
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Coupon code and total amount are required")
		return
	}
	res, err := h.svc.Apply(c.Request.Context(), req.Code, *req.TotalAmount)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// fail maps coupon error kinds to HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrNotFound):
		response.Fail(c, http.StatusNotFound, "coupon_not_found", msg)
	case errors.Is(err, ErrInvalid):
		response.Fail(c, http.StatusBadRequest, "coupon_invalid", msg)
	case errors.Is(err, ErrLimitReached):
		response.Fail(c, http.StatusBadRequest, "coupon_limit_reached", msg)
	case errors.Is(err, ErrConflict):
		response.Fail(c, http.StatusConflict, "coupon_conflict", msg)
	case errors.Is(err, ErrBadRequest):
		response.Fail(c, http.StatusBadRequest, "bad_request", msg)
	default:
		h.logger.Error("coupon request failed", zap.Error(err))
		response.Internal(c, "coupon request failed")
	}
}
