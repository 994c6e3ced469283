package cart

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hamikdash/storefront/internal/coupons"
	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/response"
)

// CouponApplier computes a coupon discount for a total.
type CouponApplier interface {
	Apply(ctx context.Context, code string, totalAmount float64) (*models.CouponResult, error)
}

// TotalRequest is the body for POST /api/cart/total.
type TotalRequest struct {
	Items      []Item `json:"items" binding:"required,dive"`
	CouponCode string `json:"couponCode"`
}

// TotalResponse reports the cart subtotal and, when a coupon was given, its effect.
type TotalResponse struct {
	Items       []Item               `json:"items"`
	ItemCount   int                  `json:"itemCount"`
	Subtotal    float64              `json:"subtotal"`
	Total       float64              `json:"total"`
	Coupon      *models.CouponResult `json:"coupon,omitempty"`
	CouponError string               `json:"couponError,omitempty"`
}

// Handler handles cart endpoints.
type Handler struct {
	coupons CouponApplier
}

// NewHandler creates a cart handler.
func NewHandler(coupons CouponApplier) *Handler {
	return &Handler{coupons: coupons}
}

// Total handles POST /api/cart/total. An unusable coupon is reported, not fatal.
func (h *Handler) Total(c *gin.Context) {
	var req TotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ct := FromItems(req.Items)
	resp := TotalResponse{
		Items:     ct.Items,
		ItemCount: ct.Count(),
		Subtotal:  ct.Subtotal(),
		Total:     ct.Subtotal(),
	}
	if req.CouponCode != "" && h.coupons != nil {
		res, err := h.coupons.Apply(c.Request.Context(), req.CouponCode, resp.Subtotal)
		var cerr *coupons.Error
		switch {
		case err == nil:
			resp.Coupon = res
			resp.Total = res.FinalAmount
		case errors.As(err, &cerr):
			resp.CouponError = cerr.Msg
		default:
			response.Internal(c, "failed to apply coupon")
			return
		}
	}
	response.OK(c, resp)
}
