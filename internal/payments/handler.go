package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/response"
)

// Handler serves the payment provider routes.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreatePayment returns a handler starting a hosted payment with the named provider
// (POST /api/cardcom/create-payment, POST /api/greeninvoice/payment-form).
func (h *Handler) CreatePayment(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Checkout
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "items and a positive totalAmount are required")
			return
		}
		sess, err := h.svc.Initiate(c.Request.Context(), provider, req)
		switch {
		case errors.Is(err, ErrNotConfigured):
			response.ServiceUnavailable(c, "payment provider is not configured")
			return
		case errors.Is(err, ErrUnknownProvider):
			response.NotFound(c, err.Error())
			return
		case err != nil:
			response.Upstream(c, "failed to create payment", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"paymentUrl":    sess.PaymentURL,
			"transactionId": sess.TransactionID,
			"test":          sess.Test,
		})
	}
}

// CardcomCallback handles POST /api/cardcom/callback (JSON or form encoded).
func (h *Handler) CardcomCallback(c *gin.Context) {
	fields, _, err := readFields(c)
	if err != nil {
		response.BadRequest(c, "invalid callback body")
		return
	}
	_, err = h.svc.HandleCallback(c.Request.Context(), "cardcom", fields, nil)
	switch {
	case errors.Is(err, ErrSignature):
		response.BadRequest(c, "Invalid signature")
		return
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Transaction not found")
		return
	case err != nil:
		h.logger.Error("cardcom callback failed", zap.Error(err))
		response.Internal(c, "failed to process callback")
		return
	}
	c.String(http.StatusOK, "OK")
}

// GreenInvoiceWebhook handles POST /api/greeninvoice/webhook. The body is stored as an
// order; when it references a pending transaction the transaction is settled first.
func (h *Handler) GreenInvoiceWebhook(c *gin.Context) {
	fields, payload, err := readFields(c)
	if err != nil || payload == nil {
		response.BadRequest(c, "webhook payload must be a JSON object")
		return
	}
	if _, err := h.svc.HandleCallback(c.Request.Context(), "greeninvoice", fields, payload); err != nil {
		h.logger.Error("greeninvoice webhook failed", zap.Error(err))
		response.Internal(c, "failed to process webhook")
		return
	}
	c.String(http.StatusOK, "OK")
}

// Status handles GET /api/cardcom/status/:transactionId.
func (h *Handler) Status(c *gin.Context) {
	tx, err := h.svc.QueryStatus(c.Request.Context(), c.Param("transactionId"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "Transaction not found")
		return
	}
	if err != nil {
		h.logger.Error("query transaction failed", zap.Error(err))
		response.Internal(c, "failed to load transaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"transactionId": tx.ID,
		"status":        tx.Status,
		"data":          tx,
	})
}

// readFields reads a JSON object or form body into flat string fields. Numbers keep their
// original text so signatures can be recomputed. payload is nil for form bodies.
func readFields(c *gin.Context) (map[string]string, models.Order, error) {
	fields := map[string]string{}
	if strings.HasPrefix(c.ContentType(), "application/json") {
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		var payload models.Order
		if err := dec.Decode(&payload); err != nil {
			return nil, nil, err
		}
		for k, v := range payload {
			switch t := v.(type) {
			case string:
				fields[k] = t
			case json.Number:
				fields[k] = t.String()
			case bool:
				fields[k] = fmt.Sprint(t)
			}
		}
		return fields, payload, nil
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, nil, err
	}
	for k := range c.Request.PostForm {
		fields[k] = c.Request.PostForm.Get(k)
	}
	return fields, nil, nil
}
