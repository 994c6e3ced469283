package greeninvoice

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/orders"
	"github.com/hamikdash/storefront/pkg/response"
)

// Handler serves the invoicing routes that are not part of the payment flow.
type Handler struct {
	client   *Client
	provider *Provider
	orders   orders.Store
	logger   *zap.Logger
}

// NewHandler creates a GreenInvoice handler.
func NewHandler(client *Client, provider *Provider, store orders.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{client: client, provider: provider, orders: store, logger: logger}
}

// IssueDocumentRequest selects the stored order to invoice.
type IssueDocumentRequest struct {
	FormID string `json:"formId" binding:"required"`
}

// IssueDocument handles POST /api/greeninvoice/documents: it issues a tax invoice for a
// stored order and records the document id on it.
func (h *Handler) IssueDocument(c *gin.Context) {
	var req IssueDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "formId is required")
		return
	}
	ctx := c.Request.Context()
	o, err := h.orders.GetByFormID(ctx, req.FormID)
	if errors.Is(err, orders.ErrNotFound) {
		response.NotFound(c, "Order not found")
		return
	}
	if err != nil {
		h.logger.Error("load order failed", zap.Error(err))
		response.Internal(c, "failed to load order")
		return
	}

	var doc *Document
	test := false
	switch {
	case h.client.Configured():
		doc, err = h.client.CreateDocument(ctx, DocumentForOrder(o))
		if err != nil {
			response.Upstream(c, "failed to create document", err.Error())
			return
		}
	case h.provider.FallbackActive():
		test = true
		doc = &Document{ID: TestDocumentID(h.provider.now())}
		h.logger.Warn("greeninvoice credentials missing, returning synthetic document",
			zap.String("form_id", req.FormID), zap.String("document_id", doc.ID))
	default:
		response.ServiceUnavailable(c, "GreenInvoice is not configured")
		return
	}

	o["documentId"] = doc.ID
	if _, _, err := h.orders.Save(ctx, o); err != nil {
		h.logger.Error("attach document to order failed", zap.Error(err), zap.String("form_id", req.FormID))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc, "test": test})
}

// Test handles GET /api/greeninvoice/test by fetching a token.
func (h *Handler) Test(c *gin.Context) {
	if !h.client.Configured() {
		if h.provider.FallbackActive() {
			c.JSON(http.StatusOK, gin.H{"success": true, "configured": false, "test": true,
				"message": "GreenInvoice test mode: credentials not set"})
			return
		}
		response.ServiceUnavailable(c, "GreenInvoice is not configured")
		return
	}
	if _, err := h.client.Token(c.Request.Context()); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			response.Fail(c, http.StatusBadGateway, "upstream", "GreenInvoice rejected the credentials")
			return
		}
		response.Upstream(c, "GreenInvoice connection failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "configured": true, "message": "GreenInvoice connection OK"})
}
