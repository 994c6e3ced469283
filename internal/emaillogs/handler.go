package emaillogs

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/response"
)

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Repository
}

// NewHandler creates an email logs handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /api/admin/email-logs?formId=&limit=. Admin only.
func (h *Handler) List(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	logs, err := h.repo.List(c.Request.Context(), c.Query("formId"), limit)
	if err != nil {
		response.Internal(c, "failed to load email logs")
		return
	}
	if logs == nil {
		logs = []*models.EmailLog{}
	}
	response.OK(c, gin.H{"logs": logs, "count": len(logs)})
}
