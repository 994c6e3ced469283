package products

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/response"
	"github.com/hamikdash/storefront/pkg/storage"
)

// CreateRequest is the body for POST /api/products.
type CreateRequest struct {
	Name          string         `json:"name" binding:"required"`
	NameEn        string         `json:"nameEn"`
	Description   string         `json:"description"`
	DescriptionEn string         `json:"descriptionEn"`
	Price         float64        `json:"price" binding:"gte=0"`
	Category      string         `json:"category"`
	Images        []string       `json:"images"`
	Colors        []models.Color `json:"colors"`
	InStock       *bool          `json:"inStock"`
}

// UpdateRequest is the body for PUT /api/products/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Name          *string         `json:"name"`
	NameEn        *string         `json:"nameEn"`
	Description   *string         `json:"description"`
	DescriptionEn *string         `json:"descriptionEn"`
	Price         *float64        `json:"price" binding:"omitempty,gte=0"`
	Category      *string         `json:"category"`
	Images        *[]string       `json:"images"`
	Colors        *[]models.Color `json:"colors"`
	InStock       *bool           `json:"inStock"`
}

// Handler handles product endpoints. repo is nil when no database is configured and
// images is nil when object storage is not configured.
type Handler struct {
	repo   Repository
	images ImageStore
	logger *zap.Logger
}

// NewHandler creates a products handler.
func NewHandler(repo Repository, images ImageStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, images: images, logger: logger}
}

func (h *Handler) available(c *gin.Context) bool {
	if h.repo == nil {
		response.ServiceUnavailable(c, "product database is not configured")
		return false
	}
	return true
}

func (h *Handler) shape(p *models.Product) {
	p.Images = shapeImages(p.Images, h.images)
	if p.Colors == nil {
		p.Colors = []models.Color{}
	}
}

// List handles GET /api/products[?category=].
func (h *Handler) List(c *gin.Context) {
	if !h.available(c) {
		return
	}
	list, err := h.repo.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		response.Internal(c, "failed to list products")
		return
	}
	for i := range list {
		h.shape(&list[i])
	}
	response.OK(c, list)
}

// Get handles GET /api/products/:id.
func (h *Handler) Get(c *gin.Context) {
	if !h.available(c) {
		return
	}
	p, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if h.failed(c, err, "load") {
		return
	}
	h.shape(p)
	response.OK(c, p)
}

// Create handles POST /api/products.
func (h *Handler) Create(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := &models.Product{
		Name:          req.Name,
		NameEn:        req.NameEn,
		Description:   req.Description,
		DescriptionEn: req.DescriptionEn,
		Price:         req.Price,
		Category:      req.Category,
		Images:        req.Images,
		Colors:        req.Colors,
		InStock:       req.InStock == nil || *req.InStock,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create product failed", zap.Error(err))
		response.Internal(c, "failed to create product")
		return
	}
	h.logger.Info("product created", zap.String("product_id", p.ID))
	h.shape(p)
	response.Created(c, p)
}

// Update handles PUT /api/products/:id.
func (h *Handler) Update(c *gin.Context) {
	if !h.available(c) {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	p, err := h.repo.Get(ctx, c.Param("id"))
	if h.failed(c, err, "load") {
		return
	}
	req.applyTo(p)
	if h.failed(c, h.repo.Update(ctx, p), "update") {
		return
	}
	h.shape(p)
	response.OK(c, p)
}

// Delete handles DELETE /api/products/:id.
func (h *Handler) Delete(c *gin.Context) {
	if !h.available(c) {
		return
	}
	if h.failed(c, h.repo.Delete(c.Request.Context(), c.Param("id")), "delete") {
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Message: "Product deleted"})
}

// DeleteImage handles DELETE /api/images/:key, where key is the name returned by UploadImage.
func (h *Handler) DeleteImage(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	name := path.Base(c.Param("key"))
	if name == "." || name == "/" || !storage.ValidateImageFile(name) {
		response.BadRequest(c, "invalid image key")
		return
	}
	key := h.images.ImageKeyFor(name)
	if err := h.images.DeleteImage(c.Request.Context(), key); err != nil {
		h.logger.Error("image delete failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to delete image")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Message: "Image deleted"})
}

// UploadImage handles POST /api/products/images (multipart field "image").
func (h *Handler) UploadImage(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "missing file (form field: image)")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	if !storage.ValidateImageFile(file.Filename) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images are allowed")
		return
	}
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	name := uuid.New().String() + strings.ToLower(path.Ext(file.Filename))
	key := h.images.ImageKeyFor(name)
	url, err := h.images.UploadImage(c.Request.Context(), key, storage.ContentTypeForFilename(file.Filename), rc, file.Size)
	if err != nil {
		h.logger.Error("image upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload image")
		return
	}
	response.Created(c, gin.H{"key": name, "url": url, "filename": file.Filename})
}

func (h *Handler) failed(c *gin.Context, err error, op string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "Product not found")
	default:
		h.logger.Error(op+" product failed", zap.Error(err), zap.String("product_id", c.Param("id")))
		response.Internal(c, "failed to "+op+" product")
	}
	return true
}

func (r UpdateRequest) applyTo(p *models.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.NameEn != nil {
		p.NameEn = *r.NameEn
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.DescriptionEn != nil {
		p.DescriptionEn = *r.DescriptionEn
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.Images != nil {
		p.Images = *r.Images
	}
	if r.Colors != nil {
		p.Colors = *r.Colors
	}
	if r.InStock != nil {
		p.InStock = *r.InStock
	}
}
