package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/auth"
	"github.com/hamikdash/storefront/internal/cart"
	"github.com/hamikdash/storefront/internal/coupons"
	"github.com/hamikdash/storefront/internal/emaillogs"
	"github.com/hamikdash/storefront/internal/middleware"
	"github.com/hamikdash/storefront/internal/orders"
	"github.com/hamikdash/storefront/internal/payments"
	"github.com/hamikdash/storefront/internal/payments/greeninvoice"
	"github.com/hamikdash/storefront/internal/products"
	"github.com/hamikdash/storefront/internal/web"
	"github.com/hamikdash/storefront/pkg/response"
)

// handlers groups everything the router mounts.
type handlers struct {
	auth         *auth.Handler
	coupons      *coupons.Handler
	orders       *orders.Handler
	cart         *cart.Handler
	products     *products.Handler
	payments     *payments.Handler
	greenInvoice *greeninvoice.Handler
	emailLogs    *emaillogs.Handler
}

type routerConfig struct {
	corsOrigins string
	staticDir   string
	imagesDir   string
}

func newRouter(h handlers, jwtService *auth.JWTService, rc routerConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(rc.corsOrigins))
	router.Use(middleware.Logger(logger, "/health"))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	admin := func(h gin.HandlerFunc) []gin.HandlerFunc { return middleware.AdminOnly(jwtService, h) }
	api := router.Group("/api")

	// Admin session
	api.POST("/admin/login", h.auth.Login)
	api.GET("/admin/verify", h.auth.Verify)
	api.GET("/admin/orders", admin(h.orders.List)...)
	api.GET("/admin/email-logs", admin(h.emailLogs.List)...)

	// Products: reads public, writes admin
	api.GET("/products", h.products.List)
	api.GET("/products/:id", h.products.Get)
	api.POST("/products", admin(h.products.Create)...)
	api.PUT("/products/:id", admin(h.products.Update)...)
	api.DELETE("/products/:id", admin(h.products.Delete)...)
	api.POST("/products/images", admin(h.products.UploadImage)...)
	api.DELETE("/images/:key", admin(h.products.DeleteImage)...)

	// Coupons: lookup and apply public, management admin
	api.POST("/coupons/apply", h.coupons.Apply)
	api.GET("/coupons/:code", h.coupons.GetByCode)
	api.GET("/coupons", admin(h.coupons.List)...)
	api.POST("/coupons", admin(h.coupons.Create)...)
	api.PUT("/coupons/:id", admin(h.coupons.Update)...)
	api.DELETE("/coupons/:id", admin(h.coupons.Delete)...)

	api.POST("/cart/total", h.cart.Total)

	// Orders: webhook sink and lookup public, listing and clearing admin
	api.POST("/orders", h.orders.Receive)
	api.GET("/orders/:formId", h.orders.GetByFormID)
	api.GET("/orders", admin(h.orders.List)...)
	api.DELETE("/orders", admin(h.orders.Clear)...)

	// Cardcom
	api.POST("/cardcom/create-payment", h.payments.CreatePayment("cardcom"))
	api.POST("/cardcom/callback", h.payments.CardcomCallback)
	api.GET("/cardcom/status/:transactionId", h.payments.Status)
	api.GET("/payments/:transactionId/status", h.payments.Status)

	// GreenInvoice
	api.POST("/greeninvoice/payment-form", h.payments.CreatePayment("greeninvoice"))
	api.POST("/greeninvoice/webhook", h.payments.GreenInvoiceWebhook)
	api.GET("/greeninvoice/test", h.greenInvoice.Test)
	api.POST("/greeninvoice/documents", admin(h.greenInvoice.IssueDocument)...)

	web.Mount(router, rc.staticDir, rc.imagesDir, logger)
	return router
}
