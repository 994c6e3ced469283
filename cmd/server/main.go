// Package main runs the storefront HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamikdash/storefront/config"
	"github.com/hamikdash/storefront/internal/auth"
	"github.com/hamikdash/storefront/internal/cart"
	"github.com/hamikdash/storefront/internal/coupons"
	"github.com/hamikdash/storefront/internal/emaillogs"
	"github.com/hamikdash/storefront/internal/notify"
	"github.com/hamikdash/storefront/internal/orders"
	"github.com/hamikdash/storefront/internal/payments"
	"github.com/hamikdash/storefront/internal/payments/cardcom"
	"github.com/hamikdash/storefront/internal/payments/greeninvoice"
	"github.com/hamikdash/storefront/internal/products"
	"github.com/hamikdash/storefront/internal/worker"
	"github.com/hamikdash/storefront/pkg/database"
	"github.com/hamikdash/storefront/pkg/queue"
	"github.com/hamikdash/storefront/pkg/redis"
	"github.com/hamikdash/storefront/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	if cfg.JWT.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET not set, signing admin tokens with the development default")
	}
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Stores: Postgres when DATABASE_URL is set, otherwise process memory.
	var (
		couponStore  coupons.Store        = coupons.NewMemoryStore()
		orderStore   orders.Store         = orders.NewMemoryStore()
		txStore      payments.Store       = payments.NewMemoryStore()
		emailLogs    emaillogs.Repository = emaillogs.NewMemoryRepository()
		productsRepo products.Repository
	)
	if cfg.Database.URL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		couponStore = coupons.NewPostgresStore(pool)
		orderStore = orders.NewPostgresStore(pool)
		txStore = payments.NewPostgresStore(pool)
		productsRepo = products.NewPostgresRepository(pool)
		emailLogs = emaillogs.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set: coupons, orders and transactions are kept in memory; product routes disabled")
	}

	var jobQueue *queue.Queue
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		jobQueue = queue.NewQueue(rdb.Client, logger)
	}

	var imageStore products.ImageStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImagesBucket:    cfg.AWS.ImagesBucket,
			ImagesPrefix:    cfg.AWS.ImagesPrefix,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			imageStore = s3Client
		}
	}

	// Coupons
	couponSvc := coupons.NewService(couponStore, logger)
	seeds := coupons.DefaultSeeds()
	if cfg.Coupons.SeedFile != "" {
		if seeds, err = coupons.LoadSeedFile(cfg.Coupons.SeedFile); err != nil {
			logger.Fatal("coupon seeds", zap.Error(err))
		}
	}
	if err := couponSvc.Seed(ctx, seeds); err != nil {
		logger.Fatal("coupon seeds", zap.Error(err))
	}

	// Notifications: queued for the worker when Redis is configured, else sent inline.
	mailer := notify.NewMailClient(cfg.Mail.APIURL, cfg.Mail.APIKey)
	notifySvc := notify.NewService(mailer, cfg.Mail.FromAddress, cfg.Mail.MerchantEmail, logger)
	notifySvc.SetDeliveryLog(emailLogs)
	if !notifySvc.Enabled() {
		logger.Warn("MAIL_API_KEY or MERCHANT_EMAIL not set: order notifications disabled")
	}
	var enqueuer notify.Enqueuer
	if jobQueue != nil {
		enqueuer = jobQueue
	}
	dispatcher := notify.NewDispatcher(notifySvc, enqueuer, logger)

	// Orders
	recorder := orders.NewRecorder(orderStore, dispatcher, couponSvc, logger)

	// Payments
	cardcomProvider := cardcom.New(cardcom.Config{
		TerminalNumber: cfg.Cardcom.TerminalNumber,
		Username:       cfg.Cardcom.Username,
		BaseURL:        cfg.Cardcom.BaseURL,
		Language:       cfg.Cardcom.Language,
		FrontendURL:    cfg.Server.FrontendURL,
		BackendURL:     cfg.Server.BackendURL,
	}, logger)
	if !cardcomProvider.Configured() {
		logger.Warn("Cardcom credentials not set: create-payment will answer 503")
	}
	giClient := greeninvoice.NewClient(cfg.GreenInvoice.BaseURL, cfg.GreenInvoice.APIKeyID, cfg.GreenInvoice.APIKeySecret, logger)
	giProvider := greeninvoice.NewProvider(giClient, greeninvoice.Config{
		FrontendURL:  cfg.Server.FrontendURL,
		BackendURL:   cfg.Server.BackendURL,
		Production:   cfg.Server.IsProduction(),
		TestFallback: cfg.GreenInvoice.TestFallback,
	}, logger)
	switch {
	case giProvider.FallbackActive():
		logger.Warn("GreenInvoice credentials not set: test fallback enabled, payments and invoices are synthetic")
	case !cfg.GreenInvoice.Configured():
		logger.Warn("GreenInvoice credentials not set: payment forms and invoices will answer 503")
	}
	paymentSvc := payments.NewService(txStore, recorder, logger, cardcomProvider, giProvider)

	// Admin
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler, err := auth.NewHandler(cfg.Admin.Username, cfg.Admin.Password, jwtService, logger)
	if err != nil {
		logger.Fatal("admin auth", zap.Error(err))
	}

	router := newRouter(handlers{
		auth:         authHandler,
		coupons:      coupons.NewHandler(couponSvc, logger),
		orders:       orders.NewHandler(recorder, logger),
		cart:         cart.NewHandler(couponSvc),
		products:     products.NewHandler(productsRepo, imageStore, logger),
		payments:     payments.NewHandler(paymentSvc, logger),
		greenInvoice: greeninvoice.NewHandler(giClient, giProvider, orderStore, logger),
		emailLogs:    emaillogs.NewHandler(emailLogs),
	}, jwtService, routerConfig{
		corsOrigins: cfg.Server.CORSAllowedOrigins,
		staticDir:   cfg.Server.StaticDir,
		imagesDir:   cfg.Server.ImagesDir,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (order notification e-mail)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil {
		go worker.NewNotificationProcessor(jobQueue, notifySvc, logger).Run(workerCtx)
		logger.Info("notification worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
