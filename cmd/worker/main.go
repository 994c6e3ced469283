// Package main runs the background notification worker: it drains the Redis queue of
// order notification e-mails so the HTTP server can be scaled separately.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hamikdash/storefront/config"
	"github.com/hamikdash/storefront/internal/emaillogs"
	"github.com/hamikdash/storefront/internal/notify"
	"github.com/hamikdash/storefront/internal/worker"
	"github.com/hamikdash/storefront/pkg/database"
	"github.com/hamikdash/storefront/pkg/queue"
	"github.com/hamikdash/storefront/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the worker")
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	notifySvc := notify.NewService(notify.NewMailClient(cfg.Mail.APIURL, cfg.Mail.APIKey),
		cfg.Mail.FromAddress, cfg.Mail.MerchantEmail, logger)
	if cfg.Database.URL != "" {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.URL, cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		notifySvc.SetDeliveryLog(emaillogs.NewPostgresRepository(pool))
	}
	if !notifySvc.Enabled() {
		logger.Warn("MAIL_API_KEY or MERCHANT_EMAIL not set: queued notifications will be dropped")
	}
	jobQueue := queue.NewQueue(rdb.Client, logger)
	if stats, err := jobQueue.Stats(ctx); err == nil {
		logger.Info("notification queue", zap.Int64("pending", stats.Pending), zap.Int64("dead", stats.Dead))
	}
	processor := worker.NewNotificationProcessor(jobQueue, notifySvc, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
