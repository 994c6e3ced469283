package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the connection shared by the notification queue producer and worker.
type Client struct {
	*redis.Client
	logger *zap.Logger
}

// NewClient connects to Redis. addr is host:port, or a redis:// / rediss:// URL as handed out
// by managed providers, in which case password and db come from the URL.
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	opts, err := options(addr, password, db)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB), zap.Bool("tls", opts.TLSConfig != nil))
	return &Client{Client: rdb, logger: logger}, nil
}

func options(addr, password string, db int) (*redis.Options, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr, Password: password, DB: db}
	}
	opts.DialTimeout = 5 * time.Second
	opts.PoolSize = 4
	return opts, nil
}
