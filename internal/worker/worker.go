// Package worker consumes queued order notification jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/queue"
)

// ErrNotAccepted is returned when the mail API did not accept a notification.
var ErrNotAccepted = errors.New("notification not accepted by mail API")

// JobQueue is the Redis job queue (queue.Queue).
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) error
}

// Sender delivers an order notification (notify.Service).
type Sender interface {
	Enabled() bool
	SendOrderNotification(ctx context.Context, o models.Order) bool
}

// NotificationProcessor sends queued order notifications, retrying failed sends.
type NotificationProcessor struct {
	queue   JobQueue
	sender  Sender
	logger  *zap.Logger
	backoff time.Duration
}

// NewNotificationProcessor creates a notification processor.
func NewNotificationProcessor(q JobQueue, sender Sender, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{queue: q, sender: sender, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeOrderNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	var order models.Order
	if err := json.Unmarshal(payload.Order, &order); err != nil {
		return fmt.Errorf("unmarshal order: %w", err)
	}
	if !p.sender.Enabled() {
		// Retrying cannot help until the mail settings change.
		p.logger.Warn("mail not configured, dropping notification", zap.String("form_id", payload.FormID))
		return nil
	}
	if !p.sender.SendOrderNotification(ctx, order) {
		return ErrNotAccepted
	}
	p.logger.Info("notification job completed", zap.String("job_id", job.ID), zap.String("form_id", payload.FormID))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error. It returns when ctx is done.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("notification worker stopping")
			return
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("dequeue error", zap.Error(err))
				p.sleep(ctx)
			}
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, err); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
