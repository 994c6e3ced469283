package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/pkg/queue"
)

// Enqueuer queues notification jobs for the background worker.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
}

// Dispatcher hands notifications to the worker queue when one is configured and falls back
// to sending inline otherwise, or when enqueueing fails.
type Dispatcher struct {
	svc    *Service
	queue  Enqueuer
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher. q may be nil.
func NewDispatcher(svc *Service, q Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{svc: svc, queue: q, logger: logger}
}

// Notify implements orders.Notifier. With a queue, true means the job was queued.
func (d *Dispatcher) Notify(ctx context.Context, o models.Order) bool {
	if d.queue != nil {
		raw, err := json.Marshal(o)
		if err == nil {
			err = d.queue.EnqueueNotification(ctx, queue.NotificationPayload{FormID: o.FormID(), Order: raw})
		}
		if err == nil {
			return true
		}
		d.logger.Warn("enqueue notification failed, sending inline", zap.Error(err), zap.String("form_id", o.FormID()))
	}
	return d.svc.SendOrderNotification(ctx, o)
}
