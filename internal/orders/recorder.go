package orders

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
)

// Notifier delivers the merchant notification for an order. The result only reports
// whether the mail provider accepted the message.
type Notifier interface {
	Notify(ctx context.Context, o models.Order) bool
}

// CouponRedeemer consumes one usage of a coupon code.
type CouponRedeemer interface {
	Redeem(ctx context.Context, code string) (*models.Coupon, error)
}

// Recorder is the single write path for orders: stamp, save, redeem, notify.
type Recorder struct {
	store    Store
	notifier Notifier
	coupons  CouponRedeemer
	logger   *zap.Logger
	now      func() time.Time
}

// NewRecorder creates an order recorder. notifier and coupons may be nil.
func NewRecorder(store Store, notifier Notifier, coupons CouponRedeemer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, notifier: notifier, coupons: coupons, logger: logger, now: time.Now}
}

// Store exposes the underlying order store for reads.
func (r *Recorder) Store() Store { return r.store }

// Record stores o and triggers its side effects. Coupon redemption happens only the first
// time a formId is seen, so provider retries do not consume extra usages. Notification
// failures are logged and never returned.
func (r *Recorder) Record(ctx context.Context, o models.Order) (int, error) {
	o.StampReceivedAt(r.now())
	total, created, err := r.store.Save(ctx, o)
	if err != nil {
		return 0, err
	}
	r.logger.Info("order recorded",
		zap.String("form_id", o.FormID()),
		zap.String("status", o.Status()),
		zap.Bool("created", created),
		zap.Int("total_orders", total))

	if code := o.CouponCode(); created && code != "" && r.coupons != nil && !IsFailureStatus(o.Status()) {
		if _, err := r.coupons.Redeem(ctx, code); err != nil {
			r.logger.Warn("coupon redeem failed", zap.String("code", code), zap.String("form_id", o.FormID()), zap.Error(err))
		}
	}
	if r.notifier != nil && !r.notifier.Notify(ctx, o) {
		r.logger.Warn("order notification not sent", zap.String("form_id", o.FormID()))
	}
	return total, nil
}

// IsFailureStatus reports whether a free-text order status denotes a failed payment.
func IsFailureStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "failure", "error", "declined", "cancelled", "canceled":
		return true
	}
	return false
}
