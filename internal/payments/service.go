package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
)

var errSettled = errors.New("transaction already settled")

// OrderRecorder is the order write path (orders.Recorder).
type OrderRecorder interface {
	Record(ctx context.Context, o models.Order) (int, error)
}

// Service starts payments, stores them as pending transactions and settles them from
// provider callbacks. The transaction id is the order's formId.
type Service struct {
	store     Store
	recorder  OrderRecorder
	providers map[string]Provider
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a payment service for the given providers.
func NewService(store Store, recorder OrderRecorder, logger *zap.Logger, providers ...Provider) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:     store,
		recorder:  recorder,
		providers: make(map[string]Provider, len(providers)),
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

func (s *Service) provider(name string) (Provider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Initiate mints a transaction id, asks the provider for a hosted payment page and stores
// the attempt as pending. Every call creates a new transaction.
func (s *Service) Initiate(ctx context.Context, providerName string, c Checkout) (*Session, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c.TransactionID = NewTransactionID(now)
	if c.Currency == "" {
		c.Currency = "ILS"
	}
	sess, err := p.Initiate(ctx, c)
	if err != nil {
		s.logger.Error("payment initiation failed",
			zap.String("provider", providerName), zap.String("transaction_id", c.TransactionID), zap.Error(err))
		return nil, err
	}
	tx := &models.Transaction{
		ID:           c.TransactionID,
		Provider:     providerName,
		Status:       models.TransactionPending,
		Amount:       c.TotalAmount,
		Currency:     c.Currency,
		CustomerInfo: c.CustomerInfo,
		Items:        c.Items,
		CouponCode:   c.CouponCode,
		ProviderRef:  sess.ProviderRef,
		PaymentURL:   sess.PaymentURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("store transaction: %w", err)
	}
	s.logger.Info("payment initiated",
		zap.String("provider", providerName),
		zap.String("transaction_id", tx.ID),
		zap.Float64("amount", tx.Amount),
		zap.Bool("test", sess.Test))
	return sess, nil
}

// HandleCallback verifies a provider notification, settles the matching transaction and
// records the order. payload is the raw notification body; when no transaction matches it
// is recorded as-is, and when it is nil an unknown transaction is ErrNotFound. A repeated
// callback for a settled transaction returns it unchanged without recording again.
func (s *Service) HandleCallback(ctx context.Context, providerName string, fields map[string]string, payload models.Order) (*models.Transaction, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, err
	}
	res, err := p.VerifyCallback(ctx, fields)
	if err != nil {
		s.logger.Warn("payment callback rejected", zap.String("provider", providerName), zap.Error(err))
		return nil, err
	}
	status := models.TransactionCompleted
	if !res.Success {
		status = models.TransactionFailed
	}
	logFields := []zap.Field{
		zap.String("provider", providerName),
		zap.String("transaction_id", res.TransactionID),
		zap.String("response_code", res.ResponseCode),
	}
	if res.Success {
		s.logger.Info("payment succeeded", logFields...)
	} else {
		s.logger.Warn("payment failed", logFields...)
	}

	if res.TransactionID == "" {
		return nil, s.recordRaw(ctx, payload)
	}

	tx, err := s.store.Update(ctx, res.TransactionID, func(t *models.Transaction) error {
		if t.Status != models.TransactionPending {
			return errSettled
		}
		t.Status = status
		t.ResponseCode = res.ResponseCode
		if res.ProviderRef != "" {
			t.ProviderRef = res.ProviderRef
		}
		t.UpdatedAt = s.now()
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound) && payload != nil:
		return nil, s.recordRaw(ctx, payload)
	case errors.Is(err, errSettled):
		s.logger.Info("duplicate payment callback ignored", logFields...)
		return s.store.Get(ctx, res.TransactionID)
	case err != nil:
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, buildOrder(tx, res, payload, s.now())); err != nil {
		s.reopen(ctx, tx.ID, status)
		return tx, fmt.Errorf("record order %s: %w", tx.ID, err)
	}
	return tx, nil
}

// reopen puts a transaction whose order could not be written back to pending, so the
// provider's retry of the same callback settles it and records the order again.
func (s *Service) reopen(ctx context.Context, id, settledAs string) {
	_, err := s.store.Update(ctx, id, func(t *models.Transaction) error {
		if t.Status != settledAs {
			return errSettled
		}
		t.Status = models.TransactionPending
		t.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		s.logger.Error("reopen transaction after failed order write", zap.String("transaction_id", id), zap.Error(err))
		return
	}
	s.logger.Warn("transaction reopened after failed order write", zap.String("transaction_id", id))
}

// QueryStatus returns the stored transaction.
func (s *Service) QueryStatus(ctx context.Context, id string) (*models.Transaction, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) recordRaw(ctx context.Context, payload models.Order) error {
	if payload == nil {
		return ErrNotFound
	}
	_, err := s.recorder.Record(ctx, payload)
	return err
}

// buildOrder merges the notification body with the authoritative transaction fields.
func buildOrder(tx *models.Transaction, res *CallbackResult, payload models.Order, now time.Time) models.Order {
	o := models.Order{}
	for k, v := range payload {
		o[k] = v
	}
	o["formId"] = tx.ID
	o["status"] = tx.Status
	o["provider"] = tx.Provider
	o["amount"] = tx.Amount
	o["currency"] = tx.Currency
	o["customerInfo"] = tx.CustomerInfo
	o["items"] = tx.Items
	if tx.CouponCode != "" {
		o["couponCode"] = tx.CouponCode
	}
	if res.ProviderRef != "" {
		o["paymentId"] = res.ProviderRef
	}
	if res.DocumentID != "" {
		o["documentId"] = res.DocumentID
	}
	if _, ok := o["purchaseTimestamp"]; !ok {
		o["purchaseTimestamp"] = now.UTC().Format(models.ReceivedAtLayout)
	}
	return o
}
