// Package notify renders and sends the merchant's bilingual order notification e-mail.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
)

// DeliveryLog records notification attempts (emaillogs.Repository).
type DeliveryLog interface {
	Record(ctx context.Context, l *models.EmailLog) error
}

// Service sends order notifications to the merchant.
type Service struct {
	mail   *MailClient
	from   string
	to     string
	log    DeliveryLog
	logger *zap.Logger
}

// NewService creates a notification service.
func NewService(mail *MailClient, from, merchantEmail string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{mail: mail, from: from, to: merchantEmail, logger: logger}
}

// SetDeliveryLog enables recording of every send attempt.
func (s *Service) SetDeliveryLog(log DeliveryLog) {
	s.log = log
}

// Enabled reports whether notifications can be sent at all.
func (s *Service) Enabled() bool {
	return s.mail.Configured() && s.to != ""
}

// SendOrderNotification renders and submits the notification. It never returns an error:
// false means the mail API is not configured or did not accept the message.
func (s *Service) SendOrderNotification(ctx context.Context, o models.Order) bool {
	entry := &models.EmailLog{FormID: o.FormID(), RecipientEmail: s.to, Status: models.EmailLogStatusFailed}
	defer s.record(ctx, entry)

	if !s.mail.Configured() {
		s.logger.Warn("mail API key not set, skipping order notification", zap.String("form_id", o.FormID()))
		entry.Status = models.EmailLogStatusSkipped
		entry.ErrorMessage = "mail API key not set"
		return false
	}
	if s.to == "" {
		s.logger.Warn("merchant email not set, skipping order notification", zap.String("form_id", o.FormID()))
		entry.Status = models.EmailLogStatusSkipped
		entry.ErrorMessage = "merchant email not set"
		return false
	}
	msg, err := Render(o)
	if err != nil {
		s.logger.Error("render order notification", zap.Error(err), zap.String("form_id", o.FormID()))
		entry.ErrorMessage = err.Error()
		return false
	}
	entry.Subject = msg.Subject
	id, err := s.mail.Send(ctx, Email{
		From:    s.from,
		To:      []string{s.to},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		s.logger.Error("send order notification", zap.Error(err), zap.String("form_id", o.FormID()))
		entry.ErrorMessage = err.Error()
		return false
	}
	now := time.Now().UTC()
	entry.Status = models.EmailLogStatusSent
	entry.MessageID = id
	entry.SentAt = &now
	s.logger.Info("order notification accepted", zap.String("form_id", o.FormID()), zap.String("message_id", id))
	return true
}

func (s *Service) record(ctx context.Context, entry *models.EmailLog) {
	if s.log == nil {
		return
	}
	if err := s.log.Record(ctx, entry); err != nil {
		s.logger.Warn("record email log", zap.Error(err), zap.String("form_id", entry.FormID))
	}
}

// Notify implements orders.Notifier by sending inline.
func (s *Service) Notify(ctx context.Context, o models.Order) bool {
	return s.SendOrderNotification(ctx, o)
}
