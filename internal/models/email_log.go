package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLog statuses.
const (
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
	EmailLogStatusSkipped = "skipped"
)

// EmailLog records one order notification delivery attempt.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	FormID         string     `json:"formId"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	MessageID      string     `json:"messageId,omitempty"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
