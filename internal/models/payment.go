package models

import "time"

// Payment providers.
const (
	ProviderCardcom      = "cardcom"
	ProviderGreenInvoice = "greeninvoice"
)

// Transaction statuses.
const (
	TransactionPending   = "pending"
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// Transaction is one payment attempt. ID is the correlation id carried to the provider and
// back through its callback, and becomes the order's formId.
type Transaction struct {
	ID           string       `json:"transactionId"`
	Provider     string       `json:"provider"`
	Status       string       `json:"status"`
	Amount       float64      `json:"amount"`
	Currency     string       `json:"currency"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	Items        []OrderItem  `json:"items"`
	CouponCode   string       `json:"couponCode,omitempty"`
	ProviderRef  string       `json:"providerRef,omitempty"`
	PaymentURL   string       `json:"paymentUrl,omitempty"`
	ResponseCode string       `json:"responseCode,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
