// Package payments coordinates hosted-payment providers: it records each payment attempt
// under a correlation id and turns provider callbacks into orders.
package payments

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/hamikdash/storefront/internal/models"
)

var (
	// ErrSignature is returned when a callback signature does not match.
	ErrSignature = errors.New("invalid callback signature")
	// ErrNotConfigured is returned when a provider lacks credentials.
	ErrNotConfigured = errors.New("payment provider not configured")
	// ErrNotFound is returned for an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")
	// ErrUnknownProvider is returned for an unregistered provider name.
	ErrUnknownProvider = errors.New("unknown payment provider")
)

// Checkout is the cart and customer handed to a provider.
type Checkout struct {
	TransactionID string              `json:"-"`
	Items         []models.OrderItem  `json:"items" binding:"required,min=1"`
	TotalAmount   float64             `json:"totalAmount" binding:"required,gt=0"`
	CustomerInfo  models.CustomerInfo `json:"customerInfo"`
	CouponCode    string              `json:"couponCode"`
	Currency      string              `json:"currency"`
	Description   string              `json:"description"`
}

// Session is a started hosted payment.
type Session struct {
	TransactionID string `json:"transactionId"`
	PaymentURL    string `json:"paymentUrl"`
	ProviderRef   string `json:"providerRef,omitempty"`
	// Test marks a synthetic session produced without provider credentials.
	Test bool `json:"test,omitempty"`
}

// CallbackResult is a verified provider notification.
type CallbackResult struct {
	TransactionID string
	Success       bool
	ResponseCode  string
	ProviderRef   string
	DocumentID    string
}

// Provider is a hosted-payment integration. Status queries are answered from the shared
// transaction store by Service.QueryStatus.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, c Checkout) (*Session, error)
	VerifyCallback(ctx context.Context, fields map[string]string) (*CallbackResult, error)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewTransactionID returns TXN_<epoch-ms>_<9 random base-36 chars>.
func NewTransactionID(now time.Time) string {
	suffix := make([]byte, 9)
	max := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is unavailable.
			panic(fmt.Sprintf("payments: read random: %v", err))
		}
		suffix[i] = base36[n.Int64()]
	}
	return fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), suffix)
}
