package greeninvoice

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/models"
	"github.com/hamikdash/storefront/internal/orders"
	"github.com/hamikdash/storefront/internal/payments"
)

// Config controls redirects and the credential-less test mode.
type Config struct {
	FrontendURL string
	BackendURL  string
	Production  bool
	// TestFallback allows synthetic sessions and documents when credentials are absent.
	// It never applies in production.
	TestFallback bool
}

// Provider is the GreenInvoice payments.Provider built on Client.
type Provider struct {
	client *Client
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewProvider creates a GreenInvoice provider.
func NewProvider(client *Client, cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{client: client, cfg: cfg, logger: logger, now: time.Now}
}

// Name implements payments.Provider.
func (p *Provider) Name() string { return "greeninvoice" }

// FallbackActive reports whether calls are answered with synthetic data.
func (p *Provider) FallbackActive() bool {
	return !p.cfg.Production && p.cfg.TestFallback && !p.client.Configured()
}

// TestDocumentID returns a synthetic TEST_INV_<epoch-ms>_<hex> id.
func TestDocumentID(now time.Time) string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("TEST_INV_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}

// Initiate implements payments.Provider by opening a hosted payment form whose custom
// field carries the transaction id back in the webhook.
func (p *Provider) Initiate(ctx context.Context, c payments.Checkout) (*payments.Session, error) {
	q := url.Values{}
	q.Set("transactionId", c.TransactionID)

	if !p.client.Configured() {
		if !p.FallbackActive() {
			return nil, payments.ErrNotConfigured
		}
		ref := TestDocumentID(p.now())
		q.Set("documentId", ref)
		p.logger.Warn("greeninvoice credentials missing, returning synthetic payment session",
			zap.String("transaction_id", c.TransactionID), zap.String("document_id", ref))
		return &payments.Session{
			TransactionID: c.TransactionID,
			PaymentURL:    p.cfg.FrontendURL + "/payment/success?" + q.Encode(),
			ProviderRef:   ref,
			Test:          true,
		}, nil
	}

	form, err := p.client.CreatePaymentForm(ctx, PaymentFormRequest{
		Description: description(c),
		Type:        DocumentTypeTaxInvoice,
		Lang:        "he",
		Currency:    c.Currency,
		VatType:     VatTypeIncluded,
		Amount:      c.TotalAmount,
		MaxPayments: 1,
		Client:      clientInfo(c.CustomerInfo),
		Income:      incomeLines(c.Items, c.Currency, c.TotalAmount, c.Description),
		SuccessURL:  p.cfg.FrontendURL + "/payment/success?" + q.Encode(),
		FailureURL:  p.cfg.FrontendURL + "/payment/failure?" + q.Encode(),
		NotifyURL:   p.cfg.BackendURL + "/api/greeninvoice/webhook",
		Custom:      c.TransactionID,
	})
	if err != nil {
		return nil, err
	}
	return &payments.Session{TransactionID: c.TransactionID, PaymentURL: form.URL}, nil
}

// VerifyCallback implements payments.Provider. Payment form notifications are unsigned;
// the transaction id comes back in custom (or formId for direct order posts).
func (p *Provider) VerifyCallback(_ context.Context, fields map[string]string) (*payments.CallbackResult, error) {
	status := fields["status"]
	success := !orders.IsFailureStatus(status) && !strings.EqualFold(fields["success"], "false")
	return &payments.CallbackResult{
		TransactionID: first(fields["custom"], fields["formId"]),
		Success:       success,
		ResponseCode:  status,
		ProviderRef:   first(fields["paymentId"], fields["transactionId"]),
		DocumentID:    first(fields["documentId"], fields["id"]),
	}, nil
}

// DocumentForOrder builds a tax invoice request from a stored order.
func DocumentForOrder(o models.Order) DocumentRequest {
	d := o.Details()
	currency := d.Currency
	if currency == "" {
		currency = "ILS"
	}
	amount, _ := strconv.ParseFloat(d.AmountText(), 64)
	desc := "Order " + d.FormID
	return DocumentRequest{
		Description: desc,
		Type:        DocumentTypeTaxInvoice,
		Lang:        "he",
		Currency:    currency,
		VatType:     VatTypeIncluded,
		Client:      clientInfo(d.CustomerInfo),
		Income:      incomeLines(d.ItemList(), currency, amount, desc),
		Remarks:     d.Dedication,
	}
}

func description(c payments.Checkout) string {
	if c.Description != "" {
		return c.Description
	}
	return "Order " + c.TransactionID
}

func clientInfo(ci models.CustomerInfo) ClientInfo {
	info := ClientInfo{
		Name:    ci.Name(),
		Phone:   ci.Phone,
		Address: ci.Address,
		City:    ci.City,
		Zip:     ci.ZipCode,
	}
	if info.Name == "" {
		info.Name = "Customer"
	}
	if ci.Email != "" {
		info.Emails = []string{ci.Email}
	}
	return info
}

// incomeLines maps cart items to income lines, or a single line for total when the cart
// is empty.
func incomeLines(items []models.OrderItem, currency string, total float64, desc string) []Item {
	if len(items) == 0 {
		return []Item{{Description: desc, Quantity: 1, Price: total, Currency: currency, VatType: VatTypeIncluded}}
	}
	lines := make([]Item, 0, len(items))
	for _, it := range items {
		name := first(it.Name, it.NameEn)
		if it.SelectedColor != nil && it.SelectedColor.Name != "" {
			name += " (" + it.SelectedColor.Name + ")"
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, Item{Description: name, Quantity: qty, Price: it.Price, Currency: currency, VatType: VatTypeIncluded})
	}
	return lines
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
