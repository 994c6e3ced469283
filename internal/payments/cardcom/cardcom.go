// Package cardcom builds Cardcom low-profile payment page redirects and verifies their
// callbacks.
package cardcom

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hamikdash/storefront/internal/payments"
	"github.com/hamikdash/storefront/pkg/utils"
)

// ResponseCodeSuccess is the callback ResponseCode of an approved payment.
const ResponseCodeSuccess = "0"

const maxProductName = 50

// Config holds terminal credentials and redirect targets.
type Config struct {
	TerminalNumber string
	Username       string
	BaseURL        string
	Language       string
	FrontendURL    string
	BackendURL     string
}

// Provider is the Cardcom payments.Provider.
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Cardcom provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Language == "" {
		cfg.Language = "he"
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Name implements payments.Provider.
func (p *Provider) Name() string { return "cardcom" }

// Configured reports whether terminal credentials are set.
func (p *Provider) Configured() bool {
	return p.cfg.TerminalNumber != "" && p.cfg.Username != ""
}

// CoinID maps a currency code to Cardcom's numeric currency id.
func CoinID(currency string) string {
	if strings.EqualFold(currency, "USD") {
		return "2"
	}
	return "1"
}

// Signature is the hex MD5 of the params sorted by key as "k=v" pairs joined by "&".
// The Signature key itself is excluded. It is an integrity check only: no secret is mixed in.
func Signature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "Signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := md5.Sum([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(sum[:])
}

// Params builds the low-profile parameter map for a checkout.
func (p *Provider) Params(c payments.Checkout) map[string]string {
	q := url.Values{}
	q.Set("transactionId", c.TransactionID)
	return map[string]string{
		"TerminalNumber":     p.cfg.TerminalNumber,
		"UserName":           p.cfg.Username,
		"SumToBill":          utils.FormatAmount(c.TotalAmount),
		"CoinID":             CoinID(c.Currency),
		"Language":           p.cfg.Language,
		"SuccessRedirectUrl": p.cfg.FrontendURL + "/payment/success?" + q.Encode(),
		"ErrorRedirectUrl":   p.cfg.FrontendURL + "/payment/failure?" + q.Encode(),
		"IndicatorUrl":       p.cfg.BackendURL + "/api/cardcom/callback",
		"ReturnValue":        c.TransactionID,
		"ProductName":        productName(c),
	}
}

// Initiate implements payments.Provider by returning the signed GET redirect URL.
func (p *Provider) Initiate(_ context.Context, c payments.Checkout) (*payments.Session, error) {
	if !p.Configured() {
		return nil, payments.ErrNotConfigured
	}
	params := p.Params(c)
	params["Signature"] = Signature(params)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return &payments.Session{
		TransactionID: c.TransactionID,
		PaymentURL:    p.cfg.BaseURL + "?" + q.Encode(),
	}, nil
}

// VerifyCallback implements payments.Provider. The signature is recomputed over every
// field except Signature.
func (p *Provider) VerifyCallback(_ context.Context, fields map[string]string) (*payments.CallbackResult, error) {
	got := fields["Signature"]
	if got == "" || !strings.EqualFold(got, Signature(fields)) {
		return nil, payments.ErrSignature
	}
	return &payments.CallbackResult{
		TransactionID: fields["ReturnValue"],
		Success:       fields["ResponseCode"] == ResponseCodeSuccess,
		ResponseCode:  fields["ResponseCode"],
		ProviderRef:   firstNonEmpty(fields["InternalDealNumber"], fields["lowprofilecode"]),
	}, nil
}

func productName(c payments.Checkout) string {
	if c.Description != "" {
		return truncate(c.Description)
	}
	switch len(c.Items) {
	case 0:
		return fmt.Sprintf("Order %s", c.TransactionID)
	case 1:
		return truncate(c.Items[0].Name)
	default:
		return truncate(fmt.Sprintf("%s +%d", c.Items[0].Name, len(c.Items)-1))
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxProductName {
		return string(r[:maxProductName])
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
