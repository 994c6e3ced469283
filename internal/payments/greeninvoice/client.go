// Package greeninvoice talks to the GreenInvoice invoicing API: tax invoice documents,
// hosted payment forms and clients.
package greeninvoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// TokenTTL is how long a fetched token is reused. Provider tokens last an hour.
	TokenTTL = 55 * time.Minute
	// DocumentTypeTaxInvoice is the document type for a tax invoice.
	DocumentTypeTaxInvoice = 305
	// VatTypeIncluded marks prices as including VAT.
	VatTypeIncluded = 1

	httpTimeout = 30 * time.Second
)

// APIError wraps a failed call with the provider's full response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
	Header     http.Header
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("greeninvoice %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("greeninvoice %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Client is a GreenInvoice API client with a cached bearer token. Safe for concurrent use.
type Client struct {
	baseURL   string
	apiKeyID  string
	apiSecret string
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates an API client.
func NewClient(baseURL, apiKeyID, apiSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   baseURL,
		apiKeyID:  apiKeyID,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: httpTimeout},
		logger:    logger,
		now:       time.Now,
	}
}

// Configured reports whether API credentials are set.
func (c *Client) Configured() bool {
	return c.apiKeyID != "" && c.apiSecret != ""
}

// Token returns the cached bearer token, fetching a new one when it has expired.
// The lock is held across the fetch so concurrent callers share one request.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"id": c.apiKeyID, "secret": c.apiSecret}
	if err := c.call(ctx, "token", http.MethodPost, "/account/token", "", body, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", &APIError{Op: "token", StatusCode: http.StatusOK, Body: "empty token"}
	}
	c.token = out.Token
	c.expires = c.now().Add(TokenTTL)
	c.logger.Debug("greeninvoice token refreshed", zap.Time("expires", c.expires))
	return c.token, nil
}

// Item is a document or payment form income line.
type Item struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	VatType     int     `json:"vatType"`
}

// ClientInfo is the customer block embedded in documents and payment forms.
type ClientInfo struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Emails  []string `json:"emails,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Address string   `json:"address,omitempty"`
	City    string   `json:"city,omitempty"`
	Zip     string   `json:"zip,omitempty"`
	Add     bool     `json:"add,omitempty"`
}

// DocumentRequest creates a document.
type DocumentRequest struct {
	Description string     `json:"description"`
	Type        int        `json:"type"`
	Lang        string     `json:"lang"`
	Currency    string     `json:"currency"`
	VatType     int        `json:"vatType"`
	Client      ClientInfo `json:"client"`
	Income      []Item     `json:"income"`
	Remarks     string     `json:"remarks,omitempty"`
}

// Document is a created document.
type Document struct {
	ID     string `json:"id"`
	Number int64  `json:"number"`
	URL    string `json:"url"`
}

// PaymentFormRequest creates a hosted payment form.
type PaymentFormRequest struct {
	Description string     `json:"description"`
	Type        int        `json:"type"`
	Lang        string     `json:"lang"`
	Currency    string     `json:"currency"`
	VatType     int        `json:"vatType"`
	Amount      float64    `json:"amount"`
	MaxPayments int        `json:"maxPayments"`
	Client      ClientInfo `json:"client"`
	Income      []Item     `json:"income"`
	SuccessURL  string     `json:"successUrl"`
	FailureURL  string     `json:"failureUrl"`
	NotifyURL   string     `json:"notifyUrl"`
	Custom      string     `json:"custom"`
}

// PaymentForm is a created payment form.
type PaymentForm struct {
	URL string `json:"url"`
}

// CreateDocument issues a document and returns its id, number and download URL.
func (c *Client) CreateDocument(ctx context.Context, req DocumentRequest) (*Document, error) {
	var out struct {
		ID     string `json:"id"`
		Number int64  `json:"number"`
		URL    struct {
			He     string `json:"he"`
			En     string `json:"en"`
			Origin string `json:"origin"`
		} `json:"url"`
	}
	if err := c.authed(ctx, "create document", "/documents", req, &out); err != nil {
		return nil, err
	}
	url := out.URL.He
	if url == "" {
		url = out.URL.Origin
	}
	return &Document{ID: out.ID, Number: out.Number, URL: url}, nil
}

// CreatePaymentForm opens a hosted payment form.
func (c *Client) CreatePaymentForm(ctx context.Context, req PaymentFormRequest) (*PaymentForm, error) {
	var out PaymentForm
	if err := c.authed(ctx, "create payment form", "/payments/form", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateClient registers a customer and returns its id.
func (c *Client) CreateClient(ctx context.Context, info ClientInfo) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.authed(ctx, "create client", "/clients", info, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) authed(ctx context.Context, op, path string, body, out interface{}) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}
	return c.call(ctx, op, http.MethodPost, path, token, body, out)
}

func (c *Client) call(ctx context.Context, op, method, path, token string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Header: resp.Header, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody), Header: resp.Header}
		c.logger.Error("greeninvoice call failed",
			zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("body", apiErr.Body))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody), Header: resp.Header,
			Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
