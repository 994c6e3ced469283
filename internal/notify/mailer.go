package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Email is one outbound message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// MailClient posts messages to a transactional mail API (POST {base}/emails, bearer key).
type MailClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewMailClient creates a mail API client.
func NewMailClient(baseURL, apiKey string) *MailClient {
	return &MailClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether an API key is set.
func (m *MailClient) Configured() bool {
	return m != nil && m.apiKey != ""
}

// Send submits e. A nil error means the provider accepted the message, not that it was delivered.
func (m *MailClient) Send(ctx context.Context, e Email) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("mail api status %d: %s", resp.StatusCode, string(raw))
	}
	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &out)
	return out.ID, nil
}
