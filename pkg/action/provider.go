package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type SmsMessage struct {
	To             string `json:"to"`
	From           string `json:"from"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"-"`
}

type EmailMessage struct {
	To             string `json:"to"`
	From           string `json:"from"`
	Subject        string `json:"subject,omitempty"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"-"`
}

// SmsProvider and EmailProvider are the outbound channel collaborators.
// Implementations must return failures classified via Transient/Permanent.
type SmsProvider interface {
	Send(ctx context.Context, msg SmsMessage) error
}

type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// HTTPProvider posts messages as JSON to a hosted messaging gateway. 5xx
// responses and transport errors are transient; 4xx responses are permanent.
type HTTPProvider struct {
	client *http.Client
	url    string
	apiKey string
}

func NewHTTPProvider(url, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		apiKey: apiKey,
	}
}

func (p *HTTPProvider) Send(ctx context.Context, msg SmsMessage) error {
	return p.post(ctx, msg, msg.IdempotencyKey)
}

// SendEmail satisfies EmailProvider through the emailProvider adapter below.
func (p *HTTPProvider) SendEmail(ctx context.Context, msg EmailMessage) error {
	return p.post(ctx, msg, msg.IdempotencyKey)
}

func (p *HTTPProvider) post(ctx context.Context, payload interface{}, idempotencyKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return Permanent(fmt.Errorf("marshal message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Transient(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Transient(fmt.Errorf("provider returned %d", resp.StatusCode))
	default:
		return Permanent(fmt.Errorf("provider returned %d", resp.StatusCode))
	}
}

type emailProvider struct {
	inner *HTTPProvider
}

// NewHTTPEmailProvider returns an EmailProvider backed by the same gateway
// transport as SMS.
func NewHTTPEmailProvider(url, apiKey string) EmailProvider {
	return &emailProvider{inner: NewHTTPProvider(url, apiKey)}
}

func (p *emailProvider) Send(ctx context.Context, msg EmailMessage) error {
	return p.inner.SendEmail(ctx, msg)
}
