package clinic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Email is one outbound HTML message.
type Email struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SendGridMailer sends through the SendGrid v3 mail send API.
type SendGridMailer struct {
	baseURL     string
	apiKey      string
	fromName    string
	fromAddress string
	client      *http.Client
}

// NewSendGridMailer builds a mailer. baseURL is the production API or a test
// stand-in.
func NewSendGridMailer(baseURL, apiKey, fromName, fromAddress string) *SendGridMailer {
	return &SendGridMailer{
		baseURL:     baseURL,
		apiKey:      apiKey,
		fromName:    fromName,
		fromAddress: fromAddress,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Send implements Mailer via POST /v3/mail/send.
func (m *SendGridMailer) Send(ctx context.Context, email Email) error {
	payload := map[string]any{
		"personalizations": []map[string]any{{
			"to": []map[string]string{{"email": email.To, "name": email.ToName}},
		}},
		"from":    map[string]string{"email": m.fromAddress, "name": m.fromName},
		"subject": email.Subject,
		"content": []map[string]string{{"type": "text/html", "value": email.HTML}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mailer: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send to %s: %w", email.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mailer: send to %s: status %d: %s", email.To, resp.StatusCode, body)
	}
	return nil
}

// NopMailer drops mail. Used when email is disabled and in tests.
type NopMailer struct{}

// Send implements Mailer.
func (NopMailer) Send(context.Context, Email) error { return nil }
