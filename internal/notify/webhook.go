package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// DeliveryError is returned when the webhook answers with a non-2xx status.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook responded %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook responded %d: %s", e.StatusCode, e.Body)
}

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Webhook posts {"text": ...} to an incoming-webhook URL.
type Webhook struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

// NewWebhook creates a webhook sender. A nil client uses http.DefaultClient.
func NewWebhook(url string, timeout time.Duration, client *http.Client) *Webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: strings.TrimSpace(url), timeout: timeout, client: client}
}

func (w *Webhook) Send(ctx context.Context, text string) error {
	if w.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		log.Printf("[Notify] webhook returned %d", res.StatusCode)
		return &DeliveryError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

// Discard is a Sender used when notifications are disabled.
type Discard struct{}

func (Discard) Send(context.Context, string) error { return nil }
