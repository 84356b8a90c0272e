package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	webhookAttempts  = 3
	webhookBaseDelay = 500 * time.Millisecond
	maxRetryAfter    = 5 * time.Second
)

// WebhookNotifier sends alerts to a generic HTTP webhook endpoint.
// 429 and 5xx replies are retried with backoff; other non-2xx replies fail fast.
type WebhookNotifier struct {
	url       string
	client    *http.Client
	baseDelay time.Duration
}

// NewWebhookNotifier creates a webhook notifier.
// url: The HTTP endpoint to POST alerts to.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseDelay: webhookBaseDelay,
	}
}

type webhookPayload struct {
	Level   string         `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
	TS      string         `json:"ts"`
}

// WebhookError is a non-2xx reply from the webhook endpoint.
type WebhookError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *WebhookError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.Code, e.Body)
}

func (e *WebhookError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Level:   string(alert.Level),
		Title:   alert.Title,
		Message: alert.Message,
		Fields:  alert.Fields,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	delay := w.baseDelay
	for attempt := 1; ; attempt++ {
		err = w.post(ctx, alert.Level, body)
		if err == nil {
			slog.Debug("webhook alert sent", "title", alert.Title, "attempts", attempt)
			return nil
		}
		var we *WebhookError
		if !errors.As(err, &we) || !we.retryable() || attempt == webhookAttempts {
			return err
		}

		wait := delay
		if we.RetryAfter > 0 {
			wait = min(we.RetryAfter, maxRetryAfter)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}
}

func (w *WebhookNotifier) post(ctx context.Context, level AlertLevel, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Level", string(level))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	we := &WebhookError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		we.RetryAfter = time.Duration(secs) * time.Second
	}
	return we
}
