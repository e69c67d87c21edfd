// Package notify delivers rendered session messages to a chat webhook or,
// for dry runs, to a logger.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// Channel delivers rendered content.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// defaultMaxLength is the Discord message ceiling.
const defaultMaxLength = 2000

type webhookPayload struct {
	Content string `json:"content"`
}

// WebhookChannel posts messages to a Discord-compatible webhook endpoint.
type WebhookChannel struct {
	url            string
	client         *http.Client
	maxLength      int
	allowOversized bool
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// WithMaxLength overrides the message-length ceiling.
func WithMaxLength(n int) WebhookOption {
	return func(ch *WebhookChannel) {
		if n > 0 {
			ch.maxLength = n
		}
	}
}

// WithAllowOversized disables ceiling enforcement; the endpoint may still
// reject the message.
func WithAllowOversized(allow bool) WebhookOption {
	return func(ch *WebhookChannel) {
		ch.allowOversized = allow
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	channel := &WebhookChannel{
		url:       url,
		client:    &http.Client{Timeout: 10 * time.Second},
		maxLength: defaultMaxLength,
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// truncate cuts s to at most max bytes without splitting a rune, ending
// with "..." when the ceiling leaves room for it. The messages are
// emoji-heavy, so a byte index can land mid-rune.
func truncate(s string, max int) string {
	const ellipsis = "..."
	cut := max - len(ellipsis)
	if cut < 0 {
		cut = max
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if max-cut >= len(ellipsis) {
		return s[:cut] + ellipsis
	}
	return s[:cut]
}

// Send posts the content. Content over the ceiling is truncated unless the
// channel was built with WithAllowOversized; callers that care about clean
// boundaries split before sending.
func (w *WebhookChannel) Send(ctx context.Context, content string) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	if !w.allowOversized && len(content) > w.maxLength {
		content = truncate(content, w.maxLength)
	}

	body, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook channel: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
