package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// WebhookChannel posts the notification as JSON to the user's own
// webhook URL.
type WebhookChannel struct {
	headers map[string]string
	client  *http.Client
}

// WebhookOption configures a WebhookChannel.
type WebhookOption func(*WebhookChannel)

// WithWebhookHTTPClient sets a custom HTTP client.
func WithWebhookHTTPClient(c *http.Client) WebhookOption {
	return func(w *WebhookChannel) { w.client = c }
}

// NewWebhookChannel creates a webhook channel from config.
func NewWebhookChannel(cfg config.WebhookConfig, opts ...WebhookOption) *WebhookChannel {
	w := &WebhookChannel{
		headers: cfg.Headers,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name implements Channel.
func (*WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Condition    string    `json:"condition"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	LocationInfo string    `json:"location_info,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}

// Send implements Channel.
func (w *WebhookChannel) Send(
	ctx context.Context,
	targets domain.ChannelTargets,
	n *domain.NotificationHistory,
) (Outcome, error) {
	if targets.WebhookURL == "" {
		return OutcomeSkipped, nil
	}

	body, err := json.Marshal(webhookPayload{
		ID:           n.ID,
		Type:         string(n.Type),
		Condition:    string(n.Condition),
		Title:        n.Title,
		Message:      n.Message,
		LocationInfo: n.LocationInfo,
		SentAt:       n.SentAt,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targets.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512)) //nolint:errcheck // draining for connection reuse
		return OutcomeFailed, fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	return OutcomeDelivered, nil
}
