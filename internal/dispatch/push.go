package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// PushChannel delivers through an HTTP push provider keyed by the
// user's device token.
type PushChannel struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// PushOption configures a PushChannel.
type PushOption func(*PushChannel)

// WithPushHTTPClient sets a custom HTTP client.
func WithPushHTTPClient(c *http.Client) PushOption {
	return func(p *PushChannel) { p.client = c }
}

// NewPushChannel creates a push channel from config.
func NewPushChannel(cfg config.PushConfig, opts ...PushOption) *PushChannel {
	p := &PushChannel{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Channel.
func (*PushChannel) Name() string { return "push" }

type pushPayload struct {
	DeviceToken string `json:"device_token"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Urgent      bool   `json:"urgent"`
	Category    string `json:"category"`
}

// Send implements Channel.
func (p *PushChannel) Send(
	ctx context.Context,
	targets domain.ChannelTargets,
	n *domain.NotificationHistory,
) (Outcome, error) {
	if targets.DeviceToken == "" {
		return OutcomeSkipped, nil
	}

	body, err := json.Marshal(pushPayload{
		DeviceToken: targets.DeviceToken,
		Title:       n.Title,
		Body:        n.Message,
		Urgent:      n.Type.Urgent(),
		Category:    string(n.Type),
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshaling push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("sending push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if readErr != nil {
			return OutcomeFailed, fmt.Errorf("push provider returned %d (body unreadable)", resp.StatusCode)
		}
		return OutcomeFailed, fmt.Errorf("push provider returned %d: %s", resp.StatusCode, respBody)
	}

	return OutcomeDelivered, nil
}
