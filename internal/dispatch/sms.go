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

// SMSChannel delivers through an HTTP SMS gateway. Only urgent
// notification types are sent; SMS is too intrusive for the rest.
type SMSChannel struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

// SMSOption configures an SMSChannel.
type SMSOption func(*SMSChannel)

// WithSMSHTTPClient sets a custom HTTP client.
func WithSMSHTTPClient(c *http.Client) SMSOption {
	return func(s *SMSChannel) { s.client = c }
}

// NewSMSChannel creates an SMS channel from config.
func NewSMSChannel(cfg config.SMSConfig, opts ...SMSOption) *SMSChannel {
	s := &SMSChannel{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Channel.
func (*SMSChannel) Name() string { return "sms" }

type smsPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send implements Channel.
func (s *SMSChannel) Send(
	ctx context.Context,
	targets domain.ChannelTargets,
	n *domain.NotificationHistory,
) (Outcome, error) {
	if targets.Phone == "" || !n.Type.Urgent() {
		return OutcomeSkipped, nil
	}

	body, err := json.Marshal(smsPayload{
		From: s.from,
		To:   targets.Phone,
		Text: n.Title + ": " + n.Message,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshaling sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("creating sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("sending sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512)) //nolint:errcheck // draining for connection reuse
		return OutcomeFailed, fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}

	return OutcomeDelivered, nil
}
