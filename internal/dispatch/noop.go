package dispatch

import (
	"context"
	"log/slog"

	domain "citypulse/pkg/types"
)

// NoOpChannel logs notifications instead of delivering them. It is used
// when no real channel is configured, so dispatch still records history
// and development runs stay observable.
type NoOpChannel struct {
	log *slog.Logger
}

// NewNoOpChannel creates a channel that logs and discards.
func NewNoOpChannel(log *slog.Logger) *NoOpChannel {
	if log == nil {
		log = slog.Default()
	}
	return &NoOpChannel{log: log}
}

// Name implements Channel.
func (*NoOpChannel) Name() string { return "noop" }

// Send implements Channel.
func (c *NoOpChannel) Send(
	_ context.Context,
	_ domain.ChannelTargets,
	n *domain.NotificationHistory,
) (Outcome, error) {
	c.log.Info("notification discarded (no channel configured)",
		"user", n.UserID,
		"type", n.Type,
		"title", n.Title,
	)
	return OutcomeDelivered, nil
}
