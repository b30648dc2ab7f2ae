package dispatch

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// EmailChannel delivers over SMTP to the user's address.
type EmailChannel struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates an SMTP channel from config.
func NewEmailChannel(cfg config.EmailConfig) *EmailChannel {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailChannel{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:     cfg.From,
		auth:     auth,
		sendMail: smtp.SendMail,
	}
}

// Name implements Channel.
func (*EmailChannel) Name() string { return "email" }

// Send implements Channel. smtp.SendMail has no context plumbing, so
// cancellation is only honored between the check and the dial.
func (e *EmailChannel) Send(
	ctx context.Context,
	targets domain.ChannelTargets,
	n *domain.NotificationHistory,
) (Outcome, error) {
	if targets.Email == "" {
		return OutcomeSkipped, nil
	}
	if err := ctx.Err(); err != nil {
		return OutcomeFailed, err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.from)
	fmt.Fprintf(&msg, "To: %s\r\n", targets.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Title)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(n.Message)
	if n.LocationInfo != "" {
		fmt.Fprintf(&msg, "\r\n\r\nWhere: %s", n.LocationInfo)
	}
	msg.WriteString("\r\n")

	if err := e.sendMail(e.addr, e.auth, e.from, []string{targets.Email}, []byte(msg.String())); err != nil {
		return OutcomeFailed, fmt.Errorf("sending email: %w", err)
	}

	return OutcomeDelivered, nil
}
