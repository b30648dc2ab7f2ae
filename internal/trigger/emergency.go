package trigger

import (
	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// Emergency fires on any active civil emergency alert. Safety alerts go
// to every user regardless of declared interests.
type Emergency struct {
	enabled bool
}

// NewEmergency creates the emergency alert strategy.
func NewEmergency(cfg config.EmergencyConfig) *Emergency {
	return &Emergency{enabled: cfg.Enabled == nil || *cfg.Enabled}
}

// Name implements Strategy.
func (*Emergency) Name() string { return "emergency" }

// Type implements Strategy.
func (*Emergency) Type() domain.NotificationType { return domain.NotificationEmergency }

// Priority implements Strategy.
func (s *Emergency) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*Emergency) Description() string {
	return "relays active civil emergency alerts"
}

// Enabled implements Strategy.
func (s *Emergency) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *Emergency) Evaluate(tc *Context) Result {
	alerts, ok := tc.Data.EmergencyAlerts()
	if !ok {
		return NotTriggered()
	}

	a := alerts[0]
	return Fire(
		domain.NotificationEmergency,
		domain.ConditionEmergencyAlert,
		a.Title,
		a.Message,
		a.Region,
	)
}
