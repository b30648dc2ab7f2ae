package trigger

import (
	"fmt"
	"time"

	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/pkg/geo"
	domain "citypulse/pkg/types"
)

// Culture fires when an upcoming cultural event starts within the
// lookahead window near the user's location.
type Culture struct {
	radiusKm  float64
	lookahead time.Duration
	enabled   bool
}

// NewCulture creates the cultural event strategy.
func NewCulture(cfg config.CultureConfig) *Culture {
	return &Culture{
		radiusKm:  cfg.RadiusKm,
		lookahead: cfg.Lookahead,
		enabled:   cfg.Enabled == nil || *cfg.Enabled,
	}
}

// Name implements Strategy.
func (*Culture) Name() string { return "culture" }

// Type implements Strategy.
func (*Culture) Type() domain.NotificationType { return domain.NotificationCulture }

// Priority implements Strategy.
func (s *Culture) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*Culture) Description() string {
	return "suggests nearby cultural events starting soon"
}

// Enabled implements Strategy.
func (s *Culture) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *Culture) Evaluate(tc *Context) Result {
	if !tc.User.HasInterest(domain.InterestCulture) {
		return NotTriggered()
	}

	lat, lng, ok := tc.Location()
	if !ok {
		return NotTriggered()
	}

	events, ok := tc.Data.CulturalEvents()
	if !ok {
		return NotTriggered()
	}

	nearby := geo.NearestWithin(events, eventCoord, lat, lng, s.radiusKm)
	horizon := tc.Now.Add(s.lookahead)
	for _, e := range nearby {
		if !e.Item.StartsAt.After(tc.Now) || e.Item.StartsAt.After(horizon) {
			continue
		}
		return Fire(
			domain.NotificationCulture,
			domain.ConditionCulturalEventNearby,
			"Event near you",
			fmt.Sprintf("%q starts %s at %s, %.1f km from you.",
				e.Item.Title,
				e.Item.StartsAt.Format("Mon 15:04"),
				e.Item.Place,
				e.DistanceKm),
			e.Item.Place,
		)
	}

	return NotTriggered()
}

func eventCoord(e cityapi.CulturalEvent) (float64, float64) {
	return e.Latitude, e.Longitude
}
