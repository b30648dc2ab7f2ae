package trigger

import (
	"fmt"

	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/pkg/geo"
	domain "citypulse/pkg/types"
)

var congestionLabels = map[int]string{
	1: "relaxed",
	2: "moderate",
	3: "busy",
	4: "crowded",
}

// Congestion fires when a monitored area near the user reports crowding
// at or above the configured level.
type Congestion struct {
	level    int
	radiusKm float64
	enabled  bool
}

// NewCongestion creates the crowding strategy.
func NewCongestion(cfg config.CongestionConfig) *Congestion {
	return &Congestion{
		level:    cfg.Level,
		radiusKm: cfg.RadiusKm,
		enabled:  cfg.Enabled == nil || *cfg.Enabled,
	}
}

// Name implements Strategy.
func (*Congestion) Name() string { return "congestion" }

// Type implements Strategy.
func (*Congestion) Type() domain.NotificationType { return domain.NotificationCongestion }

// Priority implements Strategy.
func (s *Congestion) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*Congestion) Description() string {
	return "warns when a nearby monitored area is crowded"
}

// Enabled implements Strategy.
func (s *Congestion) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *Congestion) Evaluate(tc *Context) Result {
	if !tc.User.HasInterest(domain.InterestCongestion) {
		return NotTriggered()
	}

	lat, lng, ok := tc.Location()
	if !ok {
		return NotTriggered()
	}

	areas, ok := tc.Data.Congestion()
	if !ok {
		return NotTriggered()
	}

	nearby := geo.NearestWithin(areas, areaCoord, lat, lng, s.radiusKm)
	for _, a := range nearby {
		if a.Item.Level < s.level {
			continue
		}
		label := congestionLabels[a.Item.Level]
		if label == "" {
			label = fmt.Sprintf("level %d", a.Item.Level)
		}
		return Fire(
			domain.NotificationCongestion,
			domain.ConditionCongestionHigh,
			"Crowding nearby",
			fmt.Sprintf("%s is %s right now (%.0f m away). Expect delays.",
				a.Item.Name, label, a.DistanceKm*1000),
			a.Item.Name,
		)
	}

	return NotTriggered()
}

func areaCoord(a cityapi.CongestionArea) (float64, float64) {
	return a.Latitude, a.Longitude
}
