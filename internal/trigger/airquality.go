package trigger

import (
	"fmt"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// AirQuality fires when either particulate index crosses its configured
// severity cutoff. Registered after Temperature so an equal-priority tie
// on a hot, smoggy day resolves to the temperature warning.
type AirQuality struct {
	pm10Bad int
	pm25Bad int
	enabled bool
}

// NewAirQuality creates the air quality strategy.
func NewAirQuality(cfg config.AirQualityConfig) *AirQuality {
	return &AirQuality{
		pm10Bad: cfg.PM10Bad,
		pm25Bad: cfg.PM25Bad,
		enabled: cfg.Enabled == nil || *cfg.Enabled,
	}
}

// Name implements Strategy.
func (*AirQuality) Name() string { return "air_quality" }

// Type implements Strategy.
func (*AirQuality) Type() domain.NotificationType { return domain.NotificationWeather }

// Priority implements Strategy.
func (s *AirQuality) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*AirQuality) Description() string {
	return "warns when particulate levels cross the severity cutoff"
}

// Enabled implements Strategy.
func (s *AirQuality) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *AirQuality) Evaluate(tc *Context) Result {
	if !tc.User.HasInterest(domain.InterestWeather) {
		return NotTriggered()
	}

	aq, ok := tc.Data.AirQuality()
	if !ok {
		return NotTriggered()
	}

	if aq.PM10 < s.pm10Bad && aq.PM25 < s.pm25Bad {
		return NotTriggered()
	}

	return Fire(
		domain.NotificationWeather,
		domain.ConditionAirQualityBad,
		"Air quality alert",
		fmt.Sprintf("Particulate levels are high (PM10 %d, PM2.5 %d). Consider a mask outdoors.", aq.PM10, aq.PM25),
		"your area",
	)
}
