package trigger

import (
	"fmt"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

// Temperature fires when the observed temperature breaches the
// configured high or low bound, or when precipitation crosses the heavy
// rain threshold. Heavy rain wins over a simultaneous temperature breach
// because it is the more actionable warning.
type Temperature struct {
	highC       float64
	lowC        float64
	heavyRainMm float64
	enabled     bool
}

// NewTemperature creates the weather temperature strategy.
func NewTemperature(cfg config.TemperatureConfig) *Temperature {
	return &Temperature{
		highC:       cfg.HighC,
		lowC:        cfg.LowC,
		heavyRainMm: cfg.HeavyRainMm,
		enabled:     cfg.Enabled == nil || *cfg.Enabled,
	}
}

// Name implements Strategy.
func (*Temperature) Name() string { return "temperature" }

// Type implements Strategy.
func (*Temperature) Type() domain.NotificationType { return domain.NotificationWeather }

// Priority implements Strategy.
func (s *Temperature) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*Temperature) Description() string {
	return "warns on extreme temperature or heavy rain"
}

// Enabled implements Strategy.
func (s *Temperature) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *Temperature) Evaluate(tc *Context) Result {
	if !tc.User.HasInterest(domain.InterestWeather) {
		return NotTriggered()
	}

	w, ok := tc.Data.Weather()
	if !ok {
		return NotTriggered()
	}

	switch {
	case w.PrecipitationMm >= s.heavyRainMm:
		return Fire(
			domain.NotificationWeather,
			domain.ConditionHeavyRain,
			"Heavy rain warning",
			fmt.Sprintf("%.0f mm/h of rain is falling in your area. Watch for flooding on low roads.", w.PrecipitationMm),
			"your area",
		)
	case w.TemperatureC >= s.highC:
		return Fire(
			domain.NotificationWeather,
			domain.ConditionTemperatureHigh,
			"Heat advisory",
			fmt.Sprintf("It is %.1f°C outside. Stay hydrated and avoid the midday sun.", w.TemperatureC),
			"your area",
		)
	case w.TemperatureC <= s.lowC:
		return Fire(
			domain.NotificationWeather,
			domain.ConditionTemperatureLow,
			"Cold wave advisory",
			fmt.Sprintf("It is %.1f°C outside. Wrap up and check on vulnerable neighbours.", w.TemperatureC),
			"your area",
		)
	default:
		return NotTriggered()
	}
}
