package trigger

import (
	"fmt"

	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/pkg/geo"
	domain "citypulse/pkg/types"
)

// BikeShare fires when the bike-share station nearest the user is about
// to run out of bikes. Stations are screened with the two-stage radius
// filter; without a user location the strategy cannot evaluate.
type BikeShare struct {
	minBikes int
	radiusKm float64
	enabled  bool
	dist     geo.DistanceFunc
}

// BikeShareOption configures the strategy.
type BikeShareOption func(*BikeShare)

// WithBikeDistanceCache plugs a shared memoizing distance cache into the
// exact-distance stage of the radius filter.
func WithBikeDistanceCache(c *geo.DistanceCache) BikeShareOption {
	return func(s *BikeShare) {
		s.dist = c.HaversineKm
	}
}

// NewBikeShare creates the bike shortage strategy.
func NewBikeShare(cfg config.BikeShareConfig, opts ...BikeShareOption) *BikeShare {
	s := &BikeShare{
		minBikes: cfg.MinBikes,
		radiusKm: cfg.RadiusKm,
		enabled:  cfg.Enabled == nil || *cfg.Enabled,
		dist:     geo.HaversineKm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Strategy.
func (*BikeShare) Name() string { return "bike_share" }

// Type implements Strategy.
func (*BikeShare) Type() domain.NotificationType { return domain.NotificationBikeSharing }

// Priority implements Strategy.
func (s *BikeShare) Priority() int { return s.Type().Priority() }

// Description implements Strategy.
func (*BikeShare) Description() string {
	return "warns when the nearest bike-share station is running out of bikes"
}

// Enabled implements Strategy.
func (s *BikeShare) Enabled() bool { return s.enabled }

// Evaluate implements Strategy.
func (s *BikeShare) Evaluate(tc *Context) Result {
	if !tc.User.HasInterest(domain.InterestBikeSharing) {
		return NotTriggered()
	}

	lat, lng, ok := tc.Location()
	if !ok {
		return NotTriggered()
	}

	stations, ok := tc.Data.BikeStations()
	if !ok {
		return NotTriggered()
	}

	nearby := geo.NearestWithinFunc(stations, stationCoord, lat, lng, s.radiusKm, s.dist)
	if len(nearby) == 0 {
		return NotTriggered()
	}

	nearest := nearby[0]
	if nearest.Item.AvailableBikes >= s.minBikes {
		return NotTriggered()
	}

	return Fire(
		domain.NotificationBikeSharing,
		domain.ConditionBikeShortage,
		"Bikes running low nearby",
		fmt.Sprintf("%s (%.0f m away) has only %d bike(s) left.",
			nearest.Item.Name, nearest.DistanceKm*1000, nearest.Item.AvailableBikes),
		nearest.Item.Name,
	)
}

func stationCoord(st cityapi.BikeStation) (float64, float64) {
	return st.Latitude, st.Longitude
}
