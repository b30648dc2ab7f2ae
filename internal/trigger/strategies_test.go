package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/pkg/geo"
	domain "citypulse/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func userWith(interests ...domain.InterestCategory) domain.User {
	return domain.User{
		ID:        "u-1",
		Nickname:  "jamie",
		Latitude:  ptr(37.5663),
		Longitude: ptr(126.9779),
		Interests: interests,
		Active:    true,
	}
}

func contextFor(u domain.User, data PublicData) *Context {
	return &Context{
		User:      u,
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		Now:       time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC),
		Data:      data,
	}
}

func TestTemperatureEvaluate(t *testing.T) {
	t.Parallel()

	s := NewTemperature(config.TemperatureConfig{HighC: 33, LowC: -12, HeavyRainMm: 20})

	tests := []struct {
		name     string
		user     domain.User
		data     PublicData
		fired    bool
		wantCond domain.TriggerCondition
	}{
		{
			name:  "no weather interest",
			user:  userWith(domain.InterestCulture),
			data:  PublicData{cityapi.KeyWeather: cityapi.Weather{TemperatureC: 40}},
			fired: false,
		},
		{
			name:  "weather section missing",
			user:  userWith(domain.InterestWeather),
			data:  PublicData{},
			fired: false,
		},
		{
			name:  "mild day",
			user:  userWith(domain.InterestWeather),
			data:  PublicData{cityapi.KeyWeather: cityapi.Weather{TemperatureC: 21}},
			fired: false,
		},
		{
			name:     "heat",
			user:     userWith(domain.InterestWeather),
			data:     PublicData{cityapi.KeyWeather: cityapi.Weather{TemperatureC: 35.2}},
			fired:    true,
			wantCond: domain.ConditionTemperatureHigh,
		},
		{
			name:     "cold",
			user:     userWith(domain.InterestWeather),
			data:     PublicData{cityapi.KeyWeather: cityapi.Weather{TemperatureC: -15}},
			fired:    true,
			wantCond: domain.ConditionTemperatureLow,
		},
		{
			name: "heavy rain wins over heat",
			user: userWith(domain.InterestWeather),
			data: PublicData{cityapi.KeyWeather: cityapi.Weather{
				TemperatureC:    35,
				PrecipitationMm: 42,
			}},
			fired:    true,
			wantCond: domain.ConditionHeavyRain,
		},
		{
			name:     "exactly at the high bound",
			user:     userWith(domain.InterestWeather),
			data:     PublicData{cityapi.KeyWeather: cityapi.Weather{TemperatureC: 33}},
			fired:    true,
			wantCond: domain.ConditionTemperatureHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := s.Evaluate(contextFor(tt.user, tt.data))
			assert.Equal(t, tt.fired, res.Triggered)
			if tt.fired {
				assert.Equal(t, tt.wantCond, res.Condition)
				assert.Equal(t, domain.NotificationWeather, res.Type)
				assert.NotEmpty(t, res.Title)
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestAirQualityEvaluate(t *testing.T) {
	t.Parallel()

	s := NewAirQuality(config.AirQualityConfig{PM10Bad: 150, PM25Bad: 75})

	clean := PublicData{cityapi.KeyAirQuality: cityapi.AirQuality{PM10: 40, PM25: 20}}
	res := s.Evaluate(contextFor(userWith(domain.InterestWeather), clean))
	assert.False(t, res.Triggered)

	smog := PublicData{cityapi.KeyAirQuality: cityapi.AirQuality{PM10: 80, PM25: 90}}
	res = s.Evaluate(contextFor(userWith(domain.InterestWeather), smog))
	require.True(t, res.Triggered)
	assert.Equal(t, domain.ConditionAirQualityBad, res.Condition)
	assert.Equal(t, domain.NotificationWeather, res.Type)

	res = s.Evaluate(contextFor(userWith(domain.InterestBikeSharing), smog))
	assert.False(t, res.Triggered)
}

func TestBikeShareEvaluate(t *testing.T) {
	t.Parallel()

	cache := geo.NewDistanceCache(128)
	s := NewBikeShare(
		config.BikeShareConfig{MinBikes: 2, RadiusKm: 0.5},
		WithBikeDistanceCache(cache),
	)

	near := cityapi.BikeStation{
		ID: "st-1", Name: "City Hall", Latitude: 37.5665, Longitude: 126.9780,
		AvailableBikes: 1,
	}
	far := cityapi.BikeStation{
		ID: "st-2", Name: "River Park", Latitude: 37.52, Longitude: 127.02,
		AvailableBikes: 0,
	}

	data := PublicData{cityapi.KeyBikeStations: []cityapi.BikeStation{far, near}}
	res := s.Evaluate(contextFor(userWith(domain.InterestBikeSharing), data))
	require.True(t, res.Triggered)
	assert.Equal(t, domain.ConditionBikeShortage, res.Condition)
	assert.Equal(t, "City Hall", res.LocationInfo)
	assert.Positive(t, cache.Len())

	// Well stocked nearest station stays quiet even with an empty one
	// out of radius.
	stocked := near
	stocked.AvailableBikes = 9
	data = PublicData{cityapi.KeyBikeStations: []cityapi.BikeStation{stocked, far}}
	res = s.Evaluate(contextFor(userWith(domain.InterestBikeSharing), data))
	assert.False(t, res.Triggered)

	// No location means no evaluation.
	u := userWith(domain.InterestBikeSharing)
	u.Latitude = nil
	u.Longitude = nil
	res = s.Evaluate(contextFor(u, data))
	assert.False(t, res.Triggered)
}

func TestCongestionEvaluate(t *testing.T) {
	t.Parallel()

	s := NewCongestion(config.CongestionConfig{Level: 4, RadiusKm: 1})

	crowded := cityapi.CongestionArea{
		Name: "Plaza", Latitude: 37.5658, Longitude: 126.9772, Level: 4,
	}
	busy := cityapi.CongestionArea{
		Name: "Market", Latitude: 37.5670, Longitude: 126.9790, Level: 3,
	}

	data := PublicData{cityapi.KeyCongestion: []cityapi.CongestionArea{busy, crowded}}
	res := s.Evaluate(contextFor(userWith(domain.InterestCongestion), data))
	require.True(t, res.Triggered)
	assert.Equal(t, domain.ConditionCongestionHigh, res.Condition)
	assert.Equal(t, "Plaza", res.LocationInfo)
	assert.Contains(t, res.Message, "crowded")

	// Below threshold everywhere.
	data = PublicData{cityapi.KeyCongestion: []cityapi.CongestionArea{busy}}
	res = s.Evaluate(contextFor(userWith(domain.InterestCongestion), data))
	assert.False(t, res.Triggered)

	// Crowded area outside the radius.
	distant := crowded
	distant.Latitude = 37.49
	data = PublicData{cityapi.KeyCongestion: []cityapi.CongestionArea{distant}}
	res = s.Evaluate(contextFor(userWith(domain.InterestCongestion), data))
	assert.False(t, res.Triggered)
}

func TestCultureEvaluate(t *testing.T) {
	t.Parallel()

	s := NewCulture(config.CultureConfig{RadiusKm: 2, Lookahead: 72 * time.Hour})
	now := time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC)

	soon := cityapi.CulturalEvent{
		ID: "ev-1", Title: "Night Market", Place: "Old Square",
		Latitude: 37.5700, Longitude: 126.9820,
		StartsAt: now.Add(26 * time.Hour),
	}
	past := cityapi.CulturalEvent{
		ID: "ev-2", Title: "Morning Run", Place: "Old Square",
		Latitude: 37.5700, Longitude: 126.9820,
		StartsAt: now.Add(-2 * time.Hour),
	}
	tooLate := cityapi.CulturalEvent{
		ID: "ev-3", Title: "Autumn Fair", Place: "Old Square",
		Latitude: 37.5700, Longitude: 126.9820,
		StartsAt: now.Add(200 * time.Hour),
	}

	data := PublicData{cityapi.KeyCulturalEvents: []cityapi.CulturalEvent{past, tooLate, soon}}
	res := s.Evaluate(contextFor(userWith(domain.InterestCulture), data))
	require.True(t, res.Triggered)
	assert.Equal(t, domain.ConditionCulturalEventNearby, res.Condition)
	assert.Contains(t, res.Message, "Night Market")

	// Only out-of-window events leave it quiet.
	data = PublicData{cityapi.KeyCulturalEvents: []cityapi.CulturalEvent{past, tooLate}}
	res = s.Evaluate(contextFor(userWith(domain.InterestCulture), data))
	assert.False(t, res.Triggered)
}

func TestEmergencyEvaluate(t *testing.T) {
	t.Parallel()

	s := NewEmergency(config.EmergencyConfig{})

	alert := cityapi.EmergencyAlert{
		ID: "al-1", Title: "Flood warning", Message: "Riverside paths are closing.",
		Region: "Riverside",
	}
	data := PublicData{cityapi.KeyEmergency: []cityapi.EmergencyAlert{alert}}

	// Fires even for a user with no declared interests.
	res := s.Evaluate(contextFor(userWith(), data))
	require.True(t, res.Triggered)
	assert.Equal(t, domain.NotificationEmergency, res.Type)
	assert.Equal(t, "Flood warning", res.Title)
	assert.Equal(t, "Riverside", res.LocationInfo)
	assert.Equal(t, domain.NotificationEmergency.Priority(), res.Priority)

	res = s.Evaluate(contextFor(userWith(), PublicData{}))
	assert.False(t, res.Triggered)
}

func TestStrategyEnabledFlag(t *testing.T) {
	t.Parallel()

	off := false
	assert.False(t, NewTemperature(config.TemperatureConfig{Enabled: &off}).Enabled())
	assert.True(t, NewTemperature(config.TemperatureConfig{}).Enabled())
	assert.False(t, NewEmergency(config.EmergencyConfig{Enabled: &off}).Enabled())
}
