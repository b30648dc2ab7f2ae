package cityapi

import "time"

// Snapshot is the keyed bag of payload sections returned by the city
// open-data API. Keys may be absent when the upstream dataset had no data
// for the reference area; consumers must tolerate missing keys.
type Snapshot map[string]any

// Section keys within a Snapshot.
const (
	KeyWeather        = "weather"
	KeyAirQuality     = "air_quality"
	KeyBikeStations   = "bike_stations"
	KeyCongestion     = "congestion"
	KeyCulturalEvents = "cultural_events"
	KeyEmergency      = "emergency"
)

// Weather is the live weather observation for a reference area.
type Weather struct {
	TemperatureC    float64   `json:"temperature_c"`
	PrecipitationMm float64   `json:"precipitation_mm"`
	Sky             string    `json:"sky"`
	ObservedAt      time.Time `json:"observed_at"`
}

// AirQuality is the live particulate reading for a reference area.
type AirQuality struct {
	PM10  int    `json:"pm10"`
	PM25  int    `json:"pm25"`
	Grade string `json:"grade"`
}

// BikeStation is one bike-share station with live availability.
type BikeStation struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AvailableBikes int     `json:"available_bikes"`
	AvailableDocks int     `json:"available_docks"`
}

// CongestionArea is a monitored area with a live crowding level from
// 1 (relaxed) to 4 (crowded).
type CongestionArea struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Level     int     `json:"level"`
}

// CulturalEvent is one upcoming event listing.
type CulturalEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Place     string    `json:"place"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Free      bool      `json:"free"`
}

// EmergencyAlert is an active civil emergency message for a region.
type EmergencyAlert struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Region   string    `json:"region"`
	IssuedAt time.Time `json:"issued_at"`
}
