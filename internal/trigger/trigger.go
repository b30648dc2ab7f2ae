// Package trigger implements the rule engine that decides whether a
// polled city-data snapshot warrants a notification for one user. Each
// rule is a Strategy; the Manager runs every enabled strategy against a
// Context and arbitrates at most one winning Result per cycle.
package trigger

import (
	"time"

	"citypulse/internal/cityapi"
	domain "citypulse/pkg/types"
)

// Context is the immutable input for one evaluation: the user, their
// reference coordinate, the polled data, and the evaluation time. It is
// built fresh per (user, tick) and never reused across users.
type Context struct {
	User      domain.User
	Latitude  *float64
	Longitude *float64
	Now       time.Time
	Data      PublicData
}

// Location returns the reference coordinate, if present and valid.
// Strategies that need geometry must short-circuit when ok is false.
func (c *Context) Location() (lat, lng float64, ok bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return 0, 0, false
	}
	return *c.Latitude, *c.Longitude, true
}

// PublicData is the keyed bag of heterogeneous payload sections polled
// from the city API. It is opaque to the Manager; only individual
// strategies interpret sections. Every accessor tolerates missing or
// malformed sections by reporting ok=false.
type PublicData map[string]any

// Weather returns the live weather section.
func (d PublicData) Weather() (cityapi.Weather, bool) {
	w, ok := d[cityapi.KeyWeather].(cityapi.Weather)
	return w, ok
}

// AirQuality returns the particulate reading section.
func (d PublicData) AirQuality() (cityapi.AirQuality, bool) {
	aq, ok := d[cityapi.KeyAirQuality].(cityapi.AirQuality)
	return aq, ok
}

// BikeStations returns the bike-share availability section.
func (d PublicData) BikeStations() ([]cityapi.BikeStation, bool) {
	s, ok := d[cityapi.KeyBikeStations].([]cityapi.BikeStation)
	return s, ok && len(s) > 0
}

// Congestion returns the crowding section.
func (d PublicData) Congestion() ([]cityapi.CongestionArea, bool) {
	a, ok := d[cityapi.KeyCongestion].([]cityapi.CongestionArea)
	return a, ok && len(a) > 0
}

// CulturalEvents returns the event listings section.
func (d PublicData) CulturalEvents() ([]cityapi.CulturalEvent, bool) {
	e, ok := d[cityapi.KeyCulturalEvents].([]cityapi.CulturalEvent)
	return e, ok && len(e) > 0
}

// EmergencyAlerts returns the active emergency section.
func (d PublicData) EmergencyAlerts() ([]cityapi.EmergencyAlert, bool) {
	a, ok := d[cityapi.KeyEmergency].([]cityapi.EmergencyAlert)
	return a, ok && len(a) > 0
}

// Result is the outcome of one strategy evaluation, and of the manager's
// arbitration. A non-triggered Result carries no title or message and
// must never be dispatched.
type Result struct {
	Triggered    bool
	Type         domain.NotificationType
	Condition    domain.TriggerCondition
	Title        string
	Message      string
	LocationInfo string
	Priority     int
}

// NotTriggered is the zero outcome.
func NotTriggered() Result {
	return Result{}
}

// Fire builds a triggered Result carrying the type's fixed priority.
func Fire(
	t domain.NotificationType,
	cond domain.TriggerCondition,
	title, message, locationInfo string,
) Result {
	return Result{
		Triggered:    true,
		Type:         t,
		Condition:    cond,
		Title:        title,
		Message:      message,
		LocationInfo: locationInfo,
		Priority:     t.Priority(),
	}
}

// Strategy is one pluggable trigger rule. Evaluate must be side-effect
// free, CPU-bound, and tolerant of missing data: a data gap returns
// NotTriggered, never an error. Everything a strategy needs must already
// be in the Context.
type Strategy interface {
	Name() string
	Type() domain.NotificationType
	Priority() int
	Description() string
	Enabled() bool
	Evaluate(tc *Context) Result
}
