// Package domain defines the core business types for citypulse.
package domain

import (
	"slices"
	"time"
)

// InterestCategory is a notification topic a user can subscribe to.
type InterestCategory string

// Interest category constants.
const (
	InterestWeather     InterestCategory = "WEATHER"
	InterestTraffic     InterestCategory = "TRAFFIC"
	InterestBikeSharing InterestCategory = "BIKE_SHARING"
	InterestCongestion  InterestCategory = "CONGESTION"
	InterestCulture     InterestCategory = "CULTURE"
	InterestWelfare     InterestCategory = "WELFARE"
	InterestEmergency   InterestCategory = "EMERGENCY"
)

var interestCategories = []InterestCategory{
	InterestWeather,
	InterestTraffic,
	InterestBikeSharing,
	InterestCongestion,
	InterestCulture,
	InterestWelfare,
	InterestEmergency,
}

// ValidInterest reports whether c names a known interest category.
func ValidInterest(c InterestCategory) bool {
	return slices.Contains(interestCategories, c)
}

// NotificationType mirrors the interest categories. Each type carries a
// fixed priority (lower = more urgent) used for cross-strategy arbitration.
type NotificationType string

// Notification type constants.
const (
	NotificationEmergency   NotificationType = "EMERGENCY"
	NotificationWeather     NotificationType = "WEATHER"
	NotificationTraffic     NotificationType = "TRAFFIC"
	NotificationCongestion  NotificationType = "CONGESTION"
	NotificationBikeSharing NotificationType = "BIKE_SHARING"
	NotificationCulture     NotificationType = "CULTURE"
	NotificationWelfare     NotificationType = "WELFARE"
)

var typePriorities = map[NotificationType]int{
	NotificationEmergency:   1,
	NotificationWeather:     2,
	NotificationTraffic:     3,
	NotificationCongestion:  4,
	NotificationBikeSharing: 5,
	NotificationCulture:     6,
	NotificationWelfare:     7,
}

// Priority returns the fixed arbitration priority for the type.
// Unknown types sort last.
func (t NotificationType) Priority() int {
	if p, ok := typePriorities[t]; ok {
		return p
	}
	return len(typePriorities) + 1
}

// Urgent reports whether notifications of this type should be flagged
// urgent on delivery.
func (t NotificationType) Urgent() bool {
	return t == NotificationEmergency
}

// TriggerCondition is the fine-grained cause of a fired notification.
type TriggerCondition string

// Trigger condition constants.
const (
	ConditionTemperatureHigh     TriggerCondition = "TEMPERATURE_HIGH"
	ConditionTemperatureLow      TriggerCondition = "TEMPERATURE_LOW"
	ConditionHeavyRain           TriggerCondition = "HEAVY_RAIN"
	ConditionAirQualityBad       TriggerCondition = "AIR_QUALITY_BAD"
	ConditionBikeShortage        TriggerCondition = "BIKE_SHORTAGE"
	ConditionCongestionHigh      TriggerCondition = "CONGESTION_HIGH"
	ConditionCulturalEventNearby TriggerCondition = "CULTURAL_EVENT_NEARBY"
	ConditionEmergencyAlert      TriggerCondition = "EMERGENCY_ALERT"
)

// NotificationStatus is the delivery lifecycle state of a notification.
type NotificationStatus string

// Notification status constants.
const (
	StatusSent    NotificationStatus = "SENT"
	StatusRead    NotificationStatus = "READ"
	StatusFailed  NotificationStatus = "FAILED"
	StatusExpired NotificationStatus = "EXPIRED"
)

// CanTransitionTo reports whether the status may move to next.
// READ, FAILED, and EXPIRED are terminal.
func (s NotificationStatus) CanTransitionTo(next NotificationStatus) bool {
	if s != StatusSent {
		return false
	}
	switch next {
	case StatusRead, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// User is a registered recipient with declared interests and an optional
// last-known location.
type User struct {
	ID        string             `json:"id"                  db:"id"`
	Nickname  string             `json:"nickname"            db:"nickname"`
	Latitude  *float64           `json:"latitude,omitempty"  db:"latitude"`
	Longitude *float64           `json:"longitude,omitempty" db:"longitude"`
	Interests []InterestCategory `json:"interests"           db:"-"`
	Active    bool               `json:"active"              db:"active"`
	CreatedAt time.Time          `json:"created_at"          db:"created_at"`
}

// HasLocation reports whether both coordinates are present.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// HasInterest reports whether the user declared the given category.
func (u *User) HasInterest(c InterestCategory) bool {
	return slices.Contains(u.Interests, c)
}

// ChannelTargets holds a user's per-channel delivery addresses. Empty
// fields mean the channel cannot be attempted for that user.
type ChannelTargets struct {
	DeviceToken string `json:"device_token,omitempty" db:"device_token"`
	WebhookURL  string `json:"webhook_url,omitempty"  db:"webhook_url"`
	Email       string `json:"email,omitempty"        db:"email"`
	Phone       string `json:"phone,omitempty"        db:"phone"`
}

// NotificationHistory is the durable record of one dispatched notification.
type NotificationHistory struct {
	ID           string             `json:"id"                db:"id"`
	UserID       string             `json:"user_id"           db:"user_id"`
	Type         NotificationType   `json:"type"              db:"notification_type"`
	Condition    TriggerCondition   `json:"condition"         db:"trigger_condition"`
	Title        string             `json:"title"             db:"title"`
	Message      string             `json:"message"           db:"message"`
	LocationInfo string             `json:"location_info"     db:"location_info"`
	Status       NotificationStatus `json:"status"            db:"status"`
	SentAt       time.Time          `json:"sent_at"           db:"sent_at"`
	ReadAt       *time.Time         `json:"read_at,omitempty" db:"read_at"`
}

// MarkRead moves the record to READ and stamps ReadAt once. A second call
// is a no-op that still reports success; terminal states reject the
// transition.
func (n *NotificationHistory) MarkRead(at time.Time) bool {
	if n.Status == StatusRead {
		return true
	}
	if !n.Status.CanTransitionTo(StatusRead) {
		return false
	}
	n.Status = StatusRead
	n.ReadAt = &at
	return true
}

// MarkFailed moves the record to FAILED. Only valid from SENT.
func (n *NotificationHistory) MarkFailed() bool {
	if !n.Status.CanTransitionTo(StatusFailed) {
		return false
	}
	n.Status = StatusFailed
	return true
}

// MarkExpired moves the record to EXPIRED. Only valid from SENT.
func (n *NotificationHistory) MarkExpired() bool {
	if !n.Status.CanTransitionTo(StatusExpired) {
		return false
	}
	n.Status = StatusExpired
	return true
}
