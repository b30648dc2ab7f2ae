package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationTypePriority_Ordering(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, NotificationEmergency.Priority())
	assert.Equal(t, 7, NotificationWelfare.Priority())
	assert.Less(t, NotificationEmergency.Priority(), NotificationWeather.Priority())
	assert.Less(t, NotificationCongestion.Priority(), NotificationBikeSharing.Priority())

	// Unknown types sort after every known type.
	assert.Greater(t, NotificationType("BOGUS").Priority(), NotificationWelfare.Priority())
}

func TestNotificationTypeUrgent(t *testing.T) {
	t.Parallel()

	assert.True(t, NotificationEmergency.Urgent())
	assert.False(t, NotificationCulture.Urgent())
	assert.False(t, NotificationWeather.Urgent())
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from NotificationStatus
		to   NotificationStatus
		want bool
	}{
		{"sent to read", StatusSent, StatusRead, true},
		{"sent to failed", StatusSent, StatusFailed, true},
		{"sent to expired", StatusSent, StatusExpired, true},
		{"sent to sent", StatusSent, StatusSent, false},
		{"read is terminal", StatusRead, StatusFailed, false},
		{"failed is terminal", StatusFailed, StatusRead, false},
		{"expired is terminal", StatusExpired, StatusRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	t.Parallel()

	n := &NotificationHistory{Status: StatusSent}
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	require.True(t, n.MarkRead(first))
	assert.Equal(t, StatusRead, n.Status)
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, first, *n.ReadAt)

	// Second mark-read is a no-op that keeps the original timestamp.
	require.True(t, n.MarkRead(second))
	assert.Equal(t, StatusRead, n.Status)
	assert.Equal(t, first, *n.ReadAt)
}

func TestMarkRead_RejectedFromTerminal(t *testing.T) {
	t.Parallel()

	n := &NotificationHistory{Status: StatusFailed}
	assert.False(t, n.MarkRead(time.Now()))
	assert.Equal(t, StatusFailed, n.Status)
	assert.Nil(t, n.ReadAt)
}

func TestMarkFailedAndExpired(t *testing.T) {
	t.Parallel()

	n := &NotificationHistory{Status: StatusSent}
	require.True(t, n.MarkFailed())
	assert.Equal(t, StatusFailed, n.Status)
	assert.False(t, n.MarkExpired())

	m := &NotificationHistory{Status: StatusSent}
	require.True(t, m.MarkExpired())
	assert.Equal(t, StatusExpired, m.Status)
}

func TestUserHelpers(t *testing.T) {
	t.Parallel()

	lat, lng := 37.5663, 126.9779
	u := &User{
		ID:        "u1",
		Latitude:  &lat,
		Longitude: &lng,
		Interests: []InterestCategory{InterestWeather, InterestCulture},
	}

	assert.True(t, u.HasLocation())
	assert.True(t, u.HasInterest(InterestWeather))
	assert.False(t, u.HasInterest(InterestBikeSharing))

	assert.False(t, (&User{Latitude: &lat}).HasLocation())
	assert.False(t, (&User{}).HasLocation())
}

func TestValidInterest(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidInterest(InterestWeather))
	assert.True(t, ValidInterest(InterestEmergency))
	assert.False(t, ValidInterest("GOLF"))
	assert.False(t, ValidInterest(""))
}
