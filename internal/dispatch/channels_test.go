package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citypulse/internal/config"
	domain "citypulse/pkg/types"
)

func testNotification(typ domain.NotificationType) *domain.NotificationHistory {
	return &domain.NotificationHistory{
		ID:        "n-1",
		UserID:    "u-1",
		Type:      typ,
		Condition: domain.ConditionTemperatureHigh,
		Title:     "Heat advisory",
		Message:   "It is 35.0°C outside.",
		Status:    domain.StatusSent,
		SentAt:    time.Date(2026, 7, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestPushChannel(t *testing.T) {
	t.Parallel()

	t.Run("delivers with auth header", func(t *testing.T) {
		t.Parallel()

		var got pushPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushConfig{Endpoint: srv.URL, APIKey: "key-1"})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{DeviceToken: "tok-1"},
			testNotification(domain.NotificationEmergency),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDelivered, outcome)
		assert.Equal(t, "tok-1", got.DeviceToken)
		assert.True(t, got.Urgent)
	})

	t.Run("skips without device token", func(t *testing.T) {
		t.Parallel()

		ch := NewPushChannel(config.PushConfig{Endpoint: "http://unused"})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{},
			testNotification(domain.NotificationWeather),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	})

	t.Run("provider error fails", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushConfig{Endpoint: srv.URL})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{DeviceToken: "tok-1"},
			testNotification(domain.NotificationWeather),
		)
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, outcome)
		assert.Contains(t, err.Error(), "429")
	})
}

func TestWebhookChannel(t *testing.T) {
	t.Parallel()

	t.Run("posts to the user URL with extra headers", func(t *testing.T) {
		t.Parallel()

		var got webhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "citypulse", r.Header.Get("X-Source"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ch := NewWebhookChannel(config.WebhookConfig{
			Headers: map[string]string{"X-Source": "citypulse"},
		})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{WebhookURL: srv.URL},
			testNotification(domain.NotificationWeather),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDelivered, outcome)
		assert.Equal(t, "n-1", got.ID)
		assert.Equal(t, "WEATHER", got.Type)
	})

	t.Run("skips without URL", func(t *testing.T) {
		t.Parallel()

		ch := NewWebhookChannel(config.WebhookConfig{})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{},
			testNotification(domain.NotificationWeather),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	})
}

func TestSMSChannel(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ch := NewSMSChannel(config.SMSConfig{Endpoint: srv.URL, From: "CityPulse"})

	t.Run("urgent type with phone delivers", func(t *testing.T) {
		t.Parallel()

		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{Phone: "+15550100"},
			testNotification(domain.NotificationEmergency),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDelivered, outcome)
	})

	t.Run("non-urgent type is skipped", func(t *testing.T) {
		t.Parallel()

		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{Phone: "+15550100"},
			testNotification(domain.NotificationCulture),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	})

	t.Run("no phone is skipped", func(t *testing.T) {
		t.Parallel()

		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{},
			testNotification(domain.NotificationEmergency),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	})
}

func TestEmailChannel(t *testing.T) {
	t.Parallel()

	t.Run("builds and sends the message", func(t *testing.T) {
		t.Parallel()

		var gotTo []string
		var gotMsg string
		ch := NewEmailChannel(config.EmailConfig{
			Host: "smtp.example.com", Port: 587, From: "alerts@example.com",
		})
		ch.sendMail = func(_ string, _ smtp.Auth, _ string, to []string, msg []byte) error {
			gotTo = to
			gotMsg = string(msg)
			return nil
		}

		n := testNotification(domain.NotificationWeather)
		n.LocationInfo = "City Hall"
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{Email: "jamie@example.com"}, n)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDelivered, outcome)
		assert.Equal(t, []string{"jamie@example.com"}, gotTo)
		assert.Contains(t, gotMsg, "Subject: Heat advisory")
		assert.Contains(t, gotMsg, "Where: City Hall")
	})

	t.Run("skips without address", func(t *testing.T) {
		t.Parallel()

		ch := NewEmailChannel(config.EmailConfig{Host: "smtp.example.com"})
		outcome, err := ch.Send(context.Background(),
			domain.ChannelTargets{},
			testNotification(domain.NotificationWeather),
		)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	})

	t.Run("canceled context fails before dialing", func(t *testing.T) {
		t.Parallel()

		ch := NewEmailChannel(config.EmailConfig{Host: "smtp.example.com"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outcome, err := ch.Send(ctx,
			domain.ChannelTargets{Email: "jamie@example.com"},
			testNotification(domain.NotificationWeather),
		)
		require.Error(t, err)
		assert.Equal(t, OutcomeFailed, outcome)
	})
}

func TestNoOpChannelDelivers(t *testing.T) {
	t.Parallel()

	ch := NewNoOpChannel(nil)
	outcome, err := ch.Send(context.Background(),
		domain.ChannelTargets{},
		testNotification(domain.NotificationWeather),
	)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelivered, outcome)
}
