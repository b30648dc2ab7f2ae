// Package store defines the datastore abstraction for citypulse. All
// business logic depends on the Store interface, never on concrete
// implementations. This enables fake-based testing without a running
// database.
package store

import (
	"context"
	"errors"
	"time"

	domain "citypulse/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidTransition is returned when a status update would leave a
// terminal state or otherwise break the notification lifecycle.
var ErrInvalidTransition = errors.New("store: invalid status transition")

// NotificationQuery defines optional filters for notification history
// queries.
type NotificationQuery struct {
	UserID string
	Status *domain.NotificationStatus
	Type   *domain.NotificationType
	Limit  int // default 50
	Offset int
}

// Store defines all data access operations for citypulse.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	SetUserInterests(ctx context.Context, userID string, interests []domain.InterestCategory) error
	SetChannelTargets(ctx context.Context, userID string, t *domain.ChannelTargets) error
	ListActiveUsers(ctx context.Context) ([]domain.User, error)
	ListUsersByInterest(ctx context.Context, c domain.InterestCategory) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdateUserLocation(ctx context.Context, id string, lat, lng float64) error
	GetChannelTargets(ctx context.Context, userID string) (*domain.ChannelTargets, error)

	// Notification history
	SaveNotification(ctx context.Context, n *domain.NotificationHistory) error
	GetNotification(ctx context.Context, id string) (*domain.NotificationHistory, error)
	UpdateNotificationStatus(ctx context.Context, id string, status domain.NotificationStatus) error
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	ListNotifications(ctx context.Context, opts *NotificationQuery) ([]domain.NotificationHistory, int, error)
	ExpireNotificationsBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
