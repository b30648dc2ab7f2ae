package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "citypulse/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled
// PostgreSQL). Methods require live Postgres and are covered by the
// integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
// A poolSize of zero or less uses the default.
func NewPostgresStore(ctx context.Context, connString string, poolSize int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	cfg.MaxConns = int32(poolSize)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateUser inserts a user and their declared interests.
func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	args := pgx.NamedArgs{
		"nickname":  u.Nickname,
		"latitude":  u.Latitude,
		"longitude": u.Longitude,
		"active":    u.Active,
	}

	if err := s.pool.QueryRow(ctx, queryCreateUser, args).Scan(&u.ID, &u.CreatedAt); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	return s.SetUserInterests(ctx, u.ID, u.Interests)
}

// SetUserInterests replaces the user's declared interest set.
func (s *PostgresStore) SetUserInterests(
	ctx context.Context,
	userID string,
	interests []domain.InterestCategory,
) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning interests tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, queryDeleteUserInterests, userID); err != nil {
		return fmt.Errorf("clearing interests: %w", err)
	}
	for _, c := range interests {
		if _, err := tx.Exec(ctx, queryInsertUserInterest, userID, string(c)); err != nil {
			return fmt.Errorf("inserting interest %s: %w", c, err)
		}
	}

	return tx.Commit(ctx)
}

// SetChannelTargets upserts the user's delivery addresses.
func (s *PostgresStore) SetChannelTargets(
	ctx context.Context,
	userID string,
	t *domain.ChannelTargets,
) error {
	args := pgx.NamedArgs{
		"user_id":      userID,
		"device_token": t.DeviceToken,
		"webhook_url":  t.WebhookURL,
		"email":        t.Email,
		"phone":        t.Phone,
	}

	if _, err := s.pool.Exec(ctx, querySetChannelTargets, args); err != nil {
		return fmt.Errorf("setting channel targets: %w", err)
	}
	return nil
}

// ListActiveUsers returns every active user with their interests loaded.
func (s *PostgresStore) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	return s.queryUsers(ctx, queryListActiveUsers)
}

// ListUsersByInterest returns active users subscribed to the category.
func (s *PostgresStore) ListUsersByInterest(
	ctx context.Context,
	c domain.InterestCategory,
) ([]domain.User, error) {
	return s.queryUsers(ctx, queryListUsersByInterest, string(c))
}

// GetUser retrieves a user by ID with their interests loaded.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := domain.User{}
	err := s.pool.QueryRow(ctx, queryGetUser, id).Scan(
		&u.ID, &u.Nickname, &u.Latitude, &u.Longitude, &u.Active, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}

	users := []domain.User{u}
	if err := s.loadInterests(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

// UpdateUserLocation sets the user's last-known coordinate.
func (s *PostgresStore) UpdateUserLocation(
	ctx context.Context,
	id string,
	lat, lng float64,
) error {
	tag, err := s.pool.Exec(ctx, queryUpdateUserLocation, id, lat, lng)
	if err != nil {
		return fmt.Errorf("updating user location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetChannelTargets retrieves the per-channel delivery addresses for a
// user. A user without a channels row gets empty targets, not an error.
func (s *PostgresStore) GetChannelTargets(
	ctx context.Context,
	userID string,
) (*domain.ChannelTargets, error) {
	t := &domain.ChannelTargets{}
	err := s.pool.QueryRow(ctx, queryGetChannelTargets, userID).Scan(
		&t.DeviceToken, &t.WebhookURL, &t.Email, &t.Phone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ChannelTargets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting channel targets: %w", err)
	}
	return t, nil
}

// SaveNotification inserts a new notification history record.
func (s *PostgresStore) SaveNotification(
	ctx context.Context,
	n *domain.NotificationHistory,
) error {
	args := pgx.NamedArgs{
		"id":                n.ID,
		"user_id":           n.UserID,
		"notification_type": string(n.Type),
		"trigger_condition": string(n.Condition),
		"title":             n.Title,
		"message":           n.Message,
		"location_info":     n.LocationInfo,
		"status":            string(n.Status),
		"sent_at":           n.SentAt,
	}

	if _, err := s.pool.Exec(ctx, querySaveNotification, args); err != nil {
		return fmt.Errorf("saving notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification history record by ID.
func (s *PostgresStore) GetNotification(
	ctx context.Context,
	id string,
) (*domain.NotificationHistory, error) {
	n := &domain.NotificationHistory{}
	err := s.pool.QueryRow(ctx, queryGetNotification, id).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Condition,
		&n.Title, &n.Message, &n.LocationInfo, &n.Status, &n.SentAt, &n.ReadAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	return n, nil
}

// UpdateNotificationStatus moves a SENT record to the given status. The
// transition guard lives in the WHERE clause; updating a record that is
// not SENT returns ErrInvalidTransition.
func (s *PostgresStore) UpdateNotificationStatus(
	ctx context.Context,
	id string,
	status domain.NotificationStatus,
) error {
	if status == domain.StatusSent {
		return ErrInvalidTransition
	}

	tag, err := s.pool.Exec(ctx, queryUpdateNotificationStatus, id, string(status))
	if err != nil {
		return fmt.Errorf("updating notification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMissedUpdate(ctx, id)
	}
	return nil
}

// MarkNotificationRead moves a record to READ and stamps read_at once.
// Marking an already-read record again is a no-op that still succeeds.
func (s *PostgresStore) MarkNotificationRead(
	ctx context.Context,
	id string,
	at time.Time,
) error {
	tag, err := s.pool.Exec(ctx, queryMarkNotificationRead, id, at)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyMissedUpdate(ctx, id)
	}
	return nil
}

// MarkAllRead moves every SENT record for the user to READ and returns
// the number of records updated.
func (s *PostgresStore) MarkAllRead(
	ctx context.Context,
	userID string,
	at time.Time,
) (int, error) {
	tag, err := s.pool.Exec(ctx, queryMarkAllRead, userID, at)
	if err != nil {
		return 0, fmt.Errorf("marking all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountUnread returns the number of SENT records for the user.
func (s *PostgresStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, queryCountUnread, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}
	return count, nil
}

// ListNotifications queries notification history with optional filters,
// returning results and total count.
func (s *PostgresStore) ListNotifications(
	ctx context.Context,
	opts *NotificationQuery,
) ([]domain.NotificationHistory, int, error) {
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationHistory
	for rows.Next() {
		var n domain.NotificationHistory
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Condition,
			&n.Title, &n.Message, &n.LocationInfo, &n.Status, &n.SentAt, &n.ReadAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating notifications: %w", err)
	}

	return out, total, nil
}

// ExpireNotificationsBefore moves SENT records older than cutoff to
// EXPIRED and returns the number of records updated.
func (s *PostgresStore) ExpireNotificationsBefore(
	ctx context.Context,
	cutoff time.Time,
) (int, error) {
	tag, err := s.pool.Exec(ctx, queryExpireNotificationsBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiring notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// classifyMissedUpdate decides whether a zero-row update means the record
// is missing or merely in a state the transition guard rejected.
func (s *PostgresStore) classifyMissedUpdate(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, queryNotificationExists, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking notification existence: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

// queryUsers runs a user query and loads interests for the result set.
func (s *PostgresStore) queryUsers(
	ctx context.Context,
	query string,
	args ...any,
) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Nickname, &u.Latitude, &u.Longitude, &u.Active, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if err := s.loadInterests(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// loadInterests fills in the Interests slice for each user in one query.
func (s *PostgresStore) loadInterests(ctx context.Context, users []domain.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]string, len(users))
	byID := make(map[string]*domain.User, len(users))
	for i := range users {
		ids[i] = users[i].ID
		byID[users[i].ID] = &users[i]
	}

	rows, err := s.pool.Query(ctx, queryListInterestsForUsers, ids)
	if err != nil {
		return fmt.Errorf("querying interests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var category domain.InterestCategory
		if err := rows.Scan(&userID, &category); err != nil {
			return fmt.Errorf("scanning interest: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.Interests = append(u.Interests, category)
		}
	}
	return rows.Err()
}
