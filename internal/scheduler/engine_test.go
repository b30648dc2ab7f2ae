package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citypulse/internal/cityapi"
	"citypulse/internal/config"
	"citypulse/internal/dispatch"
	"citypulse/internal/store"
	"citypulse/internal/trigger"
	domain "citypulse/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserStore serves users; everything else panics if called.
type fakeUserStore struct {
	store.Store

	users       []domain.User
	byInterest  map[domain.InterestCategory][]domain.User
	listErr     error
	interestErr error

	expireCutoff time.Time
	expireCount  int
	expireErr    error
}

func (f *fakeUserStore) ListActiveUsers(_ context.Context) ([]domain.User, error) {
	return f.users, f.listErr
}

func (f *fakeUserStore) ListUsersByInterest(
	_ context.Context,
	c domain.InterestCategory,
) ([]domain.User, error) {
	if f.interestErr != nil {
		return nil, f.interestErr
	}
	return f.byInterest[c], nil
}

func (f *fakeUserStore) ExpireNotificationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	f.expireCutoff = cutoff
	return f.expireCount, f.expireErr
}

// fakeCity serves canned snapshots and events.
type fakeCity struct {
	mu        sync.Mutex
	snapshot  cityapi.Snapshot
	events    []cityapi.CulturalEvent
	dataErr   error
	eventsErr error
	dataCalls int
	block     chan struct{}
}

func (f *fakeCity) CityData(ctx context.Context, _, _ float64) (cityapi.Snapshot, error) {
	f.mu.Lock()
	f.dataCalls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.dataErr != nil {
		return nil, f.dataErr
	}
	return f.snapshot, nil
}

func (f *fakeCity) CulturalEvents(_ context.Context, _, _ int) ([]cityapi.CulturalEvent, error) {
	return f.events, f.eventsErr
}

func (f *fakeCity) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataCalls
}

// fakeDispatcher records dispatch requests.
type fakeDispatcher struct {
	mu   sync.Mutex
	reqs []dispatch.Request
	err  error
}

func (f *fakeDispatcher) Dispatch(
	_ context.Context,
	req dispatch.Request,
) (*domain.NotificationHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.reqs = append(f.reqs, req)
	return &domain.NotificationHistory{ID: "n-1", Status: domain.StatusSent}, nil
}

func (f *fakeDispatcher) requests() []dispatch.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatch.Request(nil), f.reqs...)
}

func activeUser(id string, interests ...domain.InterestCategory) domain.User {
	lat, lng := 37.5663, 126.9779
	return domain.User{
		ID:        id,
		Nickname:  "user-" + id,
		Latitude:  &lat,
		Longitude: &lng,
		Interests: interests,
		Active:    true,
	}
}

func realtimeManager() *trigger.Manager {
	return trigger.NewManager(quietLogger(),
		trigger.NewTemperature(config.TemperatureConfig{HighC: 33, LowC: -12, HeavyRainMm: 20}),
		trigger.NewAirQuality(config.AirQualityConfig{PM10Bad: 150, PM25Bad: 75}),
		trigger.NewEmergency(config.EmergencyConfig{}),
	)
}

func culturalManager() *trigger.Manager {
	return trigger.NewManager(quietLogger(),
		trigger.NewCulture(config.CultureConfig{RadiusKm: 2, Lookahead: 72 * time.Hour}),
	)
}

func newTestEngine(st store.Store, city CityClient, d Dispatcher, opts ...EngineOption) *Engine {
	base := []EngineOption{WithLogger(quietLogger()), WithWorkers(2)}
	return NewEngine(st, city, realtimeManager(), culturalManager(), d, append(base, opts...)...)
}

func TestRunRealtimeDispatchesFiredResults(t *testing.T) {
	t.Parallel()

	st := &fakeUserStore{users: []domain.User{
		activeUser("u-1", domain.InterestWeather),
		activeUser("u-2", domain.InterestCulture), // no weather interest: quiet
	}}
	city := &fakeCity{snapshot: cityapi.Snapshot{
		cityapi.KeyWeather: cityapi.Weather{TemperatureC: 36},
	}}
	d := &fakeDispatcher{}

	eng := newTestEngine(st, city, d)
	require.NoError(t, eng.RunRealtime(context.Background()))

	reqs := d.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "u-1", reqs[0].User.ID)
	assert.Equal(t, domain.ConditionTemperatureHigh, reqs[0].Condition)
	assert.Equal(t, 2, city.calls())
}

func TestRunRealtimeIsolatesUserFailures(t *testing.T) {
	t.Parallel()

	st := &fakeUserStore{users: []domain.User{
		activeUser("u-1", domain.InterestWeather),
		activeUser("u-2", domain.InterestWeather),
	}}
	city := &fakeCity{snapshot: cityapi.Snapshot{
		cityapi.KeyWeather: cityapi.Weather{TemperatureC: 36},
	}}
	d := &fakeDispatcher{err: errors.New("db down")}

	eng := newTestEngine(st, city, d)

	// Dispatch failures are isolated per user; the tick itself succeeds.
	require.NoError(t, eng.RunRealtime(context.Background()))
	assert.Equal(t, 2, city.calls())
}

func TestRunRealtimeAbortsOnRepeatedUpstreamFailure(t *testing.T) {
	t.Parallel()

	users := make([]domain.User, 20)
	for i := range users {
		users[i] = activeUser(string(rune('a'+i)), domain.InterestWeather)
	}
	st := &fakeUserStore{users: users}
	city := &fakeCity{dataErr: errors.New("502 bad gateway")}
	d := &fakeDispatcher{}

	eng := newTestEngine(st, city, d, WithWorkers(1), WithMaxUpstreamFailures(3))

	err := eng.RunRealtime(context.Background())
	require.Error(t, err)
	assert.Less(t, city.calls(), len(users))
	assert.Empty(t, d.requests())
}

func TestRunRealtimeSingleFlight(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	st := &fakeUserStore{users: []domain.User{activeUser("u-1", domain.InterestWeather)}}
	city := &fakeCity{block: block, snapshot: cityapi.Snapshot{}}
	d := &fakeDispatcher{}

	eng := newTestEngine(st, city, d)

	done := make(chan error, 1)
	go func() { done <- eng.RunRealtime(context.Background()) }()

	// Wait for the first tick to be mid-flight, then overlap it.
	require.Eventually(t, func() bool { return city.calls() > 0 },
		time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, eng.RunRealtime(context.Background()), ErrTickInProgress)

	close(block)
	require.NoError(t, <-done)

	// After the first tick finishes, a new one is accepted.
	require.NoError(t, eng.RunRealtime(context.Background()))
}

func TestRunRealtimeSoftDeadlineAbandonsRemaining(t *testing.T) {
	t.Parallel()

	users := make([]domain.User, 10)
	for i := range users {
		users[i] = activeUser(string(rune('a'+i)), domain.InterestWeather)
	}

	block := make(chan struct{})
	st := &fakeUserStore{users: users}
	city := &fakeCity{block: block, snapshot: cityapi.Snapshot{}}
	d := &fakeDispatcher{}

	eng := newTestEngine(st, city, d,
		WithWorkers(1),
		WithSoftDeadline(30*time.Millisecond),
	)

	done := make(chan error, 1)
	go func() { done <- eng.RunRealtime(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	close(block)

	require.NoError(t, <-done)
	assert.Less(t, city.calls(), len(users))
}

func TestRunRealtimeUsesDefaultCoordinate(t *testing.T) {
	t.Parallel()

	nowhere := domain.User{
		ID:        "u-1",
		Nickname:  "roamer",
		Interests: []domain.InterestCategory{domain.InterestWeather},
		Active:    true,
	}
	st := &fakeUserStore{users: []domain.User{nowhere}}
	city := &fakeCity{snapshot: cityapi.Snapshot{
		cityapi.KeyWeather: cityapi.Weather{TemperatureC: 36},
	}}
	d := &fakeDispatcher{}

	eng := newTestEngine(st, city, d, WithDefaultCoordinate(37.5663, 126.9779))
	require.NoError(t, eng.RunRealtime(context.Background()))

	// Evaluation happened despite the missing location.
	require.Len(t, d.requests(), 1)
}

func TestRunRetention(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("expires with the configured cutoff", func(t *testing.T) {
		t.Parallel()

		st := &fakeUserStore{expireCount: 7}
		eng := newTestEngine(st, &fakeCity{}, &fakeDispatcher{},
			WithRetentionAge(48*time.Hour),
			WithNowFunc(func() time.Time { return now }),
		)

		require.NoError(t, eng.RunRetention(context.Background()))
		assert.Equal(t, now.Add(-48*time.Hour), st.expireCutoff)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		t.Parallel()

		st := &fakeUserStore{expireErr: errors.New("db down")}
		eng := newTestEngine(st, &fakeCity{}, &fakeDispatcher{})
		require.Error(t, eng.RunRetention(context.Background()))
	})
}

func TestRunCultural(t *testing.T) {
	t.Parallel()

	now := time.Now()
	events := []cityapi.CulturalEvent{{
		ID: "ev-1", Title: "Night Market", Place: "Old Square",
		Latitude: 37.5700, Longitude: 126.9820,
		StartsAt: now.Add(24 * time.Hour),
	}}

	t.Run("dispatches to interested users", func(t *testing.T) {
		t.Parallel()

		st := &fakeUserStore{byInterest: map[domain.InterestCategory][]domain.User{
			domain.InterestCulture: {activeUser("u-1", domain.InterestCulture)},
		}}
		city := &fakeCity{events: events}
		d := &fakeDispatcher{}

		eng := newTestEngine(st, city, d)
		require.NoError(t, eng.RunCultural(context.Background()))

		reqs := d.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, domain.ConditionCulturalEventNearby, reqs[0].Condition)
		// The realtime snapshot was never needed.
		assert.Zero(t, city.calls())
	})

	t.Run("no events short-circuits", func(t *testing.T) {
		t.Parallel()

		st := &fakeUserStore{}
		city := &fakeCity{}
		d := &fakeDispatcher{}

		eng := newTestEngine(st, city, d)
		require.NoError(t, eng.RunCultural(context.Background()))
		assert.Empty(t, d.requests())
	})

	t.Run("events fetch failure fails the tick", func(t *testing.T) {
		t.Parallel()

		st := &fakeUserStore{}
		city := &fakeCity{eventsErr: errors.New("503")}
		d := &fakeDispatcher{}

		eng := newTestEngine(st, city, d)
		require.Error(t, eng.RunCultural(context.Background()))
	})
}
