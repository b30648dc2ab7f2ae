// Package scheduler drives the periodic evaluation ticks: it polls the
// city API, runs the trigger manager for every relevant user, and hands
// fired results to the dispatcher.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"citypulse/internal/cityapi"
	"citypulse/internal/dispatch"
	"citypulse/internal/metrics"
	"citypulse/internal/store"
	"citypulse/internal/trigger"
	domain "citypulse/pkg/types"
)

const (
	taskRealtime = "realtime"
	taskCultural = "cultural"

	defaultWorkers          = 8
	defaultSoftDeadline     = 4 * time.Minute
	defaultPerUserTimeout   = 30 * time.Second
	defaultCulturalPageSize = 100
	defaultMaxUpstreamFails = 3
	defaultRetentionAge     = 30 * 24 * time.Hour
)

// CityClient is what the engine needs from the city open-data API.
type CityClient interface {
	CityData(ctx context.Context, lat, lng float64) (cityapi.Snapshot, error)
	CulturalEvents(ctx context.Context, page, size int) ([]cityapi.CulturalEvent, error)
}

// Dispatcher persists and delivers one notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*domain.NotificationHistory, error)
}

// Engine orchestrates polling, evaluation, and dispatch for both tasks.
// Each task is single-flight: a tick that arrives while the previous one
// is still running is skipped, never queued.
type Engine struct {
	store      store.Store
	city       CityClient
	realtime   *trigger.Manager
	cultural   *trigger.Manager
	dispatcher Dispatcher
	log        *slog.Logger

	workers          int
	softDeadline     time.Duration
	perUserTimeout   time.Duration
	defaultLat       float64
	defaultLng       float64
	culturalPageSize int
	maxUpstreamFails int
	retentionAge     time.Duration
	nowFunc          func() time.Time

	realtimeRunning atomic.Bool
	culturalRunning atomic.Bool
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithWorkers sets the evaluation worker pool size.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSoftDeadline bounds how long a tick keeps starting new users.
// Users already being evaluated when the deadline passes still finish.
func WithSoftDeadline(d time.Duration) EngineOption {
	return func(e *Engine) { e.softDeadline = d }
}

// WithDefaultCoordinate sets the reference coordinate for users without
// a known location.
func WithDefaultCoordinate(lat, lng float64) EngineOption {
	return func(e *Engine) {
		e.defaultLat = lat
		e.defaultLng = lng
	}
}

// WithCulturalPageSize sets the events page size for the cultural tick.
func WithCulturalPageSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.culturalPageSize = n
		}
	}
}

// WithMaxUpstreamFailures sets how many consecutive city API failures
// abort the running tick.
func WithMaxUpstreamFailures(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxUpstreamFails = n
		}
	}
}

// WithRetentionAge sets how long an unread notification survives before
// the retention sweep expires it.
func WithRetentionAge(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.retentionAge = d
		}
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) { e.nowFunc = f }
}

// NewEngine creates an Engine with injected dependencies. The realtime
// manager evaluates the sensor-driven strategies; the cultural manager
// evaluates the event strategies on their slower cadence.
func NewEngine(
	st store.Store,
	city CityClient,
	realtime *trigger.Manager,
	cultural *trigger.Manager,
	d Dispatcher,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:            st,
		city:             city,
		realtime:         realtime,
		cultural:         cultural,
		dispatcher:       d,
		log:              slog.Default(),
		workers:          defaultWorkers,
		softDeadline:     defaultSoftDeadline,
		perUserTimeout:   defaultPerUserTimeout,
		defaultLat:       37.5663,
		defaultLng:       126.9779,
		culturalPageSize: defaultCulturalPageSize,
		maxUpstreamFails: defaultMaxUpstreamFails,
		retentionAge:     defaultRetentionAge,
		nowFunc:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ErrTickInProgress is reported when a tick is skipped because the
// previous one has not finished.
var ErrTickInProgress = errors.New("scheduler: previous tick still running")

// errUpstreamAborted aborts a tick after repeated city API failures.
var errUpstreamAborted = errors.New("scheduler: aborting tick, city API failing repeatedly")

// RunRealtime executes one realtime evaluation tick: every active user
// gets a fresh city snapshot at their coordinate and a full strategy
// evaluation. Per-user failures are isolated; repeated upstream failures
// abort the tick.
func (e *Engine) RunRealtime(ctx context.Context) error {
	if !e.realtimeRunning.CompareAndSwap(false, true) {
		metrics.EvaluationCyclesSkipped.WithLabelValues(taskRealtime).Inc()
		return ErrTickInProgress
	}
	defer e.realtimeRunning.Store(false)

	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.WithLabelValues(taskRealtime).Observe(time.Since(start).Seconds())
		metrics.EvaluationCyclesTotal.WithLabelValues(taskRealtime).Inc()
	}()

	users, err := e.store.ListActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("listing active users: %w", err)
	}

	e.log.Info("realtime tick starting", "users", len(users))

	err = e.runPool(ctx, users, func(ctx context.Context, u domain.User) error {
		return e.evaluateRealtimeUser(ctx, u)
	})

	e.log.Info("realtime tick finished",
		"users", len(users),
		"duration", time.Since(start),
	)
	return err
}

// RunCultural executes one cultural evaluation tick. The event listing
// is fetched once and shared across every interested user.
func (e *Engine) RunCultural(ctx context.Context) error {
	if !e.culturalRunning.CompareAndSwap(false, true) {
		metrics.EvaluationCyclesSkipped.WithLabelValues(taskCultural).Inc()
		return ErrTickInProgress
	}
	defer e.culturalRunning.Store(false)

	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.WithLabelValues(taskCultural).Observe(time.Since(start).Seconds())
		metrics.EvaluationCyclesTotal.WithLabelValues(taskCultural).Inc()
	}()

	events, err := e.city.CulturalEvents(ctx, 1, e.culturalPageSize)
	if err != nil {
		return fmt.Errorf("fetching cultural events: %w", err)
	}
	if len(events) == 0 {
		e.log.Info("cultural tick skipped, no upcoming events")
		return nil
	}

	users, err := e.store.ListUsersByInterest(ctx, domain.InterestCulture)
	if err != nil {
		return fmt.Errorf("listing culture users: %w", err)
	}

	e.log.Info("cultural tick starting", "users", len(users), "events", len(events))

	data := trigger.PublicData{cityapi.KeyCulturalEvents: events}
	err = e.runPool(ctx, users, func(ctx context.Context, u domain.User) error {
		return e.evaluateUser(ctx, u, e.cultural, data)
	})

	e.log.Info("cultural tick finished",
		"users", len(users),
		"duration", time.Since(start),
	)
	return err
}

// RunRetention expires notifications that stayed unread past the
// retention age. Safe to run concurrently with evaluation ticks: the
// store only touches rows still in SENT.
func (e *Engine) RunRetention(ctx context.Context) error {
	cutoff := e.nowFunc().Add(-e.retentionAge)
	n, err := e.store.ExpireNotificationsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expiring notifications: %w", err)
	}
	if n > 0 {
		metrics.NotificationsExpiredTotal.Add(float64(n))
		e.log.Info("expired stale notifications", "count", n, "cutoff", cutoff)
	}
	return nil
}

// runPool fans users out over the worker pool. The soft deadline stops
// new users from being picked up; in-flight evaluations run to
// completion under their own per-user timeout.
func (e *Engine) runPool(
	ctx context.Context,
	users []domain.User,
	eval func(ctx context.Context, u domain.User) error,
) error {
	if len(users) == 0 {
		return nil
	}

	tickCtx, cancel := context.WithTimeout(ctx, e.softDeadline)
	defer cancel()

	var upstreamFails atomic.Int64

	queue := make(chan domain.User)
	var wg sync.WaitGroup
	for range e.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range queue {
				// Detached from the soft deadline: a user already
				// started finishes their evaluation.
				userCtx, cancel := context.WithTimeout(
					context.WithoutCancel(tickCtx), e.perUserTimeout,
				)
				err := eval(userCtx, u)
				cancel()

				if err == nil {
					upstreamFails.Store(0)
					continue
				}

				metrics.EvaluationUserFailuresTotal.Inc()
				e.log.Error("user evaluation failed", "user", u.ID, "error", err)
				if isUpstreamErr(err) {
					upstreamFails.Add(1)
				}
			}
		}()
	}

	var aborted bool
produce:
	for _, u := range users {
		if upstreamFails.Load() >= int64(e.maxUpstreamFails) {
			aborted = true
			break
		}
		select {
		case queue <- u:
		case <-tickCtx.Done():
			e.log.Warn("soft deadline reached, abandoning remaining users")
			break produce
		}
	}
	close(queue)
	wg.Wait()

	if aborted {
		e.log.Error("tick aborted after repeated city API failures",
			"consecutive_failures", upstreamFails.Load(),
		)
		return errUpstreamAborted
	}
	return nil
}

// evaluateRealtimeUser polls the city snapshot at the user's coordinate
// and runs the realtime strategies.
func (e *Engine) evaluateRealtimeUser(ctx context.Context, u domain.User) error {
	lat, lng := e.coordinate(u)

	snap, err := e.city.CityData(ctx, lat, lng)
	if err != nil {
		return upstreamError{fmt.Errorf("fetching city data: %w", err)}
	}

	return e.evaluateUser(ctx, u, e.realtime, trigger.PublicData(snap))
}

// evaluateUser runs one manager over the user and dispatches the winner.
func (e *Engine) evaluateUser(
	ctx context.Context,
	u domain.User,
	m *trigger.Manager,
	data trigger.PublicData,
) error {
	lat, lng := e.coordinate(u)

	tc := &trigger.Context{
		User:      u,
		Latitude:  &lat,
		Longitude: &lng,
		Now:       e.nowFunc(),
		Data:      data,
	}

	res, fired := m.EvaluateAll(tc)
	if !fired {
		return nil
	}

	_, err := e.dispatcher.Dispatch(ctx, dispatch.Request{
		User:         u,
		Type:         res.Type,
		Condition:    res.Condition,
		Title:        res.Title,
		Message:      res.Message,
		LocationInfo: res.LocationInfo,
	})
	if errors.Is(err, dispatch.ErrSuppressed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatching notification: %w", err)
	}
	return nil
}

// coordinate returns the user's location, falling back to the configured
// city-center default.
func (e *Engine) coordinate(u domain.User) (float64, float64) {
	if u.HasLocation() {
		return *u.Latitude, *u.Longitude
	}
	return e.defaultLat, e.defaultLng
}

// upstreamError tags city API failures so the pool can count them toward
// the tick abort threshold.
type upstreamError struct{ err error }

func (e upstreamError) Error() string { return e.err.Error() }
func (e upstreamError) Unwrap() error { return e.err }

func isUpstreamErr(err error) bool {
	var ue upstreamError
	return errors.As(err, &ue)
}
