// Package dispatch persists notifications and fans them out to the
// configured delivery channels. The history record is written before any
// send attempt, so a crash mid-dispatch never loses the notification.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"citypulse/internal/metrics"
	"citypulse/internal/store"
	domain "citypulse/pkg/types"
)

// Outcome is the result of one channel send attempt.
type Outcome int

const (
	// OutcomeSkipped means the user has no target for the channel.
	OutcomeSkipped Outcome = iota
	// OutcomeDelivered means the provider accepted the message.
	OutcomeDelivered
	// OutcomeFailed means the send was attempted and failed.
	OutcomeFailed
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Channel is one delivery transport. Send must honor the context
// deadline and never panic; a missing target returns OutcomeSkipped
// with a nil error.
type Channel interface {
	Name() string
	Send(ctx context.Context, targets domain.ChannelTargets, n *domain.NotificationHistory) (Outcome, error)
}

// Request describes one notification to persist and deliver.
type Request struct {
	User         domain.User
	Type         domain.NotificationType
	Condition    domain.TriggerCondition
	Title        string
	Message      string
	LocationInfo string
}

// Dispatcher persists notification history and sends through every
// configured channel concurrently.
type Dispatcher struct {
	store    store.Store
	channels []Channel
	timeout  time.Duration
	dedup    *DedupCache
	cooldown time.Duration
	statuses *StatusCache
	log      *slog.Logger
	nowFunc  func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithChannelTimeout bounds each individual channel send.
func WithChannelTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.timeout = d }
}

// WithDedup suppresses repeat notifications for the same (user,
// condition) pair within the cooldown window after a delivery.
func WithDedup(cache *DedupCache, cooldown time.Duration) Option {
	return func(dp *Dispatcher) {
		dp.dedup = cache
		dp.cooldown = cooldown
	}
}

// WithStatusCache overrides the advisory delivery-status cache.
func WithStatusCache(cache *StatusCache) Option {
	return func(dp *Dispatcher) { dp.statuses = cache }
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(f func() time.Time) Option {
	return func(dp *Dispatcher) { dp.nowFunc = f }
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(st store.Store, log *slog.Logger, channels []Channel, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		store:    st,
		channels: channels,
		timeout:  10 * time.Second,
		statuses: NewStatusCache(0),
		log:      log,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ErrSuppressed is reported when the dedup window swallowed a repeat
// notification. No record is persisted in that case.
var ErrSuppressed = fmt.Errorf("dispatch: suppressed by cooldown")

// Dispatch persists a SENT history record, then attempts delivery on
// every channel concurrently. When no channel delivers, the record is
// moved to FAILED. The returned record reflects the final status.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*domain.NotificationHistory, error) {
	now := d.nowFunc()
	dedupKey := req.User.ID + "|" + string(req.Condition)

	if d.dedup != nil && d.dedup.Suppressed(dedupKey, now, d.cooldown) {
		d.log.Debug("notification suppressed",
			"user", req.User.ID,
			"condition", req.Condition,
		)
		return nil, ErrSuppressed
	}

	n := &domain.NotificationHistory{
		ID:           uuid.NewString(),
		UserID:       req.User.ID,
		Type:         req.Type,
		Condition:    req.Condition,
		Title:        req.Title,
		Message:      req.Message,
		LocationInfo: req.LocationInfo,
		Status:       domain.StatusSent,
		SentAt:       now,
	}

	if err := d.store.SaveNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("persisting notification: %w", err)
	}
	metrics.NotificationsCreatedTotal.Inc()

	targets, err := d.store.GetChannelTargets(ctx, req.User.ID)
	if err != nil {
		d.log.Error("loading channel targets failed",
			"user", req.User.ID,
			"notification", n.ID,
			"error", err,
		)
		targets = &domain.ChannelTargets{}
	}

	delivered := d.send(ctx, *targets, n)

	if delivered == 0 {
		if err := d.store.UpdateNotificationStatus(ctx, n.ID, domain.StatusFailed); err != nil {
			d.log.Error("marking notification failed",
				"notification", n.ID,
				"error", err,
			)
		}
		n.MarkFailed()
		metrics.NotificationsFailedTotal.Inc()
	} else if d.dedup != nil {
		// Only a delivery starts the cooldown; a failed dispatch is
		// retried on the next tick.
		d.dedup.Record(dedupKey, now)
	}

	d.statuses.Set(n.ID, n.Status)
	return n, nil
}

// LastStatus reports the most recent delivery status the dispatcher
// recorded for a notification, without a store round trip. Advisory
// only: the history table remains authoritative.
func (d *Dispatcher) LastStatus(id string) (domain.NotificationStatus, bool) {
	return d.statuses.Status(id)
}

// send runs every channel concurrently and returns the delivered count.
// One slow or broken channel never blocks the others past the timeout.
func (d *Dispatcher) send(ctx context.Context, targets domain.ChannelTargets, n *domain.NotificationHistory) int {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		delivered int
	)

	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			outcome, err := ch.Send(sendCtx, targets, n)
			metrics.ChannelSendsTotal.WithLabelValues(ch.Name(), outcome.String()).Inc()

			switch outcome {
			case OutcomeDelivered:
				mu.Lock()
				delivered++
				mu.Unlock()
			case OutcomeFailed:
				d.log.Warn("channel delivery failed",
					"channel", ch.Name(),
					"notification", n.ID,
					"error", err,
				)
			case OutcomeSkipped:
			}
		}(ch)
	}

	wg.Wait()
	return delivered
}
