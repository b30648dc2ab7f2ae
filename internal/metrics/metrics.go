// Package metrics defines Prometheus metrics for citypulse.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "citypulse"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "Whether the last liveness probe returned OK.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "Whether the last readiness probe returned OK.",
	})
)

// Evaluation metrics.
var (
	EvaluationCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_cycles_total",
		Help:      "Total number of completed evaluation ticks, by task.",
	}, []string{"task"})

	EvaluationCyclesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_cycles_skipped_total",
		Help:      "Ticks skipped because the previous tick was still running.",
	}, []string{"task"})

	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of evaluation ticks in seconds, by task.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task"})

	EvaluationUserFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_user_failures_total",
		Help:      "Per-user evaluation failures isolated by the scheduler.",
	})
)

// Trigger metrics.
var (
	StrategyFiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_fired_total",
		Help:      "Trigger candidates produced, by strategy.",
	}, []string{"strategy"})

	StrategyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_failures_total",
		Help:      "Strategy evaluations isolated after a panic, by strategy.",
	}, []string{"strategy"})
)

// Dispatch metrics.
var (
	NotificationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notification records persisted for dispatch.",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_failed_total",
		Help:      "Notifications marked FAILED after every channel failed.",
	})

	ChannelSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "channel_sends_total",
		Help:      "Channel delivery attempts, by channel and outcome.",
	}, []string{"channel", "outcome"})

	NotificationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_expired_total",
		Help:      "Unread notifications expired by the retention sweep.",
	})
)

// City API metrics.
var (
	CityAPICallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "city_api_calls_total",
		Help:      "Total cumulative city open-data API calls.",
	})

	CityAPIErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "city_api_errors_total",
		Help:      "City open-data API calls that returned an error.",
	})

	CityAPIDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "city_api_daily_usage",
		Help:      "City API call count within the rolling 24-hour window.",
	})

	CityAPIDailyRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "city_api_daily_remaining",
		Help:      "City API calls left in the rolling 24-hour window.",
	})
)
