package trigger

import (
	"fmt"
	"log/slog"

	"citypulse/internal/metrics"
)

// Manager holds the registered strategies and arbitrates one winner per
// evaluation. Registration order matters: when two fired strategies have
// equal priority, the one registered first wins. This is deliberate and
// deterministic, since it decides which of several simultaneously true
// conditions reaches the user.
type Manager struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewManager creates a Manager with the given strategies, in order.
func NewManager(log *slog.Logger, strategies ...Strategy) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{strategies: strategies, log: log}
}

// Register appends a strategy. Later registrations lose priority ties to
// earlier ones.
func (m *Manager) Register(s Strategy) {
	m.strategies = append(m.strategies, s)
}

// Strategies returns the registered strategies in registration order.
func (m *Manager) Strategies() []Strategy {
	return m.strategies
}

// EvaluateAll runs every enabled strategy against the context and
// returns the fired result with the numerically lowest priority, or
// ok=false when nothing fired. A strategy that panics is isolated and
// logged; the remaining strategies still vote.
func (m *Manager) EvaluateAll(tc *Context) (Result, bool) {
	var best Result
	found := false

	for _, s := range m.strategies {
		if !s.Enabled() {
			continue
		}

		res, err := m.evaluateOne(s, tc)
		if err != nil {
			m.log.Error("strategy evaluation failed",
				"strategy", s.Name(),
				"user", tc.User.ID,
				"error", err,
			)
			metrics.StrategyFailuresTotal.WithLabelValues(s.Name()).Inc()
			continue
		}
		if !res.Triggered {
			continue
		}

		metrics.StrategyFiredTotal.WithLabelValues(s.Name()).Inc()

		// Strictly lower priority replaces; equal keeps the earlier
		// registration.
		if !found || res.Priority < best.Priority {
			best = res
			found = true
		}
	}

	return best, found
}

func (m *Manager) evaluateOne(s Strategy, tc *Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = NotTriggered()
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()
	return s.Evaluate(tc), nil
}
