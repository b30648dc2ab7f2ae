package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"citypulse/internal/config"
)

// Scheduler runs the evaluation tasks on their configured intervals.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	log    *slog.Logger
}

// NewScheduler creates a Scheduler wiring the enabled tasks to the
// engine. A disabled task is simply not registered.
func NewScheduler(eng *Engine, cfg config.ScheduleConfig, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	c := cron.New()
	s := &Scheduler{
		cron:   c,
		engine: eng,
		log:    log,
	}

	if cfg.Realtime.Enabled != nil && *cfg.Realtime.Enabled {
		if _, err := c.AddFunc(
			"@every "+cfg.Realtime.Interval.String(),
			s.runRealtime,
		); err != nil {
			return nil, err
		}
	}

	if cfg.Cultural.Enabled != nil && *cfg.Cultural.Enabled {
		if _, err := c.AddFunc(
			"@every "+cfg.Cultural.Interval.String(),
			s.runCultural,
		); err != nil {
			return nil, err
		}
	}

	if cfg.Retention.Enabled != nil && *cfg.Retention.Enabled {
		if _, err := c.AddFunc(
			"@every "+cfg.Retention.Interval.String(),
			s.runRetention,
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started")
	s.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) runRealtime() {
	ctx := context.Background()
	s.log.Info("scheduled realtime tick starting")
	if err := s.engine.RunRealtime(ctx); err != nil && !errors.Is(err, ErrTickInProgress) {
		s.log.Error("scheduled realtime tick failed", "error", err)
	}
}

func (s *Scheduler) runCultural() {
	ctx := context.Background()
	s.log.Info("scheduled cultural tick starting")
	if err := s.engine.RunCultural(ctx); err != nil && !errors.Is(err, ErrTickInProgress) {
		s.log.Error("scheduled cultural tick failed", "error", err)
	}
}

func (s *Scheduler) runRetention() {
	if err := s.engine.RunRetention(context.Background()); err != nil {
		s.log.Error("retention sweep failed", "error", err)
	}
}
