package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/turabik33/CE48-Final/internal/ports"
)

// Scheduler repeats a collection job on a ports.Scheduler driver.
type Scheduler struct {
	driver ports.Scheduler
	job    func(context.Context) error
	logger *slog.Logger
}

// NewScheduler returns a helper to start and stop recurring runs.
func NewScheduler(driver ports.Scheduler, job func(context.Context) error, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, job: job, logger: log}
}

// Start registers the job; a failing run is logged and the next tick still fires.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.job == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		s.logger.Info("scheduled run started", "trigger", trigger.UTC().Format(time.RFC3339))
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	})
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
