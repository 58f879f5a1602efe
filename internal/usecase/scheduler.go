package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// Sweeper wires the ticker driver with the stale-call sweep.
type Sweeper struct {
	driver ports.Scheduler
	queue  *CallQueue
	maxAge time.Duration
	logger *slog.Logger
}

// NewSweeper returns a helper to start/stop the recurring sweep.
func NewSweeper(driver ports.Scheduler, queue *CallQueue, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{driver: driver, queue: queue, maxAge: maxAge, logger: orLogger(logger, "sweeper")}
}

// Start registers the sweep with the provided scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.driver == nil || s.queue == nil {
		return nil
	}

	job := func(trigger time.Time) {
		n, err := s.queue.SweepStale(ctx, s.maxAge)
		if err != nil {
			s.logger.Error("sweep stale calls", "error", err)
			return
		}
		if n > 0 {
			s.logger.Info("stale calls swept", "count", n, "trigger", trigger)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
