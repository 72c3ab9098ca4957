// Package scheduler runs the pipeline on a cron schedule inside a
// long-lived process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/asos-pressure-etl/internal/domain"
)

// Runner performs one ingest run.
type Runner interface {
	Run(ctx context.Context) (domain.Outcome, error)
}

// Scheduler triggers Runner on a cron expression. Runs never overlap: a
// trigger that fires while a run is in progress is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	expr      string
	logger    *slog.Logger
	cancel    context.CancelFunc
}

// New creates a Scheduler for a standard five-field cron expression,
// evaluated in UTC.
func New(expr string, runner Runner, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		expr:      expr,
		logger:    logger,
	}
}

// Start schedules the job, starts the scheduler, and triggers one run right
// away so a fresh process catches up without waiting for the first tick.
// Runs inherit ctx; Stop cancels it.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.scheduler.Cron(s.expr).Do(s.job, ctx); err != nil {
		s.cancel()
		return fmt.Errorf("schedule %q: %w", s.expr, err)
	}

	s.scheduler.StartAsync()
	s.scheduler.RunAll()
	s.logger.Info("scheduler started", "schedule", s.expr)
	return nil
}

// Stop cancels any in-flight run and stops the scheduler.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.scheduler.Stop()
}

func (s *Scheduler) job(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	out, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled run failed", "run_id", out.RunID, "error", err)
		return
	}
	s.logger.Info("scheduled run finished",
		"run_id", out.RunID,
		"status", out.Status,
		"month", out.Month.String(),
	)
}
