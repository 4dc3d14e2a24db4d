package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/application"
)

// Scheduler drives the periodic sweeps: scheduled posts whose time arrived
// and failed targets whose backoff elapsed. Multiple instances may run the
// same tick; the per-target status CAS keeps attempts single-owner, so the
// sweeps themselves need no leader election.
type Scheduler struct {
	logger            *slog.Logger
	service           *application.Service
	sweepInterval     time.Duration
	reconcileSchedule string
	analyticsDaysBack int

	cron *cron.Cron
}

func NewScheduler(logger *slog.Logger, service *application.Service, sweepInterval time.Duration, reconcileSchedule string, analyticsDaysBack int) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if reconcileSchedule == "" {
		reconcileSchedule = "0 * * * *"
	}
	return &Scheduler{
		logger:            logger,
		service:           service,
		sweepInterval:     sweepInterval,
		reconcileSchedule: reconcileSchedule,
		analyticsDaysBack: analyticsDaysBack,
	}
}

// Run installs the cron entries and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), func() {
		s.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("add sweep entry: %w", err)
	}
	if _, err := c.AddFunc(s.reconcileSchedule, func() {
		s.reconcile(ctx)
	}); err != nil {
		return fmt.Errorf("add reconcile entry: %w", err)
	}

	s.cron = c
	c.Start()
	s.logger.InfoContext(ctx, "scheduler started",
		"module", "workers.scheduler",
		"layer", "adapter",
		"operation", "run",
		"outcome", "start",
		"sweep_interval", s.sweepInterval.String(),
		"reconcile_schedule", s.reconcileSchedule,
	)

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (s *Scheduler) sweep(ctx context.Context) {
	dispatched, err := s.service.SweepDueScheduled(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled sweep failed",
			"module", "workers.scheduler",
			"layer", "adapter",
			"operation", "sweep_scheduled",
			"outcome", "failure",
			"error", err,
		)
	} else if dispatched > 0 {
		s.logger.InfoContext(ctx, "scheduled posts dispatched",
			"module", "workers.scheduler",
			"layer", "adapter",
			"operation", "sweep_scheduled",
			"outcome", "success",
			"dispatched_count", dispatched,
		)
	}

	retried, err := s.service.SweepDueRetries(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "retry sweep failed",
			"module", "workers.scheduler",
			"layer", "adapter",
			"operation", "sweep_retries",
			"outcome", "failure",
			"error", err,
		)
	} else if retried > 0 {
		s.logger.InfoContext(ctx, "due retries attempted",
			"module", "workers.scheduler",
			"layer", "adapter",
			"operation", "sweep_retries",
			"outcome", "success",
			"retried_count", retried,
		)
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	synced, err := s.service.ReconcileAll(ctx, s.analyticsDaysBack)
	if err != nil {
		s.logger.ErrorContext(ctx, "analytics reconcile failed",
			"module", "workers.scheduler",
			"layer", "adapter",
			"operation", "reconcile_all",
			"outcome", "failure",
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "analytics reconciled",
		"module", "workers.scheduler",
		"layer", "adapter",
		"operation", "reconcile_all",
		"outcome", "success",
		"synced_count", synced,
	)
}
