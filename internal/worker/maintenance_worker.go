package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/pkg/config"
)

// PackageExpirer clears company packages whose month has run out.
type PackageExpirer interface {
	ExpirePackages(ctx context.Context) (int, error)
}

// JobCloser closes ACTIVE jobs past their expiry.
type JobCloser interface {
	CloseExpired(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceWorker runs the periodic ledger and job housekeeping on cron
// schedules.
type MaintenanceWorker struct {
	cron      *cron.Cron
	packages  PackageExpirer
	jobs      JobCloser
	schedules config.Schedules
	logger    *slog.Logger
	now       func() time.Time
}

// NewMaintenanceWorker creates a new maintenance worker
func NewMaintenanceWorker(packages PackageExpirer, jobs JobCloser, schedules config.Schedules, logger *slog.Logger) *MaintenanceWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceWorker{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		packages:  packages,
		jobs:      jobs,
		schedules: schedules,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers both jobs, starts the scheduler and runs one pass right
// away so a restart does not wait for the first tick.
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.schedules.PackageExpiry, func() { w.expirePackages(ctx) }); err != nil {
		return fmt.Errorf("schedule package expiry %q: %w", w.schedules.PackageExpiry, err)
	}
	if _, err := w.cron.AddFunc(w.schedules.JobExpiry, func() { w.closeExpiredJobs(ctx) }); err != nil {
		return fmt.Errorf("schedule job expiry %q: %w", w.schedules.JobExpiry, err)
	}
	w.cron.Start()
	w.logger.Info("maintenance worker started",
		slog.String("package_expiry", w.schedules.PackageExpiry),
		slog.String("job_expiry", w.schedules.JobExpiry),
	)

	go func() {
		w.expirePackages(ctx)
		w.closeExpiredJobs(ctx)
	}()
	return nil
}

// Stop stops the scheduler and waits for running jobs up to ctx.
func (w *MaintenanceWorker) Stop(ctx context.Context) {
	select {
	case <-w.cron.Stop().Done():
		w.logger.Info("maintenance worker stopped")
	case <-ctx.Done():
		w.logger.Warn("maintenance worker stop timed out")
	}
}

func (w *MaintenanceWorker) expirePackages(ctx context.Context) {
	n, err := w.packages.ExpirePackages(ctx)
	if err != nil {
		w.logger.Error("package expiry failed", slog.String("error", err.Error()))
		metrics.ObserveMaintenance("package_expiry", "error")
		return
	}
	metrics.ObserveMaintenance("package_expiry", "success")
	if n > 0 {
		w.logger.Info("expired company packages", slog.Int("count", n))
	}
}

func (w *MaintenanceWorker) closeExpiredJobs(ctx context.Context) {
	n, err := w.jobs.CloseExpired(ctx, w.now())
	if err != nil {
		w.logger.Error("job expiry failed", slog.String("error", err.Error()))
		metrics.ObserveMaintenance("job_expiry", "error")
		return
	}
	metrics.ObserveMaintenance("job_expiry", "success")
	if n > 0 {
		w.logger.Info("closed expired jobs", slog.Int64("count", n))
	}
}
