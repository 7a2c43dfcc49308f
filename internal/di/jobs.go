// Package di provides dependency injection for background jobs.
package di

import (
	"fmt"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers the background jobs.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)
	sched.OnResult(container.Metrics.ObserveJob)

	container.CleanupJob = cache.NewCleanupJob(log, container.CacheStore)
	if err := sched.AddJob(cfg.CleanupSchedule, container.CleanupJob); err != nil {
		return fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	container.WALCheckpointJob = scheduler.NewWALCheckpointJob(log, container.Databases()...)
	if err := sched.AddJob(cfg.WALCheckSchedule, container.WALCheckpointJob); err != nil {
		return fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	container.Scheduler = sched

	log.Info().
		Str("cleanup_schedule", cfg.CleanupSchedule).
		Str("wal_check_schedule", cfg.WALCheckSchedule).
		Msg("Jobs registered")
	return nil
}
