package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from every store that needs an explicit sweep.
// It is scheduled by the cron scheduler.
type CleanupJob struct {
	stores  []Store
	timeout time.Duration
	log     zerolog.Logger
}

// NewCleanupJob creates a cleanup job over the given stores.
// Stores that do not implement Expirer are skipped at run time.
func NewCleanupJob(log zerolog.Logger, stores ...Store) *CleanupJob {
	return &CleanupJob{
		stores:  stores,
		timeout: time.Minute,
		log:     log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job
func (j *CleanupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var totalDeleted int64
	for _, store := range j.stores {
		expirer, ok := store.(Expirer)
		if !ok {
			continue
		}

		deleted, err := expirer.DeleteExpired(ctx)
		if err != nil {
			j.log.Error().Err(err).Str("store", store.Name()).Msg("Failed to delete expired cache entries")
			return fmt.Errorf("cleanup %s: %w", store.Name(), err)
		}
		if deleted > 0 {
			j.log.Info().
				Str("store", store.Name()).
				Int64("deleted", deleted).
				Msg("Cleaned up expired cache entries")
		}
		totalDeleted += deleted
	}

	j.log.Debug().Int64("total_deleted", totalDeleted).Msg("Cache cleanup completed")
	return nil
}

// Name returns the job name for scheduling and logging
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
