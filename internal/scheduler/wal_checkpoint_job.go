package scheduler

import (
	"github.com/aristath/lottolab/internal/database"
	"github.com/rs/zerolog"
)

// WALFrameThreshold is the WAL size (in frames) above which the job forces a
// truncating checkpoint
const WALFrameThreshold = 1000

// WALCheckpointJob monitors the WAL of each database and truncates it once it
// grows past WALFrameThreshold
type WALCheckpointJob struct {
	log       zerolog.Logger
	databases []*database.DB
}

// NewWALCheckpointJob creates a new WALCheckpointJob. Nil databases are skipped.
func NewWALCheckpointJob(log zerolog.Logger, databases ...*database.DB) *WALCheckpointJob {
	return &WALCheckpointJob{
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
		databases: databases,
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run checks every database. A database that cannot be checked is logged and
// skipped; the run fails only when no database could be checked.
func (j *WALCheckpointJob) Run() error {
	checked := 0
	var lastErr error

	for _, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, frames, checkpointed int
		if err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to check WAL checkpoint")
			lastErr = err
			continue
		}
		checked++

		if frames <= WALFrameThreshold {
			j.log.Debug().Str("database", db.Name()).Int("wal_frames", frames).Msg("WAL checkpoint status OK")
			continue
		}

		j.log.Warn().
			Str("database", db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, truncating")
		if _, err := db.Conn().Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Failed to truncate WAL")
		}
	}

	if checked == 0 && lastErr != nil {
		return lastErr
	}

	j.log.Info().Int("checked", checked).Msg("WAL checkpoint check completed")
	return nil
}
