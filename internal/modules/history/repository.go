// Package history stores and loads the draw history the engine analyses.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/lottolab/internal/database"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
)

// Schema creates the draws table.
// draw_date is a unix timestamp; numbers is a JSON array sorted ascending.
const Schema = `
CREATE TABLE IF NOT EXISTS draws (
	lottery_id TEXT NOT NULL,
	contest_number INTEGER NOT NULL,
	draw_date INTEGER NOT NULL,
	numbers TEXT NOT NULL,
	imported_at INTEGER NOT NULL,
	PRIMARY KEY (lottery_id, contest_number)
);
CREATE INDEX IF NOT EXISTS idx_draws_date ON draws(lottery_id, draw_date);
`

// Repository handles draw persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new draw repository. The schema must already exist.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "draws").Logger(),
	}
}

// EnsureSchema creates the draws table if it does not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create draws schema: %w", err)
	}
	return nil
}

// Save upserts draws for a lottery in one transaction.
// Re-importing a contest replaces the stored row.
func (r *Repository) Save(ctx context.Context, lotteryID string, draws []domain.Draw) error {
	if lotteryID == "" {
		return fmt.Errorf("lottery ID must not be empty")
	}
	if len(draws) == 0 {
		return nil
	}

	now := time.Now().Unix()
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO draws (lottery_id, contest_number, draw_date, numbers, imported_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range draws {
			numbers, err := json.Marshal(d.Numbers)
			if err != nil {
				return fmt.Errorf("failed to marshal numbers of contest %d: %w", d.ContestNumber, err)
			}
			if _, err := stmt.ExecContext(ctx, lotteryID, d.ContestNumber, d.Date.Unix(), string(numbers), now); err != nil {
				return fmt.Errorf("failed to insert contest %d: %w", d.ContestNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("lottery", lotteryID).
		Int("draws", len(draws)).
		Msg("Draws saved")
	return nil
}

// List returns the draws of a lottery ordered by contest number (oldest first).
// A positive limit keeps only the most recent limit draws.
func (r *Repository) List(ctx context.Context, lotteryID string, limit int) ([]domain.Draw, error) {
	query := `
		SELECT contest_number, draw_date, numbers FROM draws
		WHERE lottery_id = ?
		ORDER BY contest_number ASC
	`
	args := []interface{}{lotteryID}
	if limit > 0 {
		query = `
			SELECT contest_number, draw_date, numbers FROM (
				SELECT contest_number, draw_date, numbers FROM draws
				WHERE lottery_id = ?
				ORDER BY contest_number DESC
				LIMIT ?
			) ORDER BY contest_number ASC
		`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	var draws []domain.Draw
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draws: %w", err)
	}
	return draws, nil
}

// Count returns the number of stored draws for a lottery
func (r *Repository) Count(ctx context.Context, lotteryID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM draws WHERE lottery_id = ?", lotteryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return count, nil
}

// Latest returns the most recent draw; found is false when the lottery has no history
func (r *Repository) Latest(ctx context.Context, lotteryID string) (domain.Draw, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT contest_number, draw_date, numbers FROM draws
		WHERE lottery_id = ?
		ORDER BY contest_number DESC
		LIMIT 1
	`, lotteryID)

	d, err := scanDraw(row)
	if err == sql.ErrNoRows {
		return domain.Draw{}, false, nil
	}
	if err != nil {
		return domain.Draw{}, false, err
	}
	return d, true, nil
}

// Delete removes every draw of a lottery and returns the number of rows removed
func (r *Repository) Delete(ctx context.Context, lotteryID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM draws WHERE lottery_id = ?", lotteryID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete draws: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDraw(s scanner) (domain.Draw, error) {
	var (
		contest  int
		unixDate int64
		raw      string
	)
	if err := s.Scan(&contest, &unixDate, &raw); err != nil {
		if err == sql.ErrNoRows {
			return domain.Draw{}, err
		}
		return domain.Draw{}, fmt.Errorf("failed to scan draw: %w", err)
	}

	var numbers []int
	if err := json.Unmarshal([]byte(raw), &numbers); err != nil {
		return domain.Draw{}, fmt.Errorf("failed to unmarshal numbers of contest %d: %w", contest, err)
	}
	return domain.NewDraw(contest, time.Unix(unixDate, 0).UTC(), numbers), nil
}
