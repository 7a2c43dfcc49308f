package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteSchema creates the table used by SQLiteStore.
// expires_at is a unix timestamp; 0 means the entry never expires.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS engine_cache (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engine_cache_expires ON engine_cache(expires_at);
`

// SQLiteStore persists cache entries in a SQLite table with expiration timestamps
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-backed store. The schema must already exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// EnsureSchema creates the cache table if it does not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		return fmt.Errorf("failed to create engine_cache schema: %w", err)
	}
	return nil
}

// Name returns the backend name
func (s *SQLiteStore) Name() string {
	return BackendSQLite
}

// Get returns data only if it has not expired.
// Returns nil, false, nil if the key doesn't exist or data is expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM engine_cache WHERE key = ? AND (expires_at = 0 OR expires_at > ?)",
		key, s.now().Unix(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	return data, true, nil
}

// Set saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO engine_cache (key, data, expires_at) VALUES (?, ?, ?)",
		key, value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}

	return nil
}

// Delete removes a specific entry
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM engine_cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows whose expiry has passed.
// Returns the number of rows deleted.
func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM engine_cache WHERE expires_at > 0 AND expires_at <= ?",
		s.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
