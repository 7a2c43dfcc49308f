// Package cache provides the key-value stores used to memoize engine results across requests.
// Every store is constructed explicitly and injected; there is no process-wide instance.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyEmpty is returned when an operation is attempted with an empty key
var ErrKeyEmpty = errors.New("cache key is empty")

// Backend names accepted by configuration
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// TTL defaults for cached engine results
const (
	TTLCorrelation = 6 * time.Hour // Correlation maps; draws arrive at most daily
)

// Store is a byte-oriented cache with per-entry expiry.
// A ttl <= 0 stores the entry without expiry.
type Store interface {
	// Get returns the value and true on a fresh hit, nil and false on a miss or expired entry
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// Expirer is implemented by stores that need an explicit sweep to reclaim expired entries.
// Redis and Badger expire keys natively and do not implement it.
type Expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func checkKey(key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	return nil
}
