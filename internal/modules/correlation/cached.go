package correlation

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
)

// CachedEngine memoizes correlation maps in an injected cache store.
// A cached map is only returned when it was built from the same window of draws
// (same contests and numbers, pool size and threshold), so results never depend
// on the age of the entry and replaced histories need no explicit invalidation.
type CachedEngine struct {
	engine *Engine
	store  cache.Store
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedEngine wraps engine with store. A nil store disables caching.
func NewCachedEngine(engine *Engine, store cache.Store, ttl time.Duration, log zerolog.Logger) *CachedEngine {
	if ttl <= 0 {
		ttl = cache.TTLCorrelation
	}
	return &CachedEngine{
		engine: engine,
		store:  store,
		ttl:    ttl,
		log:    log.With().Str("component", "correlation_cache").Logger(),
	}
}

// Engine returns the underlying uncached engine
func (c *CachedEngine) Engine() *Engine {
	return c.engine
}

// CacheKey returns the cache key of a lottery's correlation map for a window size
func CacheKey(lotteryID string, windowSize int) string {
	return fmt.Sprintf("correlation:%s:%d", lotteryID, windowSize)
}

// Build returns the correlation map of draws, reading and refreshing the cache.
// The boolean reports whether the map came from the cache. Cache failures are
// logged and the map is recomputed.
func (c *CachedEngine) Build(ctx context.Context, lotteryID string, windowSize int, draws []domain.Draw, poolSize int) (*Map, bool) {
	if c.store == nil {
		return c.engine.BuildCorrelationMap(draws, poolSize), false
	}

	key := CacheKey(lotteryID, windowSize)
	log := c.log.With().Str("key", key).Str("store", c.store.Name()).Logger()

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to read correlation cache, recomputing")
	case ok:
		snap, err := decodeSnapshot(data)
		if err != nil {
			log.Warn().Err(err).Msg("Discarding undecodable cache entry")
		} else if snap.matches(draws, poolSize, c.engine.Threshold()) {
			log.Debug().Int("pairs", len(snap.Entries)).Msg("Correlation cache hit")
			return FromEntries(snap.PoolSize, snap.Threshold, snap.Entries), true
		} else {
			log.Debug().
				Int("cached_latest", snap.LatestContest).
				Int("latest", domain.LatestContest(draws)).
				Msg("Correlation cache entry is stale")
		}
	}

	m := c.engine.BuildCorrelationMap(draws, poolSize)

	encoded, err := encodeSnapshot(m, draws)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode correlation map for cache")
		return m, false
	}
	if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
		log.Warn().Err(err).Msg("Failed to write correlation cache")
	}
	return m, false
}
