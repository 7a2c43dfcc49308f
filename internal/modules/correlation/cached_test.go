package correlation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	sets int
}

func (f *failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	f.sets++
	return errors.New("connection refused")
}

func (f *failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func (f *failingStore) Name() string { return "failing" }

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "correlation:megasena:100", CacheKey("megasena", 100))
}

func TestCachedEngine_HitAndStale(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	cached := NewCachedEngine(NewEngine(0, zerolog.Nop()), store, time.Hour, zerolog.Nop())

	draws := scenarioDraws()

	first, hit := cached.Build(ctx, "mini", 3, draws, 5)
	assert.False(t, hit)

	second, hit := cached.Build(ctx, "mini", 3, draws, 5)
	assert.True(t, hit)
	assert.True(t, first.Equal(second))
	assert.InDelta(t, first.Max(), second.Max(), 1e-12)

	// A newer draw makes the entry stale even though it has not expired
	extended := append(append([]domain.Draw{}, draws...), domain.NewDraw(4, time.Now(), []int{4, 5, 1}))
	third, hit := cached.Build(ctx, "mini", 3, extended, 5)
	assert.False(t, hit)
	assert.Greater(t, third.Lookup(4, 5), 0.0)

	// The refreshed entry now serves the extended window
	_, hit = cached.Build(ctx, "mini", 3, extended, 5)
	assert.True(t, hit)
}

func TestCachedEngine_DifferentPoolIsMiss(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedEngine(NewEngine(0, zerolog.Nop()), cache.NewMemoryStore(), 0, zerolog.Nop())

	_, hit := cached.Build(ctx, "mini", 3, scenarioDraws(), 5)
	require.False(t, hit)

	m, hit := cached.Build(ctx, "mini", 3, scenarioDraws(), 6)
	assert.False(t, hit)
	assert.Equal(t, 6, m.PoolSize())
}

func TestCachedEngine_CorruptEntryRecomputes(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Set(ctx, CacheKey("mini", 3), []byte{0xc1, 0x00}, 0))

	cached := NewCachedEngine(NewEngine(0, zerolog.Nop()), store, time.Hour, zerolog.Nop())
	m, hit := cached.Build(ctx, "mini", 3, scenarioDraws(), 5)

	assert.False(t, hit)
	assert.InDelta(t, 2.0/3.0, m.Lookup(1, 3), 1e-9)

	_, hit = cached.Build(ctx, "mini", 3, scenarioDraws(), 5)
	assert.True(t, hit, "corrupt entry should have been overwritten")
}

func TestCachedEngine_StoreFailureFallsBack(t *testing.T) {
	store := &failingStore{}
	cached := NewCachedEngine(NewEngine(0, zerolog.Nop()), store, time.Hour, zerolog.Nop())

	m, hit := cached.Build(context.Background(), "mini", 3, scenarioDraws(), 5)

	assert.False(t, hit)
	assert.InDelta(t, 2.0/3.0, m.Lookup(2, 3), 1e-9)
	assert.Equal(t, 1, store.sets)
}

func TestCachedEngine_NilStore(t *testing.T) {
	uncached := NewCachedEngine(NewEngine(0, zerolog.Nop()), nil, time.Hour, zerolog.Nop())
	m, hit := uncached.Build(context.Background(), "mini", 3, scenarioDraws(), 5)
	assert.False(t, hit)
	assert.True(t, m.Equal(NewEngine(0, zerolog.Nop()).BuildCorrelationMap(scenarioDraws(), 5)))
}

func TestCachedEngine_ReplacedWindowIsMiss(t *testing.T) {
	ctx := context.Background()
	cached := NewCachedEngine(NewEngine(0, zerolog.Nop()), cache.NewMemoryStore(), time.Hour, zerolog.Nop())

	original := makeDraws([]int{1, 2, 3}, []int{1, 2, 4})
	first, hit := cached.Build(ctx, "mini", 2, original, 5)
	require.False(t, hit)
	assert.Greater(t, first.Lookup(1, 2), 0.0)

	// Same draw count and latest contest, different numbers
	corrected := makeDraws([]int{3, 4, 5}, []int{3, 4, 5})
	second, hit := cached.Build(ctx, "mini", 2, corrected, 5)
	assert.False(t, hit)
	assert.Equal(t, 0.0, second.Lookup(1, 2))
	assert.Greater(t, second.Lookup(3, 4), 0.0)
	assert.True(t, second.Equal(NewEngine(0, zerolog.Nop()).BuildCorrelationMap(corrected, 5)))

	_, hit = cached.Build(ctx, "mini", 2, corrected, 5)
	assert.True(t, hit)
}

func TestFingerprint(t *testing.T) {
	a := makeDraws([]int{1, 2, 3}, []int{4, 5, 6})
	assert.Equal(t, fingerprint(a), fingerprint(makeDraws([]int{1, 2, 3}, []int{4, 5, 6})))
	assert.NotEqual(t, fingerprint(a), fingerprint(makeDraws([]int{1, 2, 3}, []int{4, 5, 7})))
	assert.NotEqual(t, fingerprint(makeDraws([]int{12, 3})), fingerprint(makeDraws([]int{1, 23})))
}
