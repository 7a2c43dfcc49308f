package di

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir:          t.TempDir(),
		CleanupSchedule:  "@every 1h",
		WALCheckSchedule: "@every 1h",
		Cache: config.CacheConfig{
			Backend:    backend,
			TTL:        time.Hour,
			BadgerPath: t.TempDir(),
		},
	}
}

func TestWire(t *testing.T) {
	for _, backend := range []string{cache.BackendMemory, cache.BackendSQLite, cache.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			container, err := Wire(testConfig(t, backend), zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { container.Close() })

			assert.NotNil(t, container.DrawRepo)
			assert.NotNil(t, container.Engine)
			assert.NotNil(t, container.Metrics)
			assert.NotNil(t, container.Scheduler)
			assert.Equal(t, backend, container.CacheStore.Name())
			assert.False(t, container.Engine.ArchivingEnabled())

			_, err = container.Engine.Lottery("megasena")
			assert.NoError(t, err)
		})
	}
}

func TestWire_CleanupJobReportsMetrics(t *testing.T) {
	container, err := Wire(testConfig(t, cache.BackendSQLite), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	require.NoError(t, container.CacheStore.Set(context.Background(), "stale", []byte("x"), time.Nanosecond))
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, container.Scheduler.RunNow(container.CleanupJob))
	assert.Equal(t, 1.0, testutil.ToFloat64(container.Metrics.JobRuns.WithLabelValues(container.CleanupJob.Name(), "ok")))

	_, found, err := container.CacheStore.Get(context.Background(), "stale")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWire_WALCheckpointJob(t *testing.T) {
	container, err := Wire(testConfig(t, cache.BackendSQLite), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	require.NotNil(t, container.WALCheckpointJob)
	require.NoError(t, container.Scheduler.RunNow(container.WALCheckpointJob))
	assert.Equal(t, 1.0, testutil.ToFloat64(container.Metrics.JobRuns.WithLabelValues("wal_checkpoint", "ok")))
}

func TestWire_EngineConfigFile(t *testing.T) {
	cfg := testConfig(t, cache.BackendMemory)
	cfg.EngineConfigPath = "/nonexistent/engine.yaml"

	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_UnknownBackend(t *testing.T) {
	_, err := Wire(testConfig(t, "memcached"), zerolog.Nop())
	assert.Error(t, err)
	assert.False(t, domain.IsConfigurationError(err))
}
