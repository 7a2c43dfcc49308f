// Package di provides dependency injection type definitions.
package di

import (
	"io"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/database"
	"github.com/aristath/lottolab/internal/metrics"
	"github.com/aristath/lottolab/internal/modules/history"
	"github.com/aristath/lottolab/internal/scheduler"
	"github.com/aristath/lottolab/internal/services"
)

// Container holds all dependencies for the application.
// It is created by Wire and shared by the server and the CLI.
type Container struct {
	// Databases
	DrawsDB *database.DB // Draw history
	CacheDB *database.DB // Engine cache; nil unless the sqlite cache backend is selected

	// Repositories
	DrawRepo *history.Repository

	// Engine
	EngineConfig config.EngineConfig
	CacheStore   cache.Store
	Engine       *services.Engine
	Metrics      *metrics.Metrics

	// Background jobs
	Scheduler        *scheduler.Scheduler
	CleanupJob       *cache.CleanupJob
	WALCheckpointJob *scheduler.WALCheckpointJob

	closers []io.Closer // Cache backends holding files or connections
}

// Databases returns the open databases, for health checks
func (c *Container) Databases() []*database.DB {
	dbs := []*database.DB{c.DrawsDB}
	if c.CacheDB != nil {
		dbs = append(dbs, c.CacheDB)
	}
	return dbs
}

// Close releases every resource the container owns. It is safe to call on a
// partially wired container.
func (c *Container) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	for _, closer := range c.closers {
		keep(closer.Close())
	}
	if c.CacheDB != nil {
		keep(c.CacheDB.Close())
	}
	if c.DrawsDB != nil {
		keep(c.DrawsDB.Close())
	}
	return firstErr
}
