// Package di provides dependency injection for database connections.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/lottolab/internal/cache"
	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/database"
	"github.com/aristath/lottolab/internal/modules/history"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the draw store, plus the cache database when the
// sqlite cache backend is selected, and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. draws.db - Imported draw history
	drawsDB, err := database.New(database.Config{
		Path:    cfg.DrawsDBPath(),
		Profile: database.ProfileStandard,
		Name:    "draws",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize draws database: %w", err)
	}
	container.DrawsDB = drawsDB

	if err := drawsDB.Migrate(context.Background(), history.Schema); err != nil {
		drawsDB.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", drawsDB.Name(), err)
	}

	// 2. cache.db - Ephemeral engine results
	if cfg.Cache.Backend == cache.BackendSQLite {
		cacheDB, err := database.New(database.Config{
			Path:    cfg.CacheDBPath(),
			Profile: database.ProfileCache, // Maximum speed for ephemeral data
			Name:    "cache",
		})
		if err != nil {
			drawsDB.Close()
			return nil, fmt.Errorf("failed to initialize cache database: %w", err)
		}
		container.CacheDB = cacheDB

		if err := cacheDB.Migrate(context.Background(), cache.SQLiteSchema); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", cacheDB.Name(), err)
		}
	}

	log.Info().Int("databases", len(container.Databases())).Msg("Databases initialized and schemas applied")

	return container, nil
}
