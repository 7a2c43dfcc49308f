// Package di provides dependency injection for repository implementations.
package di

import (
	"github.com/aristath/lottolab/internal/modules/history"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	container.DrawRepo = history.NewRepository(container.DrawsDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
