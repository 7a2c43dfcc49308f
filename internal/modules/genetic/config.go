// Package genetic searches the space of valid number sets with a genetic algorithm.
package genetic

import (
	"github.com/aristath/lottolab/internal/domain"
)

// GA defaults
const (
	DefaultPopulationSize    = 200
	DefaultGenerations       = 100
	DefaultMutationRate      = 0.15
	DefaultElitePercent      = 0.10
	DefaultTournamentSize    = 3
	DefaultCorrelationWeight = 1.0
	DefaultDiversityPenalty  = 0.05
	DefaultMaxPerDecile      = 3
)

// Config holds the optimizer parameters
type Config struct {
	PoolSize       int     `yaml:"-" json:"pool_size"`
	Pick           int     `yaml:"-" json:"pick"`
	PopulationSize int     `yaml:"population_size" json:"population_size"`
	Generations    int     `yaml:"generations" json:"generations"`
	MutationRate   float64 `yaml:"mutation_rate" json:"mutation_rate"`
	ElitePercent   float64 `yaml:"elite_percent" json:"elite_percent"`
	TournamentSize int     `yaml:"tournament_size" json:"tournament_size"`
	// CorrelationWeight scales the set correlation bonus added to the summed scores
	CorrelationWeight float64 `yaml:"correlation_weight" json:"correlation_weight"`
	// DiversityPenalty is subtracted per number beyond MaxPerDecile in a single decile
	DiversityPenalty float64 `yaml:"diversity_penalty" json:"diversity_penalty"`
	MaxPerDecile     int     `yaml:"max_per_decile" json:"max_per_decile"` // 0 disables the penalty
	Seed             int64   `yaml:"seed" json:"seed"`                     // 0 seeds from the clock
}

// DefaultConfig returns the default parameters for a lottery shape
func DefaultConfig(poolSize, pick int) Config {
	return Config{
		PoolSize:          poolSize,
		Pick:              pick,
		PopulationSize:    DefaultPopulationSize,
		Generations:       DefaultGenerations,
		MutationRate:      DefaultMutationRate,
		ElitePercent:      DefaultElitePercent,
		TournamentSize:    DefaultTournamentSize,
		CorrelationWeight: DefaultCorrelationWeight,
		DiversityPenalty:  DefaultDiversityPenalty,
		MaxPerDecile:      DefaultMaxPerDecile,
	}
}

// Validate rejects parameters the optimizer cannot run with
func (c Config) Validate() error {
	switch {
	case c.PoolSize <= 0:
		return domain.NewConfigurationError("pool_size", "must be positive, got %d", c.PoolSize)
	case c.Pick <= 0:
		return domain.NewConfigurationError("pick", "must be positive, got %d", c.Pick)
	case c.Pick > c.PoolSize:
		return domain.NewConfigurationError("pick", "must not exceed pool size %d, got %d", c.PoolSize, c.Pick)
	case c.PopulationSize <= 0:
		return domain.NewConfigurationError("population_size", "must be positive, got %d", c.PopulationSize)
	case c.Generations <= 0:
		return domain.NewConfigurationError("generations", "must be positive, got %d", c.Generations)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return domain.NewConfigurationError("mutation_rate", "must be in [0, 1], got %v", c.MutationRate)
	case c.ElitePercent < 0 || c.ElitePercent >= 1:
		return domain.NewConfigurationError("elite_percent", "must be in [0, 1), got %v", c.ElitePercent)
	case c.TournamentSize <= 0:
		return domain.NewConfigurationError("tournament_size", "must be positive, got %d", c.TournamentSize)
	case c.CorrelationWeight < 0:
		return domain.NewConfigurationError("correlation_weight", "must not be negative, got %v", c.CorrelationWeight)
	case c.DiversityPenalty < 0:
		return domain.NewConfigurationError("diversity_penalty", "must not be negative, got %v", c.DiversityPenalty)
	case c.MaxPerDecile < 0:
		return domain.NewConfigurationError("max_per_decile", "must not be negative, got %d", c.MaxPerDecile)
	}
	return nil
}

// eliteCount is the number of chromosomes carried unchanged into the next generation
func (c Config) eliteCount() int {
	n := int(c.ElitePercent * float64(c.PopulationSize))
	if n == 0 && c.ElitePercent > 0 {
		n = 1
	}
	if n > c.PopulationSize {
		n = c.PopulationSize
	}
	return n
}
