package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/backtest"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EngineConfig is the YAML tuning file for the engine.
// Every section is optional; missing values keep their defaults.
type EngineConfig struct {
	Weights     scoring.Weights   `yaml:"weights"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Genetic     genetic.Config    `yaml:"genetic"`
	Lotteries   []LotteryConfig   `yaml:"lotteries"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Scoring     scoring.Config    `yaml:"scoring"`
}

// CorrelationConfig tunes the correlation engine
type CorrelationConfig struct {
	Threshold float64 `yaml:"threshold"`
	Window    int     `yaml:"window"` // Trailing draws analysed; 0 uses the full history
}

// BacktestConfig holds run defaults
type BacktestConfig struct {
	Strategy       string `yaml:"strategy"`
	MinHistory     int    `yaml:"min_history"`
	TrailingWindow int    `yaml:"trailing_window"`
}

// LotteryConfig declares a lottery and its paytable. Money values are decimal strings.
type LotteryConfig struct {
	Paytable   map[int]string `yaml:"paytable"` // matches -> payout
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	TicketCost string         `yaml:"ticket_cost"`
	PoolSize   int            `yaml:"pool_size"`
	Pick       int            `yaml:"pick"`
}

// DefaultEngineConfig returns the built-in tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: scoring.DefaultWeights(),
		Scoring: scoring.DefaultConfig(),
		Correlation: CorrelationConfig{
			Threshold: correlation.DefaultSignificanceThreshold,
			Window:    500,
		},
		Genetic: genetic.DefaultConfig(0, 0),
		Backtest: BacktestConfig{
			Strategy:   backtest.StrategyHybridTop,
			MinHistory: backtest.DefaultMinHistory,
		},
	}
}

// LoadEngineConfig reads the YAML file at path over the defaults.
// An empty path returns the defaults.
func LoadEngineConfig(path string) (EngineConfig, error) {
	if path == "" {
		return DefaultEngineConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read engine config: %w", err)
	}
	return ParseEngineConfig(data)
}

// ParseEngineConfig decodes YAML over the defaults and validates the result.
// Unknown keys are rejected.
func ParseEngineConfig(data []byte) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return EngineConfig{}, fmt.Errorf("failed to parse engine config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// Validate checks every section
func (c EngineConfig) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Correlation.Threshold <= 0 || c.Correlation.Threshold >= 1 {
		return domain.NewConfigurationError("correlation.threshold", "must be in (0, 1), got %v", c.Correlation.Threshold)
	}
	if c.Correlation.Window < 0 {
		return domain.NewConfigurationError("correlation.window", "must not be negative, got %d", c.Correlation.Window)
	}
	if c.Backtest.MinHistory < 0 {
		return domain.NewConfigurationError("backtest.min_history", "must not be negative, got %d", c.Backtest.MinHistory)
	}

	// GA parameters are checked against a nominal shape; the real shape comes from the lottery
	ga := c.Genetic
	ga.PoolSize, ga.Pick = 60, 6
	if err := ga.Validate(); err != nil {
		return err
	}

	for _, l := range c.Lotteries {
		if _, err := l.Lottery(); err != nil {
			return err
		}
		if _, err := l.PrizeTable(); err != nil {
			return err
		}
	}
	return nil
}

// GeneticConfig returns the GA parameters for a lottery shape
func (c EngineConfig) GeneticConfig(lottery domain.Lottery) genetic.Config {
	cfg := c.Genetic
	cfg.PoolSize = lottery.PoolSize
	cfg.Pick = lottery.Pick
	return cfg
}

// Lottery converts the declaration into a domain lottery
func (l LotteryConfig) Lottery() (domain.Lottery, error) {
	cost, err := decimal.NewFromString(l.TicketCost)
	if err != nil {
		return domain.Lottery{}, domain.NewConfigurationError("lottery.ticket_cost", "invalid amount %q for %s", l.TicketCost, l.ID)
	}
	lottery := domain.Lottery{
		ID:         l.ID,
		Name:       l.Name,
		PoolSize:   l.PoolSize,
		Pick:       l.Pick,
		TicketCost: cost,
	}
	if err := lottery.Validate(); err != nil {
		return domain.Lottery{}, err
	}
	return lottery, nil
}

// PrizeTable parses the paytable, ordered by match count
func (l LotteryConfig) PrizeTable() (backtest.Paytable, error) {
	table := make(backtest.Paytable, 0, len(l.Paytable))
	for matches, raw := range l.Paytable {
		payout, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, domain.NewConfigurationError("lottery.paytable", "invalid payout %q for %d matches", raw, matches)
		}
		table = append(table, backtest.PrizeTier{Matches: matches, Payout: payout})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].Matches < table[j].Matches })

	if err := table.Validate(l.Pick); err != nil {
		return nil, err
	}
	return table, nil
}

// Register adds the declared lotteries to registry and returns their paytables by ID
func (c EngineConfig) Register(registry *domain.LotteryRegistry) (map[string]backtest.Paytable, error) {
	paytables := make(map[string]backtest.Paytable, len(c.Lotteries))
	for _, l := range c.Lotteries {
		lottery, err := l.Lottery()
		if err != nil {
			return nil, err
		}
		table, err := l.PrizeTable()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(lottery); err != nil {
			return nil, err
		}
		paytables[lottery.ID] = table
	}
	return paytables, nil
}
