// Package backtest replays number selection strategies over historical draws
// without exposing any draw at or after the one being predicted.
package backtest

import (
	"sort"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultMinHistory is the number of draws a strategy sees before its first prediction
const DefaultMinHistory = 20

// PrizeTier pays Payout for a ticket matching exactly Matches numbers
type PrizeTier struct {
	Matches int             `yaml:"matches" json:"matches"`
	Payout  decimal.Decimal `yaml:"payout" json:"payout"`
}

// Paytable maps match counts to payouts. Match counts without a tier pay nothing.
type Paytable []PrizeTier

// Payout returns the prize for a match count
func (p Paytable) Payout(matches int) decimal.Decimal {
	for _, tier := range p {
		if tier.Matches == matches {
			return tier.Payout
		}
	}
	return decimal.Zero
}

// Validate checks that tiers are unique, reachable and non-negative
func (p Paytable) Validate(pick int) error {
	seen := make(map[int]bool, len(p))
	for _, tier := range p {
		if tier.Matches < 0 || tier.Matches > pick {
			return domain.NewConfigurationError("paytable", "tier matches must be in [0, %d], got %d", pick, tier.Matches)
		}
		if seen[tier.Matches] {
			return domain.NewConfigurationError("paytable", "duplicate tier for %d matches", tier.Matches)
		}
		if tier.Payout.IsNegative() {
			return domain.NewConfigurationError("paytable", "payout for %d matches must not be negative", tier.Matches)
		}
		seen[tier.Matches] = true
	}
	return nil
}

// Sorted returns the tiers ordered by match count
func (p Paytable) Sorted() Paytable {
	out := make(Paytable, len(p))
	copy(out, p)
	sort.Slice(out, func(i, j int) bool { return out[i].Matches < out[j].Matches })
	return out
}

// Config controls a backtest run
type Config struct {
	Paytable     Paytable        `json:"paytable"`
	Stake        decimal.Decimal `json:"stake"` // Cost of one ticket per trial
	StrategyName string          `json:"strategy_name"`
	PoolSize     int             `json:"pool_size"`
	Pick         int             `json:"pick"`
	// MinHistory is the index of the first predicted draw
	MinHistory int `json:"min_history"`
	// TrailingWindow limits the run to the last N draws; 0 replays everything after MinHistory
	TrailingWindow int `json:"trailing_window"`
	// FailFast aborts the run on the first strategy failure instead of counting it
	FailFast bool `json:"fail_fast"`
}

// DefaultConfig returns a configuration for lottery with the given paytable
func DefaultConfig(lottery domain.Lottery, paytable Paytable) Config {
	return Config{
		Paytable:   paytable,
		Stake:      lottery.TicketCost,
		PoolSize:   lottery.PoolSize,
		Pick:       lottery.Pick,
		MinHistory: DefaultMinHistory,
	}
}

// Validate rejects configurations a run cannot use
func (c Config) Validate() error {
	switch {
	case c.PoolSize <= 0:
		return domain.NewConfigurationError("pool_size", "must be positive, got %d", c.PoolSize)
	case c.Pick <= 0:
		return domain.NewConfigurationError("pick", "must be positive, got %d", c.Pick)
	case c.Pick > c.PoolSize:
		return domain.NewConfigurationError("pick", "must not exceed pool size %d, got %d", c.PoolSize, c.Pick)
	case c.MinHistory < 0:
		return domain.NewConfigurationError("min_history", "must not be negative, got %d", c.MinHistory)
	case c.TrailingWindow < 0:
		return domain.NewConfigurationError("trailing_window", "must not be negative, got %d", c.TrailingWindow)
	case !c.Stake.IsPositive():
		return domain.NewConfigurationError("stake", "must be positive, got %s", c.Stake)
	}
	return c.Paytable.Validate(c.Pick)
}

// startIndex returns the index of the first predicted draw for a history of n draws
func (c Config) startIndex(n int) int {
	start := c.MinHistory
	if c.TrailingWindow > 0 && n-c.TrailingWindow > start {
		start = n - c.TrailingWindow
	}
	return start
}
