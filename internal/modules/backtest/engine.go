package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// StrategyFunc predicts the next draw from strictly earlier draws.
// prior is a read-only view; its capacity is capped so appends cannot reach later draws.
type StrategyFunc func(prior []domain.Draw) ([]int, error)

// StrategyExecutionError is a strategy failure on a single trial
type StrategyExecutionError struct {
	Err     error
	Contest int
}

func (e *StrategyExecutionError) Error() string {
	return fmt.Sprintf("strategy failed predicting contest %d: %v", e.Contest, e.Err)
}

func (e *StrategyExecutionError) Unwrap() error {
	return e.Err
}

// Engine runs backtests
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a backtest engine
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "backtest_engine").Logger()}
}

// Run replays strategy over draws in contest order. At step i the strategy only
// sees draws[:i]. Contest numbers must be unique, otherwise a draw could be
// predicted from another draw of the same contest. Failed predictions count as zero-match trials unless cfg.FailFast
// is set, in which case the run stops with a *StrategyExecutionError.
// ctx is checked between trials.
func (e *Engine) Run(ctx context.Context, strategy StrategyFunc, draws []domain.Draw, cfg Config) (*domain.BacktestResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, domain.NewConfigurationError("strategy", "must not be nil")
	}

	history := domain.NormalizeDraws(draws)
	if err := domain.ValidateContestOrder(history); err != nil {
		return nil, domain.NewConfigurationError("draws", "%v", err)
	}

	result := &domain.BacktestResult{
		RunID:            uuid.New().String(),
		StrategyName:     cfg.StrategyName,
		NumberSelections: make(map[int]int),
		TotalPayoff:      decimal.Zero,
		TotalCost:        decimal.Zero,
	}

	log := e.log.With().Str("run_id", result.RunID).Str("strategy", cfg.StrategyName).Logger()

	start := cfg.startIndex(len(history))
	if start >= len(history) {
		log.Debug().
			Int("draws", len(history)).
			Int("start", start).
			Msg("Not enough draws to run any trial")
		return result, nil
	}

	returns := make([]float64, 0, len(history)-start)
	var accuracySum float64
	cumulative := decimal.Zero

	for i := start; i < len(history); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled after %d trials: %w", result.TotalTests, err)
		}

		target := history[i]
		trial := domain.TrialDetail{
			ContestNumber: target.ContestNumber,
			Date:          target.Date,
			Drawn:         target.Numbers,
			Payout:        decimal.Zero,
		}

		predicted, err := predict(strategy, history[:i:i], cfg)
		if err != nil {
			execErr := &StrategyExecutionError{Contest: target.ContestNumber, Err: err}
			if cfg.FailFast {
				log.Warn().Err(execErr).Msg("Backtest aborted on strategy failure")
				return nil, execErr
			}
			result.ErrorCount++
			result.Errors = append(result.Errors, execErr.Error())
			trial.Error = err.Error()
		} else {
			trial.Predicted = predicted
			trial.Matches = countMatches(predicted, target)
			trial.Payout = cfg.Paytable.Payout(trial.Matches)
			for _, n := range predicted {
				result.NumberSelections[n]++
			}
		}

		net := trial.Payout.Sub(cfg.Stake)
		cumulative = cumulative.Add(net)
		trial.Cumulative = cumulative
		trial.Return = net.Div(cfg.Stake).InexactFloat64()

		result.TotalTests++
		result.TotalCost = result.TotalCost.Add(cfg.Stake)
		result.TotalPayoff = result.TotalPayoff.Add(trial.Payout)
		if trial.Payout.IsPositive() {
			result.SuccessfulPredictions++
		}
		accuracySum += float64(trial.Matches) / float64(cfg.Pick)
		returns = append(returns, trial.Return)
		result.Trials = append(result.Trials, trial)
	}

	result.AverageAccuracy = accuracySum / float64(result.TotalTests)
	result.Profitability = result.TotalPayoff.Sub(result.TotalCost).Div(result.TotalCost).InexactFloat64()
	result.MaxDrawdown = maxDrawdown(result.Trials)
	result.SharpeRatio = sharpeRatio(returns)

	log.Info().
		Int("trials", result.TotalTests).
		Int("successful", result.SuccessfulPredictions).
		Int("errors", result.ErrorCount).
		Float64("accuracy", result.AverageAccuracy).
		Float64("profitability", result.Profitability).
		Msg("Backtest completed")

	return result, nil
}

// predict calls the strategy, turning panics and invalid sets into errors
func predict(strategy StrategyFunc, prior []domain.Draw, cfg Config) (numbers []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			numbers = nil
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	numbers, err = strategy(prior)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateNumberSet(numbers, cfg.PoolSize, cfg.Pick); err != nil {
		return nil, fmt.Errorf("invalid prediction: %w", err)
	}

	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)
	return sorted, nil
}

func countMatches(predicted []int, drawn domain.Draw) int {
	matches := 0
	for _, n := range predicted {
		if drawn.Contains(n) {
			matches++
		}
	}
	return matches
}

// maxDrawdown is the largest peak-to-trough decline of the cumulative net result,
// measured in currency from a starting balance of zero
func maxDrawdown(trials []domain.TrialDetail) float64 {
	peak := decimal.Zero
	maxDD := decimal.Zero
	for _, t := range trials {
		if t.Cumulative.GreaterThan(peak) {
			peak = t.Cumulative
		}
		if dd := peak.Sub(t.Cumulative); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.InexactFloat64()
}

// sharpeRatio is mean trial return over its standard deviation; 0 without variance
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std
}
