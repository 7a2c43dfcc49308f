package backtest

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// Built-in strategy names
const (
	StrategyMostFrequent = "most_frequent"
	StrategyHybridTop    = "hybrid_top"
	StrategyGenetic      = "genetic"
	StrategyCorrelated   = "correlated"
	StrategyRandom       = "random"
)

// ErrNoHistory is returned by strategies that need at least one prior draw
var ErrNoHistory = errors.New("no prior draws available")

// MostFrequent picks the pick numbers drawn most often in the last window prior
// draws (all prior draws when window <= 0). Ties go to the lower number.
func MostFrequent(poolSize, pick, window int) StrategyFunc {
	return func(prior []domain.Draw) ([]int, error) {
		if len(prior) == 0 {
			return nil, ErrNoHistory
		}
		freqs := scoring.AnalyzeFrequencies(prior, poolSize, window, scoring.DefaultThresholds())
		sort.SliceStable(freqs, func(i, j int) bool {
			if freqs[i].Frequency != freqs[j].Frequency {
				return freqs[i].Frequency > freqs[j].Frequency
			}
			return freqs[i].Number < freqs[j].Number
		})

		numbers := make([]int, pick)
		for i := 0; i < pick; i++ {
			numbers[i] = freqs[i].Number
		}
		sort.Ints(numbers)
		return numbers, nil
	}
}

// HybridParams configure the score-driven strategies
type HybridParams struct {
	Weights scoring.Weights
	// Window limits the history the strategy analyses; 0 uses all prior draws
	Window int
}

// HybridTop picks the pick highest hybrid scores computed from prior draws only
func HybridTop(scorer *scoring.HybridScorer, engine *correlation.Engine, lottery domain.Lottery, params HybridParams) StrategyFunc {
	return func(prior []domain.Draw) ([]int, error) {
		if len(prior) == 0 {
			return nil, ErrNoHistory
		}
		recent := domain.TrailingWindow(prior, params.Window)
		m := engine.BuildCorrelationMap(recent, lottery.PoolSize)
		scores, err := scorer.ScoreAll(recent, lottery.PoolSize, nil, m, params.Weights, nil)
		if err != nil {
			return nil, err
		}
		return scoring.TopNumbers(scores, lottery.Pick), nil
	}
}

// Correlated seeds the prediction with the top half of the hybrid ranking and
// fills the remaining slots with the numbers that co-occur most with that seed.
// Slots the correlation map cannot fill go to the next best hybrid scores.
func Correlated(scorer *scoring.HybridScorer, engine *correlation.Engine, lottery domain.Lottery, params HybridParams) StrategyFunc {
	seedSize := (lottery.Pick + 1) / 2

	return func(prior []domain.Draw) ([]int, error) {
		if len(prior) == 0 {
			return nil, ErrNoHistory
		}
		recent := domain.TrailingWindow(prior, params.Window)
		m := engine.BuildCorrelationMap(recent, lottery.PoolSize)
		scores, err := scorer.ScoreAll(recent, lottery.PoolSize, nil, m, params.Weights, nil)
		if err != nil {
			return nil, err
		}

		base := scoring.TopNumbers(scores, seedSize)
		chosen := make(map[int]bool, lottery.Pick)
		numbers := make([]int, 0, lottery.Pick)
		for _, n := range base {
			chosen[n] = true
			numbers = append(numbers, n)
		}

		for _, n := range correlation.SelectCorrelatedSet(base, m, lottery.Pick-len(base), lottery.PoolSize, nil, nil) {
			if correlation.MeanCorrelation(n, base, m) > 0 {
				chosen[n] = true
				numbers = append(numbers, n)
			}
		}
		for _, s := range scores {
			if len(numbers) == lottery.Pick {
				break
			}
			if !chosen[s.Number] {
				chosen[s.Number] = true
				numbers = append(numbers, s.Number)
			}
		}

		sort.Ints(numbers)
		return numbers, nil
	}
}

// Genetic runs the optimizer on scores computed from prior draws and predicts its
// best candidate. With a non-zero seed each trial is seeded from the seed and the
// history length, so reruns are reproducible.
func Genetic(scorer *scoring.HybridScorer, engine *correlation.Engine, lottery domain.Lottery, params HybridParams, cfg genetic.Config, log zerolog.Logger) StrategyFunc {
	cfg.PoolSize = lottery.PoolSize
	cfg.Pick = lottery.Pick

	return func(prior []domain.Draw) ([]int, error) {
		if len(prior) == 0 {
			return nil, ErrNoHistory
		}
		recent := domain.TrailingWindow(prior, params.Window)
		m := engine.BuildCorrelationMap(recent, lottery.PoolSize)
		scores, err := scorer.ScoreAll(recent, lottery.PoolSize, nil, m, params.Weights, nil)
		if err != nil {
			return nil, err
		}

		trialCfg := cfg
		if cfg.Seed != 0 {
			trialCfg.Seed = cfg.Seed + int64(len(prior))
		}
		opt, err := genetic.NewOptimizer(trialCfg, genetic.NewFitnessInputs(scores, m, lottery.PoolSize), log)
		if err != nil {
			return nil, err
		}
		candidates, err := opt.Run(1)
		if err != nil {
			return nil, err
		}
		return candidates[0].Numbers, nil
	}
}

// Random predicts uniformly random sets; it is the baseline other strategies should beat.
// A zero seed seeds from the clock.
func Random(poolSize, pick int, seed int64) StrategyFunc {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	return func(_ []domain.Draw) ([]int, error) {
		return genetic.Repair(nil, poolSize, pick, rng), nil
	}
}
