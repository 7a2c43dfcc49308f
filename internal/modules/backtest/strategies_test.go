package backtest

import (
	"context"
	"testing"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var miniLottery = domain.Lottery{ID: "mini", Name: "Mini", PoolSize: 25, Pick: 5, TicketCost: testConfig(25, 5).Stake}

func hybridDeps(t *testing.T) (*scoring.HybridScorer, *correlation.Engine) {
	scorer, err := scoring.NewHybridScorer(scoring.DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return scorer, correlation.NewEngine(0, zerolog.Nop())
}

func TestStrategies_RequireHistory(t *testing.T) {
	scorer, engine := hybridDeps(t)
	params := HybridParams{Weights: scoring.DefaultWeights()}

	for name, strategy := range map[string]StrategyFunc{
		StrategyMostFrequent: MostFrequent(25, 5, 10),
		StrategyHybridTop:    HybridTop(scorer, engine, miniLottery, params),
		StrategyGenetic:      Genetic(scorer, engine, miniLottery, params, genetic.DefaultConfig(0, 0), zerolog.Nop()),
		StrategyCorrelated:   Correlated(scorer, engine, miniLottery, params),
	} {
		_, err := strategy(nil)
		assert.ErrorIs(t, err, ErrNoHistory, name)
	}
}

func TestMostFrequent_Window(t *testing.T) {
	draws := makeDraws([]int{1, 2}, []int{1, 2}, []int{1, 2}, []int{5, 6}, []int{5, 7})

	all, err := MostFrequent(10, 2, 0)(draws)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, all)

	recent, err := MostFrequent(10, 2, 2)(draws)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, recent)
}

func TestHybridTop_FindsPlantedNumber(t *testing.T) {
	scorer, engine := hybridDeps(t)
	cfg := testConfig(25, 5)
	cfg.MinHistory = 20
	cfg.StrategyName = StrategyHybridTop

	strategy := HybridTop(scorer, engine, miniLottery, HybridParams{Weights: scoring.DefaultWeights(), Window: 30})
	result, err := NewEngine(zerolog.Nop()).Run(context.Background(), strategy, plantedHistory(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 30, result.TotalTests)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Greater(t, result.NumberSelections[7], result.TotalTests/2)
}

func TestCorrelated_FillsWithPartnersOfTheSeed(t *testing.T) {
	scorer, engine := hybridDeps(t)
	lottery := domain.Lottery{ID: "twelve", PoolSize: 12, Pick: 4}
	params := HybridParams{Weights: scoring.DefaultWeights()}

	a, b, c := []int{1, 2, 3, 4}, []int{1, 2, 5, 6}, []int{7, 8, 9, 10}
	history := makeDraws(a, c, b, c, a, c, b, c, a, b)

	predicted, err := Correlated(scorer, engine, lottery, params)(history)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, predicted)

	// 7 to 10 outscore the partners of 1 and 2 but never appear with them
	top, err := HybridTop(scorer, engine, lottery, params)(history)
	require.NoError(t, err)
	assert.Contains(t, top, 1)
	assert.Contains(t, top, 2)
	assert.NotEqual(t, predicted, top)
}

func TestCorrelated_SparseMapFallsBackToScores(t *testing.T) {
	scorer, engine := hybridDeps(t)
	lottery := domain.Lottery{ID: "ten", PoolSize: 10, Pick: 4}

	predicted, err := Correlated(scorer, engine, lottery, HybridParams{Weights: scoring.DefaultWeights()})(makeDraws([]int{8, 2, 6, 4}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6, 8}, predicted)

	// Only 1 and 2 always appear together, so the seed has no partner left to add
	strict := correlation.NewEngine(0.99, zerolog.Nop())
	history := makeDraws([]int{1, 2, 3, 4}, []int{1, 2, 5, 6}, []int{1, 2, 3, 7})
	params := HybridParams{Weights: scoring.DefaultWeights()}

	predicted, err = Correlated(scorer, strict, lottery, params)(history)
	require.NoError(t, err)
	top, err := HybridTop(scorer, strict, lottery, params)(history)
	require.NoError(t, err)
	assert.Equal(t, top, predicted)
	assert.NoError(t, domain.ValidateNumberSet(predicted, 10, 4))
}

func TestCorrelated_Backtest(t *testing.T) {
	scorer, engine := hybridDeps(t)
	cfg := testConfig(25, 5)
	cfg.MinHistory = 40
	cfg.StrategyName = StrategyCorrelated

	strategy := Correlated(scorer, engine, miniLottery, HybridParams{Weights: scoring.DefaultWeights(), Window: 30})
	result, err := NewEngine(zerolog.Nop()).Run(context.Background(), strategy, plantedHistory(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalTests)
	assert.Equal(t, 0, result.ErrorCount)
	for _, trial := range result.Trials {
		assert.NoError(t, domain.ValidateNumberSet(trial.Predicted, 25, 5))
	}
	assert.Greater(t, result.NumberSelections[7], result.TotalTests/2)
}

func TestGenetic_ProducesValidReproduciblePredictions(t *testing.T) {
	scorer, engine := hybridDeps(t)
	gaCfg := genetic.DefaultConfig(0, 0)
	gaCfg.PopulationSize = 16
	gaCfg.Generations = 4
	gaCfg.Seed = 11

	cfg := testConfig(25, 5)
	cfg.MinHistory = 44
	cfg.StrategyName = StrategyGenetic

	run := func() *domain.BacktestResult {
		strategy := Genetic(scorer, engine, miniLottery, HybridParams{Weights: scoring.DefaultWeights()}, gaCfg, zerolog.Nop())
		result, err := NewEngine(zerolog.Nop()).Run(context.Background(), strategy, plantedHistory(), cfg)
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	require.Equal(t, 6, first.TotalTests)
	assert.Equal(t, 0, first.ErrorCount)
	for i := range first.Trials {
		assert.NoError(t, domain.ValidateNumberSet(first.Trials[i].Predicted, 25, 5))
		assert.Equal(t, first.Trials[i].Predicted, second.Trials[i].Predicted)
	}
}

func TestRandom(t *testing.T) {
	a := Random(60, 6, 3)
	b := Random(60, 6, 3)

	for i := 0; i < 20; i++ {
		first, err := a(nil)
		require.NoError(t, err)
		second, _ := b(nil)

		assert.NoError(t, domain.ValidateNumberSet(first, 60, 6))
		assert.IsIncreasing(t, first)
		assert.Equal(t, first, second)
	}
}
