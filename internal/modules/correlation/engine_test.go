package correlation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDraws(sets ...[]int) []domain.Draw {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	draws := make([]domain.Draw, len(sets))
	for i, s := range sets {
		draws[i] = domain.NewDraw(i+1, base.AddDate(0, 0, i), s)
	}
	return draws
}

func scenarioDraws() []domain.Draw {
	return makeDraws([]int{1, 2, 3}, []int{2, 3, 4}, []int{1, 3, 5})
}

func TestBuildCorrelationMap_Scenario(t *testing.T) {
	engine := NewEngine(0, zerolog.Nop())
	m := engine.BuildCorrelationMap(scenarioDraws(), 5)

	assert.InDelta(t, 2.0/3.0, m.Lookup(1, 3), 1e-9)
	assert.InDelta(t, 2.0/3.0, m.Lookup(2, 3), 1e-9)
	assert.InDelta(t, 1.0/3.0, m.Lookup(1, 2), 1e-9)
	assert.InDelta(t, 0.5, m.Lookup(2, 4), 1e-9)
	assert.InDelta(t, 0.5, m.Lookup(1, 5), 1e-9)

	// 4 and 5 never co-occur
	assert.Equal(t, 0.0, m.Lookup(4, 5))
	assert.Equal(t, 0.0, m.Lookup(3, 3))

	assert.InDelta(t, 2.0/3.0, m.Max(), 1e-9)
	assert.Equal(t, 5, m.PoolSize())
	assert.Equal(t, DefaultSignificanceThreshold, m.Threshold())
}

func TestBuildCorrelationMap_SymmetricAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var sets [][]int
	for i := 0; i < 80; i++ {
		perm := rng.Perm(30)[:6]
		set := make([]int, len(perm))
		for j, p := range perm {
			set[j] = p + 1
		}
		sets = append(sets, set)
	}

	engine := NewEngine(0.05, zerolog.Nop())
	m := engine.BuildCorrelationMap(makeDraws(sets...), 30)
	require.Greater(t, m.Len(), 0)

	for a := 1; a <= 30; a++ {
		for b := 1; b <= 30; b++ {
			v := m.Lookup(a, b)
			assert.Equal(t, v, m.Lookup(b, a))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	for _, e := range m.Entries() {
		assert.Less(t, e.NumberA, e.NumberB)
		assert.Greater(t, e.Correlation, 0.05)
	}
}

func TestBuildCorrelationMap_Idempotent(t *testing.T) {
	engine := NewEngine(0, zerolog.Nop())
	draws := scenarioDraws()

	first := engine.BuildCorrelationMap(draws, 5)
	second := engine.BuildCorrelationMap(draws, 5)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Entries(), second.Entries())
}

func TestBuildCorrelationMap_ThresholdFilters(t *testing.T) {
	engine := NewEngine(0.4, zerolog.Nop())
	m := engine.BuildCorrelationMap(scenarioDraws(), 5)

	// 1/3 pairs fall below the threshold
	assert.Equal(t, 0.0, m.Lookup(1, 2))
	assert.Equal(t, 0.0, m.Lookup(3, 4))
	assert.Greater(t, m.Lookup(1, 3), 0.0)
	assert.Equal(t, 4, m.Len())
}

func TestBuildCorrelationMap_IgnoresInvalidNumbers(t *testing.T) {
	engine := NewEngine(0, zerolog.Nop())
	draws := []domain.Draw{
		{ContestNumber: 1, Numbers: []int{0, 1, 2, 2, 9}},
		{ContestNumber: 2, Numbers: []int{1, 2}},
	}

	m := engine.BuildCorrelationMap(draws, 5)

	assert.Equal(t, 1.0, m.Lookup(1, 2))
	assert.Equal(t, 1, m.Len())
}

func TestBuildCorrelationMap_EmptyInput(t *testing.T) {
	engine := NewEngine(0, zerolog.Nop())

	assert.Equal(t, 0, engine.BuildCorrelationMap(nil, 60).Len())
	assert.Equal(t, 0, engine.BuildCorrelationMap(scenarioDraws(), 1).Len())
}

func TestTopCorrelated(t *testing.T) {
	m := NewEngine(0, zerolog.Nop()).BuildCorrelationMap(scenarioDraws(), 5)

	// 1 and 2 tie at 2/3 and are ordered numerically
	assert.Equal(t, []int{1, 2}, TopCorrelated(3, m, 5, 2))
	assert.Equal(t, []int{1, 2, 4, 5}, TopCorrelated(3, m, 5, 10))
	assert.Equal(t, []int{2, 3}, TopCorrelated(4, m, 5, 5))
	assert.Empty(t, TopCorrelated(3, m, 5, 0))
	assert.Empty(t, TopCorrelated(3, nil, 5, 3))
}

func TestSelectCorrelatedSet(t *testing.T) {
	m := NewEngine(0, zerolog.Nop()).BuildCorrelationMap(scenarioDraws(), 5)

	t.Run("strongest partners", func(t *testing.T) {
		assert.Equal(t, []int{1, 2}, SelectCorrelatedSet([]int{3}, m, 2, 5, nil, nil))
	})

	t.Run("excluded numbers are skipped", func(t *testing.T) {
		assert.Equal(t, []int{2, 4}, SelectCorrelatedSet([]int{3}, m, 2, 5, []int{1}, nil))
	})

	t.Run("fills from unused numbers when correlation is sparse", func(t *testing.T) {
		empty := NewEngine(0, zerolog.Nop()).BuildCorrelationMap(nil, 5)
		assert.Equal(t, []int{2, 3}, SelectCorrelatedSet([]int{1}, empty, 2, 5, nil, nil))

		got := SelectCorrelatedSet([]int{1}, empty, 3, 5, nil, rand.New(rand.NewSource(1)))
		assert.Len(t, got, 3)
		assert.NotContains(t, got, 1)
		assert.IsIncreasing(t, got)
	})

	t.Run("zero count", func(t *testing.T) {
		assert.Empty(t, SelectCorrelatedSet([]int{3}, m, 0, 5, nil, nil))
	})
}

func TestSetCorrelationScore(t *testing.T) {
	m := NewEngine(0, zerolog.Nop()).BuildCorrelationMap(scenarioDraws(), 5)

	assert.InDelta(t, 5.0/9.0, SetCorrelationScore([]int{1, 2, 3}, m), 1e-9)
	assert.Equal(t, 0.0, SetCorrelationScore([]int{1}, m))
	assert.Equal(t, 0.0, SetCorrelationScore([]int{4, 5}, m))
}

func TestMeanCorrelation(t *testing.T) {
	m := NewEngine(0, zerolog.Nop()).BuildCorrelationMap(scenarioDraws(), 5)

	assert.InDelta(t, 0.5, MeanCorrelation(3, []int{1, 3, 4}, m), 1e-9)
	assert.Equal(t, 0.0, MeanCorrelation(3, []int{3}, m))
	assert.InDelta(t, 2.0/3.0, StrongestPartnersMean(3, m, 5, 2), 1e-9)
	assert.InDelta(t, (0.5+1.0/3.0)/4, StrongestPartnersMean(5, m, 5, 4), 1e-9)
}
