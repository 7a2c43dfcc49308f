package scoring

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/correlation"
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

func frequencyDraws() []domain.Draw {
	return makeDraws([]int{1, 2}, []int{1, 3}, []int{1, 4}, []int{1, 5}, []int{2, 3})
}

func TestAnalyzeFrequencies(t *testing.T) {
	freqs := AnalyzeFrequencies(frequencyDraws(), 5, 0, DefaultThresholds())
	require.Len(t, freqs, 5)

	assert.Equal(t, 1, freqs[0].Number)
	assert.Equal(t, 4, freqs[0].Frequency)
	assert.InDelta(t, 0.8, freqs[0].Ratio, 1e-9)
	assert.Equal(t, domain.TemperatureHot, freqs[0].Temperature)

	assert.Equal(t, domain.TemperatureWarm, freqs[1].Temperature)
	assert.Equal(t, domain.TemperatureWarm, freqs[2].Temperature)
	assert.Equal(t, domain.TemperatureCold, freqs[3].Temperature)
	assert.Equal(t, domain.TemperatureCold, freqs[4].Temperature)
}

func TestAnalyzeFrequencies_Window(t *testing.T) {
	freqs := AnalyzeFrequencies(frequencyDraws(), 5, 2, DefaultThresholds())

	assert.Equal(t, 1, freqs[0].Frequency)
	assert.InDelta(t, 0.5, freqs[0].Ratio, 1e-9)
	assert.Equal(t, 0, freqs[3].Frequency)
}

func TestAnalyzeFrequencies_EmptyHistory(t *testing.T) {
	freqs := AnalyzeFrequencies(nil, 5, 10, DefaultThresholds())
	require.Len(t, freqs, 5)
	for _, f := range freqs {
		assert.Equal(t, 0.0, f.Ratio)
		assert.Equal(t, domain.TemperatureWarm, f.Temperature)
	}

	assert.Nil(t, AnalyzeFrequencies(frequencyDraws(), 0, 10, DefaultThresholds()))
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.True(t, domain.IsConfigurationError(Thresholds{Hot: 0.8, Cold: 1.2}.Validate()))
	assert.True(t, domain.IsConfigurationError(Thresholds{Hot: 1.2, Cold: 0}.Validate()))
}

func TestMultiTemporalAnalysis(t *testing.T) {
	var sets [][]int
	for i := 0; i < 6; i++ {
		sets = append(sets, []int{1, 2})
	}
	sets = append(sets, []int{7, 8}, []int{7, 9})
	draws := makeDraws(sets...)

	analysis := MultiTemporalAnalysis(7, draws, Windows{Short: 2, Medium: 4, Long: 8})

	assert.Equal(t, 1.0, analysis.ShortTerm)
	assert.Equal(t, 0.5, analysis.MediumTerm)
	assert.Equal(t, 0.25, analysis.LongTerm)
	assert.Greater(t, analysis.Trend, 0.0, "recent appearances should trend upwards")

	// Number 1 is high long-term and absent short-term
	faded := MultiTemporalAnalysis(1, draws, Windows{Short: 2, Medium: 4, Long: 8})
	assert.Equal(t, 0.0, faded.ShortTerm)
	assert.Equal(t, 0.75, faded.LongTerm)
	assert.Less(t, faded.Trend, 0.0)
}

func TestMultiTemporalAnalysis_ShortHistory(t *testing.T) {
	empty := MultiTemporalAnalysis(3, nil, DefaultWindows())
	assert.Equal(t, TemporalAnalysis{}, empty)

	// Windows larger than the history use what is available
	analysis := MultiTemporalAnalysis(1, frequencyDraws(), DefaultWindows())
	assert.InDelta(t, 0.8, analysis.ShortTerm, 1e-9)
	assert.InDelta(t, 0.8, analysis.LongTerm, 1e-9)
	assert.InDelta(t, 0.0, analysis.Trend, 1e-9)
}

func TestWeights(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	err := Weights{Frequency: -1, Temporal: 1, Correlation: 1}.Validate()
	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "weights.frequency", cfgErr.Field)

	assert.True(t, domain.IsConfigurationError(Weights{}.Validate()))

	for field, w := range map[string]Weights{
		"weights.frequency":   {Frequency: math.NaN(), Temporal: 1, Correlation: 1},
		"weights.temporal":    {Frequency: 1, Temporal: math.Inf(1), Correlation: 1},
		"weights.correlation": {Frequency: 1, Temporal: 1, Correlation: math.Inf(-1)},
	} {
		err := w.Validate()
		require.True(t, errors.As(err, &cfgErr), field)
		assert.Equal(t, field, cfgErr.Field)
		assert.Contains(t, err.Error(), "must be finite")
	}

	scorer, err := NewHybridScorer(DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	_, err = scorer.ScoreAll(frequencyDraws(), 10, nil, nil, Weights{Frequency: math.NaN(), Temporal: 1}, nil)
	assert.True(t, domain.IsConfigurationError(err))

	n := Weights{Frequency: 2, Temporal: 1, Correlation: 1}.Normalize()
	assert.InDelta(t, 0.5, n.Frequency, 1e-12)
	assert.InDelta(t, 1.0, n.Frequency+n.Temporal+n.Correlation, 1e-12)
}

func newScorer(t *testing.T, minDraws int) *HybridScorer {
	cfg := DefaultConfig()
	cfg.Windows = Windows{Short: 2, Medium: 3, Long: 5}
	cfg.MinDraws = minDraws
	scorer, err := NewHybridScorer(cfg, zerolog.Nop())
	require.NoError(t, err)
	return scorer
}

func TestHybridScorer_ScoreAll(t *testing.T) {
	draws := frequencyDraws()
	m := correlation.NewEngine(0, zerolog.Nop()).BuildCorrelationMap(draws, 5)
	scorer := newScorer(t, 3)

	scores, err := scorer.ScoreAll(draws, 5, nil, m, DefaultWeights(), nil)
	require.NoError(t, err)
	require.Len(t, scores, 5)

	// Number 1 dominates frequency and temporal signals
	assert.Equal(t, 1, scores[0].Number)
	assert.Equal(t, 1.0, scores[0].Components.Frequency)

	for i, s := range scores {
		assert.False(t, s.LowConfidence)
		assert.GreaterOrEqual(t, s.Components.Frequency, 0.0)
		assert.LessOrEqual(t, s.Components.Frequency, 1.0)
		assert.GreaterOrEqual(t, s.Components.Temporal, 0.0)
		assert.LessOrEqual(t, s.Components.Temporal, 1.0)
		assert.GreaterOrEqual(t, s.Components.Correlation, 0.0)
		assert.LessOrEqual(t, s.Components.Correlation, 1.0)
		assert.LessOrEqual(t, s.TotalScore, 1.0+1e-9)
		if i > 0 {
			assert.GreaterOrEqual(t, scores[i-1].TotalScore, s.TotalScore)
		}
	}
}

func TestHybridScorer_Deterministic(t *testing.T) {
	draws := frequencyDraws()
	m := correlation.NewEngine(0, zerolog.Nop()).BuildCorrelationMap(draws, 5)
	scorer := newScorer(t, 3)

	first, err := scorer.ScoreAll(draws, 5, nil, m, DefaultWeights(), []int{2})
	require.NoError(t, err)
	second, err := scorer.ScoreAll(draws, 5, nil, m, DefaultWeights(), []int{2})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHybridScorer_ScoreNumber(t *testing.T) {
	draws := frequencyDraws()
	m := correlation.NewEngine(0, zerolog.Nop()).BuildCorrelationMap(draws, 5)
	scorer := newScorer(t, 10)

	t.Run("low confidence on short history", func(t *testing.T) {
		score, err := scorer.ScoreNumber(1, draws, 5, nil, m, DefaultWeights(), nil)
		require.NoError(t, err)
		assert.True(t, score.LowConfidence)
		assert.Equal(t, 1, score.Number)
	})

	t.Run("reference set drives correlation", func(t *testing.T) {
		// (2,3) is the strongest pair in the map
		only := Weights{Correlation: 1}
		score, err := scorer.ScoreNumber(3, draws, 5, nil, m, only, []int{2})
		require.NoError(t, err)
		assert.InDelta(t, m.Lookup(2, 3)/m.Max(), score.TotalScore, 1e-9)
	})

	t.Run("frequency only weights", func(t *testing.T) {
		score, err := scorer.ScoreNumber(2, draws, 5, nil, m, Weights{Frequency: 3}, nil)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, score.TotalScore, 1e-9)
	})

	t.Run("explicit frequencies are used", func(t *testing.T) {
		freqs := []domain.NumberFrequency{{Number: 5, Ratio: 0.9}, {Number: 1, Ratio: 0.3}}
		score, err := scorer.ScoreNumber(5, draws, 5, freqs, m, Weights{Frequency: 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score.TotalScore)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := scorer.ScoreNumber(6, draws, 5, nil, m, DefaultWeights(), nil)
		assert.True(t, domain.IsConfigurationError(err))

		_, err = scorer.ScoreNumber(1, draws, 5, nil, m, Weights{Temporal: -0.1, Frequency: 1}, nil)
		assert.True(t, domain.IsConfigurationError(err))

		_, err = scorer.ScoreAll(draws, 0, nil, m, DefaultWeights(), nil)
		assert.True(t, domain.IsConfigurationError(err))
	})
}

func TestHybridScorer_EmptyHistory(t *testing.T) {
	scorer := newScorer(t, 10)

	scores, err := scorer.ScoreAll(nil, 6, nil, nil, DefaultWeights(), nil)
	require.NoError(t, err)
	require.Len(t, scores, 6)

	for i, s := range scores {
		assert.Equal(t, i+1, s.Number)
		assert.Equal(t, 0.0, s.TotalScore)
		assert.True(t, s.LowConfidence)
	}
}

func TestNewHybridScorer_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Windows.Short = 0

	_, err := NewHybridScorer(cfg, zerolog.Nop())
	assert.True(t, domain.IsConfigurationError(err))
}

func TestTopNumbers(t *testing.T) {
	scores := []domain.NumberScore{{Number: 9}, {Number: 3}, {Number: 5}}
	assert.Equal(t, []int{3, 9}, TopNumbers(scores, 2))
	assert.Equal(t, []int{3, 5, 9}, TopNumbers(scores, 10))
}
