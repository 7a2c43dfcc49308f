// Package scoring fuses frequency, temporal and correlation signals into per-number scores.
package scoring

import (
	"github.com/aristath/lottolab/internal/domain"
)

// DefaultFrequencyWindow is the number of recent draws used for frequency analysis
const DefaultFrequencyWindow = 100

// Thresholds discretize a frequency ratio into a temperature.
// Both are multiples of the expected ratio (numbers per draw / pool size).
type Thresholds struct {
	Hot  float64 `yaml:"hot" json:"hot"`
	Cold float64 `yaml:"cold" json:"cold"`
}

// DefaultThresholds returns hot at >= 1.2x expected and cold at <= 0.8x expected
func DefaultThresholds() Thresholds {
	return Thresholds{Hot: 1.2, Cold: 0.8}
}

// Validate checks that the thresholds are positive and ordered
func (t Thresholds) Validate() error {
	if t.Cold <= 0 {
		return domain.NewConfigurationError("thresholds.cold", "must be positive, got %v", t.Cold)
	}
	if t.Hot <= t.Cold {
		return domain.NewConfigurationError("thresholds.hot", "must be greater than cold (%v), got %v", t.Cold, t.Hot)
	}
	return nil
}

// Classify returns the temperature of ratio given the expected ratio.
// With no expectation (empty history) every number is warm.
func (t Thresholds) Classify(ratio, expected float64) domain.Temperature {
	if expected <= 0 {
		return domain.TemperatureWarm
	}
	switch {
	case ratio >= expected*t.Hot:
		return domain.TemperatureHot
	case ratio <= expected*t.Cold:
		return domain.TemperatureCold
	default:
		return domain.TemperatureWarm
	}
}

// AnalyzeFrequencies counts occurrences of every number in [1, poolSize] across the
// last window draws (all draws when window <= 0). Results are ordered by number.
func AnalyzeFrequencies(draws []domain.Draw, poolSize, window int, thresholds Thresholds) []domain.NumberFrequency {
	if poolSize <= 0 {
		return nil
	}

	recent := domain.TrailingWindow(draws, window)
	counts := make([]int, poolSize+1)
	drawn := 0
	for _, d := range recent {
		for _, n := range d.Numbers {
			if n >= 1 && n <= poolSize {
				counts[n]++
				drawn++
			}
		}
	}

	var expected float64
	if len(recent) > 0 {
		expected = float64(drawn) / float64(len(recent)) / float64(poolSize)
	}

	freqs := make([]domain.NumberFrequency, poolSize)
	for n := 1; n <= poolSize; n++ {
		ratio := windowRatio(counts[n], len(recent))
		freqs[n-1] = domain.NumberFrequency{
			Number:      n,
			Frequency:   counts[n],
			Ratio:       ratio,
			Temperature: thresholds.Classify(ratio, expected),
		}
	}
	return freqs
}

// windowRatio returns hits/size clamped to [0,1]; an empty window yields 0
func windowRatio(hits, size int) float64 {
	if size <= 0 {
		return 0
	}
	return clamp01(float64(hits) / float64(size))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
