// Package correlation computes pairwise co-occurrence correlation between drawn numbers.
package correlation

import (
	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultSignificanceThreshold is the minimum correlation a pair needs to be retained
const DefaultSignificanceThreshold = 0.05

// Engine builds sparse correlation maps from draw history.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	threshold float64
	log       zerolog.Logger
}

// NewEngine creates a correlation engine. A threshold <= 0 uses DefaultSignificanceThreshold.
func NewEngine(threshold float64, log zerolog.Logger) *Engine {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultSignificanceThreshold
	}
	return &Engine{
		threshold: threshold,
		log:       log.With().Str("component", "correlation_engine").Logger(),
	}
}

// Threshold returns the significance threshold
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// BuildCorrelationMap computes the Jaccard-style correlation of every pair in [1, poolSize]:
//
//	corr(i,j) = coOccur(i,j) / (count(i) + count(j) - coOccur(i,j))
//
// Pairs with no history for either number read as 0. Only pairs strictly above the
// threshold are kept. Numbers outside the pool and repeated numbers inside a draw are ignored.
func (e *Engine) BuildCorrelationMap(draws []domain.Draw, poolSize int) *Map {
	m := newMap(poolSize, e.threshold)
	if poolSize < 2 || len(draws) == 0 {
		e.log.Debug().
			Int("draws", len(draws)).
			Int("pool_size", poolSize).
			Msg("Insufficient data for correlation, returning empty map")
		return m
	}

	stride := poolSize + 1
	counts := make([]int, stride)
	coOccur := make([]int, stride*stride)
	present := make([]bool, stride)
	numbers := make([]int, 0, 16)

	for _, draw := range draws {
		numbers = numbers[:0]
		for _, n := range draw.Numbers {
			if n < 1 || n > poolSize || present[n] {
				continue
			}
			present[n] = true
			numbers = append(numbers, n)
		}

		for i, a := range numbers {
			counts[a]++
			for _, b := range numbers[i+1:] {
				lo, hi := a, b
				if lo > hi {
					lo, hi = hi, lo
				}
				coOccur[lo*stride+hi]++
			}
		}

		for _, n := range numbers {
			present[n] = false
		}
	}

	for i := 1; i <= poolSize; i++ {
		for j := i + 1; j <= poolSize; j++ {
			co := coOccur[i*stride+j]
			if co == 0 {
				continue
			}
			union := counts[i] + counts[j] - co
			if union <= 0 {
				continue
			}
			value := float64(co) / float64(union)
			if value > e.threshold {
				m.set(i, j, clamp01(value))
			}
		}
	}

	e.log.Debug().
		Int("draws", len(draws)).
		Int("pool_size", poolSize).
		Int("pairs", m.Len()).
		Float64("threshold", e.threshold).
		Msg("Built correlation map")

	return m
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
