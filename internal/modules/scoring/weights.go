package scoring

import (
	"math"

	"github.com/aristath/lottolab/internal/domain"
)

// Weights of the hybrid score components
type Weights struct {
	Frequency   float64 `yaml:"frequency" json:"frequency"`
	Temporal    float64 `yaml:"temporal" json:"temporal"`
	Correlation float64 `yaml:"correlation" json:"correlation"`
}

// DefaultWeights returns 40% frequency, 30% temporal, 30% correlation
func DefaultWeights() Weights {
	return Weights{Frequency: 0.4, Temporal: 0.3, Correlation: 0.3}
}

// Validate checks that weights are finite, non-negative and not all zero
func (w Weights) Validate() error {
	for _, c := range []struct {
		field string
		value float64
	}{
		{"weights.frequency", w.Frequency},
		{"weights.temporal", w.Temporal},
		{"weights.correlation", w.Correlation},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return domain.NewConfigurationError(c.field, "must be finite, got %v", c.value)
		}
		if c.value < 0 {
			return domain.NewConfigurationError(c.field, "must not be negative, got %v", c.value)
		}
	}
	if w.sum() <= 0 {
		return domain.NewConfigurationError("weights", "must not all be zero")
	}
	return nil
}

// Normalize scales the weights to sum to 1. Call Validate first.
func (w Weights) Normalize() Weights {
	total := w.sum()
	if total <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Frequency:   w.Frequency / total,
		Temporal:    w.Temporal / total,
		Correlation: w.Correlation / total,
	}
}

func (w Weights) sum() float64 {
	return w.Frequency + w.Temporal + w.Correlation
}
