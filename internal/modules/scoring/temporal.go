package scoring

import (
	"math"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/markcheno/go-talib"
)

// Windows are the short/medium/long draw windows of the multi-temporal analysis
type Windows struct {
	Short  int `yaml:"short" json:"short"`
	Medium int `yaml:"medium" json:"medium"`
	Long   int `yaml:"long" json:"long"`
}

// DefaultWindows returns the 20/60/150 draw windows
func DefaultWindows() Windows {
	return Windows{Short: 20, Medium: 60, Long: 150}
}

// Validate checks that every window is positive
func (w Windows) Validate() error {
	if w.Short <= 0 {
		return domain.NewConfigurationError("windows.short", "must be positive, got %d", w.Short)
	}
	if w.Medium <= 0 {
		return domain.NewConfigurationError("windows.medium", "must be positive, got %d", w.Medium)
	}
	if w.Long <= 0 {
		return domain.NewConfigurationError("windows.long", "must be positive, got %d", w.Long)
	}
	return nil
}

// TemporalAnalysis holds the per-window occurrence ratios of a number.
// Windows are independent: a number can be high short-term and low long-term.
type TemporalAnalysis struct {
	ShortTerm  float64 `json:"short_term"`
	MediumTerm float64 `json:"medium_term"`
	LongTerm   float64 `json:"long_term"`
	// Trend is the EMA of the occurrence series over the long window minus LongTerm.
	// Positive means the number has been appearing more often recently.
	Trend float64 `json:"trend"`
}

// Temporal component blend: recent windows weigh more
const (
	shortTermWeight  = 0.5
	mediumTermWeight = 0.3
	longTermWeight   = 0.2
)

// Blend combines the window ratios into a single [0,1] temporal signal
func (t TemporalAnalysis) Blend() float64 {
	return clamp01(t.ShortTerm*shortTermWeight + t.MediumTerm*mediumTermWeight + t.LongTerm*longTermWeight)
}

// MultiTemporalAnalysis computes the occurrence ratio of number over the most recent
// Short, Medium and Long draws. Empty windows yield 0.
func MultiTemporalAnalysis(number int, draws []domain.Draw, windows Windows) TemporalAnalysis {
	analysis := TemporalAnalysis{
		ShortTerm:  occurrenceRatio(number, draws, windows.Short),
		MediumTerm: occurrenceRatio(number, draws, windows.Medium),
		LongTerm:   occurrenceRatio(number, draws, windows.Long),
	}

	series := occurrenceSeries(number, domain.TrailingWindow(draws, windows.Long))
	if ema, ok := lastEMA(series, windows.Short); ok {
		analysis.Trend = ema - analysis.LongTerm
	}
	return analysis
}

func occurrenceRatio(number int, draws []domain.Draw, window int) float64 {
	if window <= 0 || len(draws) == 0 {
		return 0
	}
	recent := domain.TrailingWindow(draws, window)
	hits := 0
	for _, d := range recent {
		if d.Contains(number) {
			hits++
		}
	}
	return windowRatio(hits, len(recent))
}

// occurrenceSeries returns 1 for every draw (oldest first) containing number, 0 otherwise
func occurrenceSeries(number int, draws []domain.Draw) []float64 {
	series := make([]float64, len(draws))
	for i, d := range draws {
		if d.Contains(number) {
			series[i] = 1
		}
	}
	return series
}

// lastEMA returns the final EMA value of series.
// Falls back to the plain mean when the series is shorter than the period.
func lastEMA(series []float64, period int) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	if period < 2 || len(series) < period {
		var sum float64
		for _, v := range series {
			sum += v
		}
		return sum / float64(len(series)), true
	}

	ema := talib.Ema(series, period)
	last := ema[len(ema)-1]
	if math.IsNaN(last) {
		return 0, false
	}
	return last, true
}
