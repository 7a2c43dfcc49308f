// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Draw represents one recorded draw of a lottery contest.
// Numbers are kept sorted ascending; a Draw is never mutated after it is recorded.
type Draw struct {
	Date          time.Time `json:"date" msgpack:"date"`
	Numbers       []int     `json:"numbers" msgpack:"numbers"`
	ContestNumber int       `json:"contest_number" msgpack:"contest_number"`
}

// Contains reports whether n was drawn.
func (d Draw) Contains(n int) bool {
	idx := sort.SearchInts(d.Numbers, n)
	return idx < len(d.Numbers) && d.Numbers[idx] == n
}

// Temperature is the hot/warm/cold discretization of a number's recent frequency
type Temperature string

const (
	TemperatureHot  Temperature = "hot"
	TemperatureWarm Temperature = "warm"
	TemperatureCold Temperature = "cold"
)

// NumberFrequency is the frequency of a number inside an analysis window
type NumberFrequency struct {
	Temperature Temperature `json:"temperature"`
	Number      int         `json:"number"`
	Frequency   int         `json:"frequency"`
	Ratio       float64     `json:"ratio"` // Frequency / window length
}

// CorrelationEntry is one retained pair of the sparse correlation map (NumberA < NumberB)
type CorrelationEntry struct {
	NumberA     int     `json:"number_a" msgpack:"a"`
	NumberB     int     `json:"number_b" msgpack:"b"`
	Correlation float64 `json:"correlation" msgpack:"c"`
}

// ScoreComponents holds the normalized [0,1] inputs of a NumberScore
type ScoreComponents struct {
	Frequency   float64 `json:"frequency"`
	Temporal    float64 `json:"temporal"`
	Correlation float64 `json:"correlation"`
}

// NumberScore is the hybrid score of a single number
type NumberScore struct {
	Components    ScoreComponents `json:"components"`
	Number        int             `json:"number"`
	TotalScore    float64         `json:"total_score"`
	LowConfidence bool            `json:"low_confidence"` // Too little history for a meaningful signal
}

// Candidate is a complete number set produced by the genetic optimizer
type Candidate struct {
	Metrics map[string]float64 `json:"metrics"`
	Numbers []int              `json:"numbers"`
	Score   float64            `json:"score"`
}

// TrialDetail records a single backtest step
type TrialDetail struct {
	Date          time.Time       `json:"date"`
	Error         string          `json:"error,omitempty"`
	Predicted     []int           `json:"predicted"`
	Drawn         []int           `json:"drawn"`
	Payout        decimal.Decimal `json:"payout"`
	Cumulative    decimal.Decimal `json:"cumulative"` // Cumulative net result after this trial
	ContestNumber int             `json:"contest_number"`
	Matches       int             `json:"matches"`
	Return        float64         `json:"return"` // (payout - stake) / stake
}

// BacktestResult is the report produced by one backtest invocation
type BacktestResult struct {
	NumberSelections      map[int]int     `json:"number_selections"` // How many trials predicted each number
	RunID                 string          `json:"run_id"`
	StrategyName          string          `json:"strategy_name"`
	Errors                []string        `json:"errors,omitempty"`
	Trials                []TrialDetail   `json:"trials"`
	TotalPayoff           decimal.Decimal `json:"total_payoff"`
	TotalCost             decimal.Decimal `json:"total_cost"`
	TotalTests            int             `json:"total_tests"`
	SuccessfulPredictions int             `json:"successful_predictions"`
	ErrorCount            int             `json:"error_count"`
	AverageAccuracy       float64         `json:"average_accuracy"`
	Profitability         float64         `json:"profitability"`
	MaxDrawdown           float64         `json:"max_drawdown"`
	SharpeRatio           float64         `json:"sharpe_ratio"`
}

// LeakageReport is the outcome of a training/test data leakage check
type LeakageReport struct {
	Details    []string `json:"details"`
	HasLeakage bool     `json:"has_leakage"`
}

// SortDraws orders draws by contest number (oldest first) in place.
func SortDraws(draws []Draw) {
	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].ContestNumber < draws[j].ContestNumber
	})
}

// NewDraw builds a draw with its numbers sorted. The input slice is copied.
func NewDraw(contest int, date time.Time, numbers []int) Draw {
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)
	return Draw{ContestNumber: contest, Date: date, Numbers: sorted}
}

// NormalizeDraws returns a copy of draws ordered by contest number, each with its
// numbers sorted. Draws built outside NewDraw (decoded JSON, CSV rows) go through
// here before anything calls Contains on them.
func NormalizeDraws(draws []Draw) []Draw {
	out := make([]Draw, len(draws))
	for i, d := range draws {
		out[i] = NewDraw(d.ContestNumber, d.Date, d.Numbers)
	}
	SortDraws(out)
	return out
}

// ValidateNumberSet checks that numbers holds exactly pick unique values in [1, poolSize]
func ValidateNumberSet(numbers []int, poolSize, pick int) error {
	if len(numbers) != pick {
		return fmt.Errorf("expected %d numbers, got %d", pick, len(numbers))
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > poolSize {
			return fmt.Errorf("number %d outside range [1, %d]", n, poolSize)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// ValidateDraw checks a single draw against the lottery's pool and pick count
func ValidateDraw(d Draw, lottery Lottery) error {
	if d.ContestNumber <= 0 {
		return fmt.Errorf("contest number must be positive, got %d", d.ContestNumber)
	}
	if err := ValidateNumberSet(d.Numbers, lottery.PoolSize, lottery.Pick); err != nil {
		return fmt.Errorf("contest %d: %w", d.ContestNumber, err)
	}
	return nil
}

// ValidateDraws checks every draw and that contest numbers are strictly increasing.
func ValidateDraws(draws []Draw, lottery Lottery) error {
	for _, d := range draws {
		if err := ValidateDraw(d, lottery); err != nil {
			return err
		}
	}
	return ValidateContestOrder(draws)
}

// ValidateContestOrder checks that contest numbers are strictly increasing
func ValidateContestOrder(draws []Draw) error {
	for i := 1; i < len(draws); i++ {
		if draws[i].ContestNumber <= draws[i-1].ContestNumber {
			return fmt.Errorf("contest %d is not after contest %d", draws[i].ContestNumber, draws[i-1].ContestNumber)
		}
	}
	return nil
}

// LatestContest returns the highest contest number, or 0 for an empty history.
func LatestContest(draws []Draw) int {
	latest := 0
	for _, d := range draws {
		if d.ContestNumber > latest {
			latest = d.ContestNumber
		}
	}
	return latest
}

// TrailingWindow returns the last n draws (all draws when n <= 0 or n exceeds the history).
func TrailingWindow(draws []Draw, n int) []Draw {
	if n <= 0 || n >= len(draws) {
		return draws
	}
	return draws[len(draws)-n:]
}
