package domain

import (
	"fmt"
	"time"
)

// AnalysisKind tags the payload carried by an Analysis
type AnalysisKind string

const (
	AnalysisFrequency   AnalysisKind = "frequency"
	AnalysisCorrelation AnalysisKind = "correlation"
	AnalysisScores      AnalysisKind = "scores"
	AnalysisCandidates  AnalysisKind = "candidates"
	AnalysisBacktest    AnalysisKind = "backtest"
	AnalysisLeakage     AnalysisKind = "leakage"
)

// FrequencyAnalysis is the payload of an AnalysisFrequency result
type FrequencyAnalysis struct {
	Frequencies []NumberFrequency `json:"frequencies"`
	Window      int               `json:"window"`
}

// CorrelationAnalysis is the payload of an AnalysisCorrelation result
type CorrelationAnalysis struct {
	Entries   []CorrelationEntry `json:"entries"`
	Window    int                `json:"window"`
	Threshold float64            `json:"threshold"`
	CacheHit  bool               `json:"cache_hit"`
}

// ScoresAnalysis is the payload of an AnalysisScores result
type ScoresAnalysis struct {
	Scores []NumberScore `json:"scores"`
}

// CandidatesAnalysis is the payload of an AnalysisCandidates result
type CandidatesAnalysis struct {
	Candidates  []Candidate `json:"candidates"`
	Generations int         `json:"generations"`
	Seed        int64       `json:"seed"`
}

// Analysis is a tagged union over every result the engine produces.
// Exactly one payload pointer is set and it must match Kind.
type Analysis struct {
	CreatedAt   time.Time            `json:"created_at"`
	Frequency   *FrequencyAnalysis   `json:"frequency,omitempty"`
	Correlation *CorrelationAnalysis `json:"correlation,omitempty"`
	Scores      *ScoresAnalysis      `json:"scores,omitempty"`
	Candidates  *CandidatesAnalysis  `json:"candidates,omitempty"`
	Backtest    *BacktestResult      `json:"backtest,omitempty"`
	Leakage     *LeakageReport       `json:"leakage,omitempty"`
	Kind        AnalysisKind         `json:"kind"`
	LotteryID   string               `json:"lottery_id"`
}

// Validate checks that the payload matches the kind tag
func (a Analysis) Validate() error {
	set := 0
	var matches bool
	if a.Frequency != nil {
		set++
		matches = a.Kind == AnalysisFrequency
	}
	if a.Correlation != nil {
		set++
		matches = a.Kind == AnalysisCorrelation
	}
	if a.Scores != nil {
		set++
		matches = a.Kind == AnalysisScores
	}
	if a.Candidates != nil {
		set++
		matches = a.Kind == AnalysisCandidates
	}
	if a.Backtest != nil {
		set++
		matches = a.Kind == AnalysisBacktest
	}
	if a.Leakage != nil {
		set++
		matches = a.Kind == AnalysisLeakage
	}
	if set != 1 {
		return fmt.Errorf("analysis must carry exactly one payload, got %d", set)
	}
	if !matches {
		return fmt.Errorf("analysis payload does not match kind %q", a.Kind)
	}
	return nil
}

// NewFrequencyAnalysis wraps frequencies in an Analysis
func NewFrequencyAnalysis(lotteryID string, window int, freqs []NumberFrequency) Analysis {
	return Analysis{
		Kind:      AnalysisFrequency,
		LotteryID: lotteryID,
		CreatedAt: time.Now().UTC(),
		Frequency: &FrequencyAnalysis{Window: window, Frequencies: freqs},
	}
}

// NewCorrelationAnalysis wraps correlation entries in an Analysis
func NewCorrelationAnalysis(lotteryID string, payload CorrelationAnalysis) Analysis {
	return Analysis{
		Kind:        AnalysisCorrelation,
		LotteryID:   lotteryID,
		CreatedAt:   time.Now().UTC(),
		Correlation: &payload,
	}
}

// NewScoresAnalysis wraps number scores in an Analysis
func NewScoresAnalysis(lotteryID string, scores []NumberScore) Analysis {
	return Analysis{
		Kind:      AnalysisScores,
		LotteryID: lotteryID,
		CreatedAt: time.Now().UTC(),
		Scores:    &ScoresAnalysis{Scores: scores},
	}
}

// NewCandidatesAnalysis wraps GA output in an Analysis
func NewCandidatesAnalysis(lotteryID string, payload CandidatesAnalysis) Analysis {
	return Analysis{
		Kind:       AnalysisCandidates,
		LotteryID:  lotteryID,
		CreatedAt:  time.Now().UTC(),
		Candidates: &payload,
	}
}

// NewBacktestAnalysis wraps a backtest report in an Analysis
func NewBacktestAnalysis(lotteryID string, result *BacktestResult) Analysis {
	return Analysis{
		Kind:      AnalysisBacktest,
		LotteryID: lotteryID,
		CreatedAt: time.Now().UTC(),
		Backtest:  result,
	}
}

// NewLeakageAnalysis wraps a leakage report in an Analysis
func NewLeakageAnalysis(lotteryID string, report LeakageReport) Analysis {
	return Analysis{
		Kind:      AnalysisLeakage,
		LotteryID: lotteryID,
		CreatedAt: time.Now().UTC(),
		Leakage:   &report,
	}
}
