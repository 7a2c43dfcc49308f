package genetic

import (
	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/correlation"
)

// Metric names reported on every candidate
const (
	MetricScoreSum         = "score_sum"
	MetricCorrelation      = "correlation"
	MetricDiversityPenalty = "diversity_penalty"
	MetricFitness          = "fitness"
)

// FitnessInputs are the scoring outputs a run optimizes against
type FitnessInputs struct {
	// Scores indexed by number; index 0 is unused
	Scores       []float64
	Correlations *correlation.Map
}

// NewFitnessInputs indexes number scores for a pool of poolSize numbers.
// Numbers without a score count as 0.
func NewFitnessInputs(scores []domain.NumberScore, m *correlation.Map, poolSize int) FitnessInputs {
	indexed := make([]float64, poolSize+1)
	for _, s := range scores {
		if s.Number >= 1 && s.Number <= poolSize {
			indexed[s.Number] = s.TotalScore
		}
	}
	return FitnessInputs{Scores: indexed, Correlations: m}
}

type fitness struct {
	scoreSum    float64
	correlation float64
	penalty     float64
	total       float64
}

func (f fitness) metrics() map[string]float64 {
	return map[string]float64{
		MetricScoreSum:         f.scoreSum,
		MetricCorrelation:      f.correlation,
		MetricDiversityPenalty: f.penalty,
		MetricFitness:          f.total,
	}
}

// evaluate computes summed scores plus the weighted correlation bonus,
// minus the decile crowding penalty
func (o *Optimizer) evaluate(genes []int) fitness {
	var f fitness
	for _, n := range genes {
		f.scoreSum += weightOf(n, o.inputs.Scores)
	}
	f.correlation = correlation.SetCorrelationScore(genes, o.inputs.Correlations)
	f.penalty = o.diversityPenalty(genes)
	f.total = f.scoreSum + o.cfg.CorrelationWeight*f.correlation - f.penalty
	return f
}

// diversityPenalty charges DiversityPenalty for every number beyond MaxPerDecile
// that falls in the same decile (1-10, 11-20, ...)
func (o *Optimizer) diversityPenalty(genes []int) float64 {
	if o.cfg.MaxPerDecile <= 0 || o.cfg.DiversityPenalty == 0 {
		return 0
	}
	perDecile := make(map[int]int)
	for _, n := range genes {
		perDecile[(n-1)/10]++
	}
	excess := 0
	for _, count := range perDecile {
		if count > o.cfg.MaxPerDecile {
			excess += count - o.cfg.MaxPerDecile
		}
	}
	return float64(excess) * o.cfg.DiversityPenalty
}
