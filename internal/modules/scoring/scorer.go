package scoring

import (
	"sort"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Config tunes the hybrid scorer
type Config struct {
	Windows         Windows    `yaml:"windows" json:"windows"`
	Thresholds      Thresholds `yaml:"thresholds" json:"thresholds"`
	FrequencyWindow int        `yaml:"frequency_window" json:"frequency_window"`
	// PartnerCount is how many strongest partners feed the correlation component
	// when no reference set is given
	PartnerCount int `yaml:"partner_count" json:"partner_count"`
	// MinDraws below which scores are flagged LowConfidence
	MinDraws int `yaml:"min_draws" json:"min_draws"`
}

// DefaultConfig returns the default scorer configuration
func DefaultConfig() Config {
	return Config{
		Windows:         DefaultWindows(),
		Thresholds:      DefaultThresholds(),
		FrequencyWindow: DefaultFrequencyWindow,
		PartnerCount:    5,
		MinDraws:        10,
	}
}

// Validate checks the scorer configuration
func (c Config) Validate() error {
	if err := c.Windows.Validate(); err != nil {
		return err
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.FrequencyWindow < 0 {
		return domain.NewConfigurationError("frequency_window", "must not be negative, got %d", c.FrequencyWindow)
	}
	if c.PartnerCount <= 0 {
		return domain.NewConfigurationError("partner_count", "must be positive, got %d", c.PartnerCount)
	}
	if c.MinDraws < 0 {
		return domain.NewConfigurationError("min_draws", "must not be negative, got %d", c.MinDraws)
	}
	return nil
}

// HybridScorer computes weighted per-number scores.
// It is stateless apart from its configuration; identical inputs always give identical scores.
type HybridScorer struct {
	cfg Config
	log zerolog.Logger
}

// NewHybridScorer creates a scorer. The configuration is validated.
func NewHybridScorer(cfg Config, log zerolog.Logger) (*HybridScorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &HybridScorer{
		cfg: cfg,
		log: log.With().Str("component", "hybrid_scorer").Logger(),
	}, nil
}

// Config returns the scorer configuration
func (s *HybridScorer) Config() Config {
	return s.cfg
}

// Prepared holds the raw, pool-wide signals needed to normalize individual scores.
// Build it once per draw history and score as many numbers as needed.
type Prepared struct {
	frequency     []float64 // indexed by number
	temporal      []TemporalAnalysis
	correlations  *correlation.Map
	poolSize      int
	partnerCount  int
	maxFrequency  float64
	maxTemporal   float64
	lowConfidence bool
}

// Prepare computes the frequency and temporal signals of every number in [1, poolSize].
// When frequencies is nil it is computed from draws with the configured window.
func (s *HybridScorer) Prepare(draws []domain.Draw, poolSize int, frequencies []domain.NumberFrequency, m *correlation.Map) *Prepared {
	if frequencies == nil {
		frequencies = AnalyzeFrequencies(draws, poolSize, s.cfg.FrequencyWindow, s.cfg.Thresholds)
	}

	p := &Prepared{
		frequency:     make([]float64, poolSize+1),
		temporal:      make([]TemporalAnalysis, poolSize+1),
		correlations:  m,
		poolSize:      poolSize,
		partnerCount:  s.cfg.PartnerCount,
		lowConfidence: len(draws) < s.cfg.MinDraws,
	}

	for _, f := range frequencies {
		if f.Number >= 1 && f.Number <= poolSize {
			p.frequency[f.Number] = f.Ratio
		}
	}

	blends := make([]float64, poolSize+1)
	for n := 1; n <= poolSize; n++ {
		p.temporal[n] = MultiTemporalAnalysis(n, draws, s.cfg.Windows)
		blends[n] = p.temporal[n].Blend()
	}

	if poolSize > 0 {
		p.maxFrequency = floats.Max(p.frequency)
		p.maxTemporal = floats.Max(blends)
	}

	if p.lowConfidence {
		s.log.Debug().
			Int("draws", len(draws)).
			Int("min_draws", s.cfg.MinDraws).
			Msg("Insufficient history, scores flagged low confidence")
	}
	return p
}

// Temporal returns the temporal analysis of number (zero value outside the pool)
func (p *Prepared) Temporal(number int) TemporalAnalysis {
	if number < 1 || number > p.poolSize {
		return TemporalAnalysis{}
	}
	return p.temporal[number]
}

// Score computes the hybrid score of number.
// The correlation component is the mean correlation against reference when it is
// non-empty, otherwise the mean of the number's strongest partners.
func (p *Prepared) Score(number int, weights Weights, reference []int) domain.NumberScore {
	score := domain.NumberScore{Number: number, LowConfidence: p.lowConfidence}
	if number < 1 || number > p.poolSize {
		return score
	}

	w := weights.Normalize()

	score.Components = domain.ScoreComponents{
		Frequency:   normalize(p.frequency[number], p.maxFrequency),
		Temporal:    normalize(p.temporal[number].Blend(), p.maxTemporal),
		Correlation: normalize(p.rawCorrelation(number, reference), p.correlations.Max()),
	}
	score.TotalScore = score.Components.Frequency*w.Frequency +
		score.Components.Temporal*w.Temporal +
		score.Components.Correlation*w.Correlation
	return score
}

func (p *Prepared) rawCorrelation(number int, reference []int) float64 {
	if len(reference) > 0 {
		return correlation.MeanCorrelation(number, reference, p.correlations)
	}
	return correlation.StrongestPartnersMean(number, p.correlations, p.poolSize, p.partnerCount)
}

// ScoreAll scores every number in the pool, best first (ties by number ascending)
func (p *Prepared) ScoreAll(weights Weights, reference []int) []domain.NumberScore {
	scores := make([]domain.NumberScore, 0, p.poolSize)
	for n := 1; n <= p.poolSize; n++ {
		scores = append(scores, p.Score(n, weights, reference))
	}
	SortScores(scores)
	return scores
}

// ScoreNumber scores a single number against draws
func (s *HybridScorer) ScoreNumber(number int, draws []domain.Draw, poolSize int, frequencies []domain.NumberFrequency, m *correlation.Map, weights Weights, reference []int) (domain.NumberScore, error) {
	if err := weights.Validate(); err != nil {
		return domain.NumberScore{}, err
	}
	if number < 1 || number > poolSize {
		return domain.NumberScore{}, domain.NewConfigurationError("number", "must be in [1, %d], got %d", poolSize, number)
	}
	return s.Prepare(draws, poolSize, frequencies, m).Score(number, weights, reference), nil
}

// ScoreAll scores every number in [1, poolSize], best first
func (s *HybridScorer) ScoreAll(draws []domain.Draw, poolSize int, frequencies []domain.NumberFrequency, m *correlation.Map, weights Weights, reference []int) ([]domain.NumberScore, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if poolSize <= 0 {
		return nil, domain.NewConfigurationError("pool_size", "must be positive, got %d", poolSize)
	}
	return s.Prepare(draws, poolSize, frequencies, m).ScoreAll(weights, reference), nil
}

// SortScores orders scores by total descending, ties by number ascending
func SortScores(scores []domain.NumberScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		return scores[i].Number < scores[j].Number
	})
}

// TopNumbers returns the numbers of the first n scores, sorted ascending
func TopNumbers(scores []domain.NumberScore, n int) []int {
	if n > len(scores) {
		n = len(scores)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = scores[i].Number
	}
	sort.Ints(out)
	return out
}

// normalize maps value into [0,1] relative to max; a zero max yields 0
func normalize(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp01(value / max)
}
