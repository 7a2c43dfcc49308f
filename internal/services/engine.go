// Package services exposes the lottery engine to the HTTP server and the CLI.
// Every call computes from the draws it is given; the correlation cache is the
// only state shared between calls.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/metrics"
	"github.com/aristath/lottolab/internal/modules/backtest"
	"github.com/aristath/lottolab/internal/modules/correlation"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// ErrArchivingDisabled is returned by Archive when no archiver is configured
var ErrArchivingDisabled = errors.New("report archiving is not configured")

// Archiver persists analyses outside the process
type Archiver interface {
	Archive(ctx context.Context, analysis domain.Analysis) (string, error)
}

// Options wires the engine's collaborators. Zero values fall back to defaults.
type Options struct {
	Lotteries   *domain.LotteryRegistry
	Paytables   map[string]backtest.Paytable // Configured paytables by lottery ID
	Correlation *correlation.CachedEngine
	Scorer      *scoring.HybridScorer
	Backtester  *backtest.Engine
	Archiver    Archiver
	Metrics     *metrics.Metrics
	Genetic     genetic.Config // GA defaults; the lottery shape is filled per call
	Weights     scoring.Weights
	Backtest    BacktestDefaults
	// CorrelationWindow is the default number of trailing draws analysed; 0 uses all
	CorrelationWindow int
}

// BacktestDefaults fill the fields a BacktestRequest leaves unset
type BacktestDefaults struct {
	Strategy       string
	MinHistory     int
	TrailingWindow int
}

// Engine is the function boundary of the lottery engine
type Engine struct {
	lotteries   *domain.LotteryRegistry
	paytables   map[string]backtest.Paytable
	correlation *correlation.CachedEngine
	scorer      *scoring.HybridScorer
	backtester  *backtest.Engine
	archiver    Archiver
	metrics     *metrics.Metrics
	genetic     genetic.Config
	weights     scoring.Weights
	defaults    BacktestDefaults
	window      int
	log         zerolog.Logger
}

// NewEngine creates the engine facade
func NewEngine(opts Options, log zerolog.Logger) (*Engine, error) {
	if opts.Lotteries == nil {
		opts.Lotteries = domain.NewLotteryRegistry()
	}
	if opts.Correlation == nil {
		opts.Correlation = correlation.NewCachedEngine(correlation.NewEngine(0, log), nil, 0, log)
	}
	if opts.Scorer == nil {
		scorer, err := scoring.NewHybridScorer(scoring.DefaultConfig(), log)
		if err != nil {
			return nil, err
		}
		opts.Scorer = scorer
	}
	if opts.Backtester == nil {
		opts.Backtester = backtest.NewEngine(log)
	}
	if opts.Genetic.PopulationSize == 0 {
		opts.Genetic = genetic.DefaultConfig(0, 0)
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if opts.Backtest.Strategy == "" {
		opts.Backtest.Strategy = backtest.StrategyHybridTop
	}
	if opts.Backtest.MinHistory == 0 {
		opts.Backtest.MinHistory = backtest.DefaultMinHistory
	}
	if opts.CorrelationWindow < 0 {
		return nil, domain.NewConfigurationError("correlation.window", "must not be negative, got %d", opts.CorrelationWindow)
	}

	return &Engine{
		lotteries:   opts.Lotteries,
		paytables:   opts.Paytables,
		correlation: opts.Correlation,
		scorer:      opts.Scorer,
		backtester:  opts.Backtester,
		archiver:    opts.Archiver,
		metrics:     opts.Metrics,
		genetic:     opts.Genetic,
		weights:     opts.Weights,
		defaults:    opts.Backtest,
		window:      opts.CorrelationWindow,
		log:         log.With().Str("service", "engine").Logger(),
	}, nil
}

// Lottery returns a registered lottery
func (e *Engine) Lottery(id string) (domain.Lottery, error) {
	return e.lotteries.Get(id)
}

// Lotteries lists the registered lotteries
func (e *Engine) Lotteries() []domain.Lottery {
	return e.lotteries.List()
}

// Paytable returns the configured paytable of a lottery, falling back to the
// reference table of the built-in games
func (e *Engine) Paytable(lotteryID string) (backtest.Paytable, error) {
	if table, ok := e.paytables[lotteryID]; ok {
		return table, nil
	}
	if table, ok := backtest.ReferencePaytable(lotteryID); ok {
		return table, nil
	}
	return nil, domain.NewConfigurationError("paytable", "no paytable configured for %s", lotteryID)
}

// DefaultWeights returns the configured scoring weights
func (e *Engine) DefaultWeights() scoring.Weights {
	return e.weights
}

// prepareDraws validates draws against the lottery and returns a normalized copy
func prepareDraws(draws []domain.Draw, lottery domain.Lottery) ([]domain.Draw, error) {
	sorted := domain.NormalizeDraws(draws)
	if err := domain.ValidateDraws(sorted, lottery); err != nil {
		return nil, domain.NewConfigurationError("draws", "%v", err)
	}
	return sorted, nil
}

func (e *Engine) resolveWindow(window int) int {
	if window > 0 {
		return window
	}
	return e.window
}

// BuildCorrelationMap builds (or reads from cache) the correlation map of the last
// window draws. window <= 0 uses the configured default. The boolean reports a cache hit.
func (e *Engine) BuildCorrelationMap(ctx context.Context, lotteryID string, draws []domain.Draw, window int) (*correlation.Map, bool, error) {
	lottery, err := e.lotteries.Get(lotteryID)
	if err != nil {
		return nil, false, err
	}
	sorted, err := prepareDraws(draws, lottery)
	if err != nil {
		return nil, false, err
	}
	m, hit := e.correlationMap(ctx, lottery, sorted, e.resolveWindow(window))
	return m, hit, nil
}

func (e *Engine) correlationMap(ctx context.Context, lottery domain.Lottery, sorted []domain.Draw, window int) (*correlation.Map, bool) {
	start := time.Now()
	recent := domain.TrailingWindow(sorted, window)
	m, hit := e.correlation.Build(ctx, lottery.ID, window, recent, lottery.PoolSize)
	e.metrics.ObserveCorrelation(lottery.ID, hit, time.Since(start))
	return m, hit
}

// Frequencies returns the hot/warm/cold analysis of the last window draws
func (e *Engine) Frequencies(lotteryID string, draws []domain.Draw, window int) ([]domain.NumberFrequency, error) {
	lottery, err := e.lotteries.Get(lotteryID)
	if err != nil {
		return nil, err
	}
	sorted, err := prepareDraws(draws, lottery)
	if err != nil {
		return nil, err
	}
	cfg := e.scorer.Config()
	if window <= 0 {
		window = cfg.FrequencyWindow
	}
	return scoring.AnalyzeFrequencies(sorted, lottery.PoolSize, window, cfg.Thresholds), nil
}

// ScoreRequest describes a scoring pass
type ScoreRequest struct {
	LotteryID string
	Draws     []domain.Draw
	// Frequencies are optional precomputed frequencies; computed from Draws when nil
	Frequencies []domain.NumberFrequency
	// Weights default to the configured weights when nil
	Weights *scoring.Weights
	// Reference numbers the correlation component is measured against; empty uses
	// each number's strongest partners
	Reference []int
	// Window limits the draws used for the correlation map; 0 uses the default
	Window int
}

func (e *Engine) resolveWeights(w *scoring.Weights) (scoring.Weights, error) {
	if w == nil {
		return e.weights, nil
	}
	if err := w.Validate(); err != nil {
		return scoring.Weights{}, err
	}
	return *w, nil
}

// ScoreNumber scores a single number
func (e *Engine) ScoreNumber(ctx context.Context, req ScoreRequest, number int) (domain.NumberScore, error) {
	lottery, sorted, weights, err := e.scoringInputs(req)
	if err != nil {
		return domain.NumberScore{}, err
	}
	m, _ := e.correlationMap(ctx, lottery, sorted, e.resolveWindow(req.Window))
	return e.scorer.ScoreNumber(number, sorted, lottery.PoolSize, req.Frequencies, m, weights, req.Reference)
}

// ScoreNumbers scores every number 1..poolSize, best first
func (e *Engine) ScoreNumbers(ctx context.Context, req ScoreRequest) ([]domain.NumberScore, error) {
	lottery, sorted, weights, err := e.scoringInputs(req)
	if err != nil {
		return nil, err
	}
	m, _ := e.correlationMap(ctx, lottery, sorted, e.resolveWindow(req.Window))
	return e.scorer.ScoreAll(sorted, lottery.PoolSize, req.Frequencies, m, weights, req.Reference)
}

func (e *Engine) scoringInputs(req ScoreRequest) (domain.Lottery, []domain.Draw, scoring.Weights, error) {
	lottery, err := e.lotteries.Get(req.LotteryID)
	if err != nil {
		return domain.Lottery{}, nil, scoring.Weights{}, err
	}
	sorted, err := prepareDraws(req.Draws, lottery)
	if err != nil {
		return domain.Lottery{}, nil, scoring.Weights{}, err
	}
	weights, err := e.resolveWeights(req.Weights)
	if err != nil {
		return domain.Lottery{}, nil, scoring.Weights{}, err
	}
	return lottery, sorted, weights, nil
}

// GenerateRequest describes a candidate generation run
type GenerateRequest struct {
	LotteryID  string
	Draws      []domain.Draw
	GamesCount int
	Weights    *scoring.Weights
	// Genetic overrides the configured GA parameters; the lottery shape is always
	// taken from the lottery
	Genetic *genetic.Config
	Window  int
	// Progress, when set, receives a report after every generation
	Progress genetic.ProgressFunc
}

// GenerateCandidates runs the genetic optimizer and returns the best GamesCount
// distinct candidates, best first
func (e *Engine) GenerateCandidates(ctx context.Context, req GenerateRequest) ([]domain.Candidate, error) {
	result, err := e.Evolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Candidates, nil
}

// GeneticConfig returns the GA parameters used for a lottery
func (e *Engine) GeneticConfig(lottery domain.Lottery) genetic.Config {
	cfg := e.genetic
	cfg.PoolSize = lottery.PoolSize
	cfg.Pick = lottery.Pick
	return cfg
}

// Evolve is GenerateCandidates returning the run metadata as well.
// ctx is checked between generations.
func (e *Engine) Evolve(ctx context.Context, req GenerateRequest) (*domain.CandidatesAnalysis, error) {
	lottery, sorted, weights, err := e.scoringInputs(ScoreRequest{LotteryID: req.LotteryID, Draws: req.Draws, Weights: req.Weights})
	if err != nil {
		return nil, err
	}

	cfg := e.GeneticConfig(lottery)
	if req.Genetic != nil {
		cfg = *req.Genetic
		cfg.PoolSize = lottery.PoolSize
		cfg.Pick = lottery.Pick
	}

	m, _ := e.correlationMap(ctx, lottery, sorted, e.resolveWindow(req.Window))
	scores, err := e.scorer.ScoreAll(sorted, lottery.PoolSize, nil, m, weights, nil)
	if err != nil {
		return nil, err
	}

	opt, err := genetic.NewOptimizer(cfg, genetic.NewFitnessInputs(scores, m, lottery.PoolSize), e.log)
	if err != nil {
		return nil, err
	}
	if err := opt.ValidateGamesCount(req.GamesCount); err != nil {
		return nil, err
	}
	if req.Progress != nil {
		opt.OnProgress(req.Progress)
	}

	evo := opt.Start()
	for !evo.Done() {
		if err := ctx.Err(); err != nil {
			e.metrics.ObserveGenetic(lottery.ID, evo.Generation(), evo.Repairs(), err)
			return nil, fmt.Errorf("candidate generation cancelled after %d generations: %w", evo.Generation(), err)
		}
		evo.Step()
	}

	candidates := evo.Top(req.GamesCount)
	e.metrics.ObserveGenetic(lottery.ID, evo.Generation(), evo.Repairs(), nil)

	e.log.Info().
		Str("lottery", lottery.ID).
		Int("games", len(candidates)).
		Int("generations", evo.Generation()).
		Int("repairs", evo.Repairs()).
		Int64("seed", evo.Seed()).
		Float64("best_fitness", candidates[0].Score).
		Msg("Candidates generated")

	return &domain.CandidatesAnalysis{
		Candidates:  candidates,
		Generations: evo.Generation(),
		Seed:        evo.Seed(),
	}, nil
}

// RunBacktest replays strategy over draws. ctx is checked between trials.
func (e *Engine) RunBacktest(ctx context.Context, strategy backtest.StrategyFunc, draws []domain.Draw, cfg backtest.Config) (*domain.BacktestResult, error) {
	result, err := e.backtester.Run(ctx, strategy, draws, cfg)
	trials := 0
	if result != nil {
		trials = result.TotalTests
	}
	e.metrics.ObserveBacktest(cfg.StrategyName, trials, err)
	return result, err
}

// BacktestRequest describes a backtest of a built-in strategy
type BacktestRequest struct {
	LotteryID string
	Draws     []domain.Draw
	// Strategy defaults to the configured strategy when empty
	Strategy string
	Params   StrategyParams
	// MinHistory and TrailingWindow override the configured defaults when positive
	MinHistory     int
	TrailingWindow int
	FailFast       bool
}

// Backtest validates the draws, resolves the strategy and replays it
func (e *Engine) Backtest(ctx context.Context, req BacktestRequest) (*domain.BacktestResult, error) {
	lottery, err := e.lotteries.Get(req.LotteryID)
	if err != nil {
		return nil, err
	}
	sorted, err := prepareDraws(req.Draws, lottery)
	if err != nil {
		return nil, err
	}

	name := req.Strategy
	if name == "" {
		name = e.defaults.Strategy
	}
	strategy, err := e.NewStrategy(name, lottery, req.Params)
	if err != nil {
		return nil, err
	}

	cfg, err := e.BacktestConfig(lottery.ID, name)
	if err != nil {
		return nil, err
	}
	if req.MinHistory > 0 {
		cfg.MinHistory = req.MinHistory
	}
	if req.TrailingWindow > 0 {
		cfg.TrailingWindow = req.TrailingWindow
	}
	cfg.FailFast = req.FailFast

	return e.RunBacktest(ctx, strategy, sorted, cfg)
}

// BacktestConfig returns the default backtest configuration of a lottery
func (e *Engine) BacktestConfig(lotteryID, strategyName string) (backtest.Config, error) {
	lottery, err := e.lotteries.Get(lotteryID)
	if err != nil {
		return backtest.Config{}, err
	}
	table, err := e.Paytable(lotteryID)
	if err != nil {
		return backtest.Config{}, err
	}
	cfg := backtest.DefaultConfig(lottery, table)
	cfg.StrategyName = strategyName
	cfg.MinHistory = e.defaults.MinHistory
	cfg.TrailingWindow = e.defaults.TrailingWindow
	return cfg, nil
}

// StrategyParams tune the built-in strategies
type StrategyParams struct {
	Weights *scoring.Weights
	Genetic *genetic.Config
	// Window limits the prior draws each prediction analyses; 0 uses all
	Window int
	// Seed makes the random and genetic strategies reproducible; 0 seeds from the clock
	Seed int64
}

// NewStrategy resolves a built-in strategy by name
func (e *Engine) NewStrategy(name string, lottery domain.Lottery, params StrategyParams) (backtest.StrategyFunc, error) {
	weights, err := e.resolveWeights(params.Weights)
	if err != nil {
		return nil, err
	}
	hybrid := backtest.HybridParams{Weights: weights, Window: params.Window}

	switch name {
	case backtest.StrategyMostFrequent:
		return backtest.MostFrequent(lottery.PoolSize, lottery.Pick, params.Window), nil
	case backtest.StrategyHybridTop:
		return backtest.HybridTop(e.scorer, e.correlation.Engine(), lottery, hybrid), nil
	case backtest.StrategyCorrelated:
		return backtest.Correlated(e.scorer, e.correlation.Engine(), lottery, hybrid), nil
	case backtest.StrategyGenetic:
		cfg := e.GeneticConfig(lottery)
		if params.Genetic != nil {
			cfg = *params.Genetic
			cfg.PoolSize = lottery.PoolSize
			cfg.Pick = lottery.Pick
		}
		if params.Seed != 0 {
			cfg.Seed = params.Seed
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return backtest.Genetic(e.scorer, e.correlation.Engine(), lottery, hybrid, cfg, e.log), nil
	case backtest.StrategyRandom:
		return backtest.Random(lottery.PoolSize, lottery.Pick, params.Seed), nil
	default:
		return nil, domain.NewConfigurationError("strategy", "unknown strategy %q", name)
	}
}

// CheckDataLeakage reports overlap or ordering problems between training and test draws
func (e *Engine) CheckDataLeakage(training, test []domain.Draw) domain.LeakageReport {
	report := backtest.CheckDataLeakage(training, test)
	if report.HasLeakage {
		e.log.Warn().Strs("details", report.Details).Msg("Data leakage detected")
	}
	return report
}

// ArchivingEnabled reports whether Archive can upload
func (e *Engine) ArchivingEnabled() bool {
	return e.archiver != nil
}

// Archive uploads an analysis and returns its storage key
func (e *Engine) Archive(ctx context.Context, analysis domain.Analysis) (string, error) {
	if e.archiver == nil {
		return "", ErrArchivingDisabled
	}
	return e.archiver.Archive(ctx, analysis)
}
