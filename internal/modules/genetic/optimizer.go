package genetic

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// Progress is reported after every generation
type Progress struct {
	Generation  int     `json:"generation"`
	Generations int     `json:"generations"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	Best        []int   `json:"best"`
	Repairs     int     `json:"repairs"`
}

// ProgressFunc receives generation progress
type ProgressFunc func(Progress)

// Optimizer runs the genetic search for one lottery shape and fitness input
type Optimizer struct {
	cfg      Config
	inputs   FitnessInputs
	progress ProgressFunc
	log      zerolog.Logger
}

// NewOptimizer validates cfg and creates an optimizer
func NewOptimizer(cfg Config, inputs FitnessInputs, log zerolog.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{
		cfg:    cfg,
		inputs: inputs,
		log:    log.With().Str("component", "genetic_optimizer").Logger(),
	}, nil
}

// OnProgress registers a callback invoked after every generation
func (o *Optimizer) OnProgress(fn ProgressFunc) {
	o.progress = fn
}

// Config returns the optimizer configuration
func (o *Optimizer) Config() Config {
	return o.cfg
}

// ValidateGamesCount checks that gamesCount candidates can be drawn from one population
func (o *Optimizer) ValidateGamesCount(gamesCount int) error {
	if gamesCount <= 0 {
		return domain.NewConfigurationError("games_count", "must be positive, got %d", gamesCount)
	}
	if gamesCount > o.cfg.PopulationSize {
		return domain.NewConfigurationError("games_count", "must not exceed population size %d, got %d", o.cfg.PopulationSize, gamesCount)
	}
	if distinct := distinctSets(o.cfg.PoolSize, o.cfg.Pick, gamesCount); distinct < gamesCount {
		return domain.NewConfigurationError("games_count", "only %d distinct sets of %d exist in a pool of %d, got %d",
			distinct, o.cfg.Pick, o.cfg.PoolSize, gamesCount)
	}
	return nil
}

// distinctSets returns C(poolSize, pick), capped at limit
func distinctSets(poolSize, pick, limit int) int {
	if pick < 0 || pick > poolSize {
		return 0
	}
	if pick > poolSize-pick {
		pick = poolSize - pick
	}
	count := 1
	for i := 1; i <= pick; i++ {
		// count stays below limit here, so the product cannot overflow
		count = count * (poolSize - pick + i) / i
		if count >= limit {
			return limit
		}
	}
	return count
}

// Run evolves a population for the configured number of generations and returns
// the best gamesCount distinct candidates. gamesCount may not exceed the population
// size nor the number of distinct sets the pool can form.
func (o *Optimizer) Run(gamesCount int) ([]domain.Candidate, error) {
	if err := o.ValidateGamesCount(gamesCount); err != nil {
		return nil, err
	}

	evo := o.Start()
	for evo.Step() {
	}
	return evo.Top(gamesCount), nil
}

type chromosome struct {
	genes   []int
	fitness fitness
}

// Evolution is a single optimization run advanced one generation at a time
type Evolution struct {
	opt        *Optimizer
	rng        *rand.Rand
	population []chromosome
	seed       int64
	generation int
	repairs    int
}

// Start creates and evaluates the initial population
func (o *Optimizer) Start() *Evolution {
	seed := o.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Evolution{
		opt:  o,
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}

	e.population = make([]chromosome, o.cfg.PopulationSize)
	for i := range e.population {
		e.population[i] = o.newChromosome(e.randomSet())
	}
	e.dedupe(e.population)
	sortPopulation(e.population)

	o.log.Debug().
		Int64("seed", seed).
		Int("population", o.cfg.PopulationSize).
		Int("generations", o.cfg.Generations).
		Msg("Starting genetic optimization")
	return e
}

// Seed returns the seed the run was started with
func (e *Evolution) Seed() int64 {
	return e.seed
}

// Generation returns the number of completed generations
func (e *Evolution) Generation() int {
	return e.generation
}

// Repairs returns how many chromosomes needed structural repair so far
func (e *Evolution) Repairs() int {
	return e.repairs
}

// Done reports whether the generation budget is exhausted
func (e *Evolution) Done() bool {
	return e.generation >= e.opt.cfg.Generations
}

// Step advances one generation: elitism, tournament selection, crossover and mutation.
// Duplicate chromosomes are then replaced with random sets so the next selection
// draws from distinct candidates. It returns false once the run is done.
func (e *Evolution) Step() bool {
	if e.Done() {
		return false
	}

	cfg := e.opt.cfg
	next := make([]chromosome, 0, cfg.PopulationSize)
	next = append(next, e.population[:cfg.eliteCount()]...)

	for len(next) < cfg.PopulationSize {
		a := e.tournament()
		b := e.tournament()
		child := e.crossover(a.genes, b.genes)
		if e.rng.Float64() < cfg.MutationRate {
			child = e.mutate(child)
		}
		next = append(next, e.opt.newChromosome(child))
	}

	e.dedupe(next)
	sortPopulation(next)
	e.population = next
	e.generation++

	if e.opt.progress != nil {
		e.opt.progress(e.progress())
	}

	if e.Done() {
		best := e.population[0]
		e.opt.log.Debug().
			Int("generations", e.generation).
			Int("repairs", e.repairs).
			Float64("best_fitness", best.fitness.total).
			Ints("best", best.genes).
			Msg("Genetic optimization completed")
	}
	return !e.Done()
}

func (e *Evolution) progress() Progress {
	values := make([]float64, len(e.population))
	for i, c := range e.population {
		values[i] = c.fitness.total
	}
	best := make([]int, len(e.population[0].genes))
	copy(best, e.population[0].genes)

	return Progress{
		Generation:  e.generation,
		Generations: e.opt.cfg.Generations,
		BestFitness: e.population[0].fitness.total,
		MeanFitness: stat.Mean(values, nil),
		Best:        best,
		Repairs:     e.repairs,
	}
}

// Best returns the fittest candidate of the current population
func (e *Evolution) Best() domain.Candidate {
	return e.population[0].candidate()
}

// Top returns n distinct candidates, fittest first. When the population has
// converged to fewer distinct sets, fresh random sets make up the difference.
// Fewer than n are returned only if the pool cannot form n distinct sets.
func (e *Evolution) Top(n int) []domain.Candidate {
	distinct := make([]chromosome, 0, n)
	seen := make(map[string]bool, n)
	for _, c := range e.population {
		if len(distinct) == n {
			break
		}
		key := setKey(c.genes)
		if seen[key] {
			continue
		}
		seen[key] = true
		distinct = append(distinct, c)
	}

	for attempts := 0; len(distinct) < n && attempts < n*100; attempts++ {
		c := e.opt.newChromosome(e.randomSet())
		key := setKey(c.genes)
		if seen[key] {
			continue
		}
		seen[key] = true
		distinct = append(distinct, c)
	}
	sortPopulation(distinct)

	out := make([]domain.Candidate, len(distinct))
	for i, c := range distinct {
		out[i] = c.candidate()
	}
	return out
}

// dedupe replaces repeated chromosomes in place with unseen random sets. Earlier
// entries win, so elites at the front are kept. When the pool cannot supply enough
// distinct sets the duplicate stays.
func (e *Evolution) dedupe(population []chromosome) {
	seen := make(map[string]bool, len(population))
	for i := range population {
		key := setKey(population[i].genes)
		if !seen[key] {
			seen[key] = true
			continue
		}
		for attempt := 0; attempt < dedupeAttempts; attempt++ {
			genes := e.randomSet()
			if k := setKey(genes); !seen[k] {
				seen[k] = true
				population[i] = e.opt.newChromosome(genes)
				break
			}
		}
	}
}

// dedupeAttempts bounds the random draws spent replacing one duplicate
const dedupeAttempts = 20

func (c chromosome) candidate() domain.Candidate {
	numbers := make([]int, len(c.genes))
	copy(numbers, c.genes)
	return domain.Candidate{
		Numbers: numbers,
		Score:   c.fitness.total,
		Metrics: c.fitness.metrics(),
	}
}

func (o *Optimizer) newChromosome(genes []int) chromosome {
	return chromosome{genes: genes, fitness: o.evaluate(genes)}
}

// randomSet draws a uniformly random valid set
func (e *Evolution) randomSet() []int {
	cfg := e.opt.cfg
	perm := e.rng.Perm(cfg.PoolSize)[:cfg.Pick]
	set := make([]int, cfg.Pick)
	for i, p := range perm {
		set[i] = p + 1
	}
	sort.Ints(set)
	return set
}

// tournament returns the fittest of TournamentSize randomly drawn chromosomes
func (e *Evolution) tournament() chromosome {
	best := e.population[e.rng.Intn(len(e.population))]
	for i := 1; i < e.opt.cfg.TournamentSize; i++ {
		candidate := e.population[e.rng.Intn(len(e.population))]
		if candidate.fitness.total > best.fitness.total {
			best = candidate
		}
	}
	return best
}

// crossover keeps the genes both parents share and fills the remaining slots with
// genes drawn from either parent. Draws may repeat, in which case the child is
// repaired with score-weighted padding.
func (e *Evolution) crossover(a, b []int) []int {
	cfg := e.opt.cfg

	inA := make(map[int]bool, len(a))
	for _, n := range a {
		inA[n] = true
	}

	child := make([]int, 0, cfg.Pick)
	var rest []int
	for _, n := range b {
		if inA[n] {
			child = append(child, n)
		} else {
			rest = append(rest, n)
		}
	}
	shared := make(map[int]bool, len(child))
	for _, n := range child {
		shared[n] = true
	}
	for _, n := range a {
		if !shared[n] {
			rest = append(rest, n)
		}
	}

	for len(child) < cfg.Pick && len(rest) > 0 {
		child = append(child, rest[e.rng.Intn(len(rest))])
	}

	return e.repair(child)
}

// mutate replaces one random gene with a number not in the set
func (e *Evolution) mutate(genes []int) []int {
	cfg := e.opt.cfg
	present := make(map[int]bool, len(genes))
	for _, n := range genes {
		present[n] = true
	}
	unused := make([]int, 0, cfg.PoolSize-len(genes))
	for n := 1; n <= cfg.PoolSize; n++ {
		if !present[n] {
			unused = append(unused, n)
		}
	}
	if len(unused) == 0 {
		return genes
	}

	mutated := make([]int, len(genes))
	copy(mutated, genes)
	mutated[e.rng.Intn(len(mutated))] = unused[e.rng.Intn(len(unused))]
	return e.repair(mutated)
}

// repair restores the set invariant, counting sets that were structurally invalid
func (e *Evolution) repair(genes []int) []int {
	cfg := e.opt.cfg
	sorted := make([]int, len(genes))
	copy(sorted, genes)
	sort.Ints(sorted)
	if isValid(sorted, cfg.PoolSize, cfg.Pick) {
		return sorted
	}
	e.repairs++
	return RepairWeighted(genes, cfg.PoolSize, cfg.Pick, e.opt.inputs.Scores, e.rng)
}

// sortPopulation orders by fitness descending, ties by genes ascending
func sortPopulation(population []chromosome) {
	sort.SliceStable(population, func(i, j int) bool {
		if population[i].fitness.total != population[j].fitness.total {
			return population[i].fitness.total > population[j].fitness.total
		}
		return lessGenes(population[i].genes, population[j].genes)
	})
}

func lessGenes(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func setKey(genes []int) string {
	var sb strings.Builder
	for i, n := range genes {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", n)
	}
	return sb.String()
}
