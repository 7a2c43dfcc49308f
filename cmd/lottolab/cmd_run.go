package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/backtest"
	"github.com/aristath/lottolab/internal/modules/genetic"
	"github.com/aristath/lottolab/internal/services"
)

// geneticFlags override the configured GA parameters; zero keeps the configured value
type geneticFlags struct {
	population  int
	generations int
	mutation    float64
	seed        int64
}

func (f *geneticFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.population, "population", 0, "GA population size (0 = configured)")
	cmd.Flags().IntVar(&f.generations, "generations", 0, "GA generations (0 = configured)")
	cmd.Flags().Float64Var(&f.mutation, "mutation-rate", 0, "GA mutation rate (0 = configured)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed for reproducible runs (0 = clock)")
}

func (f *geneticFlags) resolve(defaults genetic.Config) *genetic.Config {
	cfg := defaults
	if f.population > 0 {
		cfg.PopulationSize = f.population
	}
	if f.generations > 0 {
		cfg.Generations = f.generations
	}
	if f.mutation > 0 {
		cfg.MutationRate = f.mutation
	}
	if f.seed != 0 {
		cfg.Seed = f.seed
	}
	return &cfg
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var (
		weights  weightFlags
		ga       geneticFlags
		games    int
		window   int
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate candidate games with the genetic optimizer",
		Long: `Generate evolves candidate number sets whose fitness blends hybrid scores,
pair correlation and a diversity penalty, and prints the best distinct sets.

Examples:
  lottolab generate --games 5
  lottolab generate --lottery lotofacil --games 3 --generations 200 --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			lottery, err := a.lottery()
			if err != nil {
				return err
			}
			draws, err := a.draws(cmd.Context())
			if err != nil {
				return err
			}

			req := services.GenerateRequest{
				LotteryID:  lottery.ID,
				Draws:      draws,
				GamesCount: games,
				Weights:    weights.resolve(a.container.Engine.DefaultWeights()),
				Genetic:    ga.resolve(a.container.Engine.GeneticConfig(lottery)),
				Window:     window,
			}
			if progress {
				errOut := cmd.ErrOrStderr()
				req.Progress = func(p genetic.Progress) {
					fmt.Fprintf(errOut, "generation %d/%d  best %.4f  mean %.4f\n", p.Generation, p.Generations, p.BestFitness, p.MeanFitness)
				}
			}

			result, err := a.container.Engine.Evolve(cmd.Context(), req)
			if err != nil {
				return err
			}

			return a.emit(cmd.Context(), domain.NewCandidatesAnalysis(lottery.ID, *result), func(w io.Writer) error {
				fmt.Fprintf(w, "%d generations, seed %d\n", result.Generations, result.Seed)
				return flushTable(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "#\tNUMBERS\tFITNESS")
					for i, c := range result.Candidates {
						fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, formatNumbers(c.Numbers), c.Score)
					}
				})
			})
		},
	}

	weights.register(cmd)
	ga.register(cmd)
	cmd.Flags().IntVarP(&games, "games", "n", 1, "Number of distinct games to generate")
	cmd.Flags().IntVar(&window, "window", 0, "Trailing draws for the correlation map (0 = configured default)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print per-generation progress to stderr")
	return cmd
}

func newBacktestCmd(opts *globalOptions) *cobra.Command {
	var (
		weights        weightFlags
		ga             geneticFlags
		strategy       string
		window         int
		minHistory     int
		trailingWindow int
		failFast       bool
		trials         bool
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay a prediction strategy over the draw history",
		Long: `Backtest walks forward through the history: each draw is predicted from
the draws before it only, paid out against the paytable and charged one ticket.

Strategies: most_frequent, hybrid_top, correlated, genetic, random.

Examples:
  lottolab backtest --strategy hybrid_top --trailing-window 100
  lottolab backtest --strategy random --seed 7 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			lottery, err := a.lottery()
			if err != nil {
				return err
			}
			draws, err := a.draws(cmd.Context())
			if err != nil {
				return err
			}

			var gaCfg *genetic.Config
			if strategy == backtest.StrategyGenetic {
				gaCfg = ga.resolve(a.container.Engine.GeneticConfig(lottery))
			}

			result, err := a.container.Engine.Backtest(cmd.Context(), services.BacktestRequest{
				LotteryID: lottery.ID,
				Draws:     draws,
				Strategy:  strategy,
				Params: services.StrategyParams{
					Weights: weights.resolve(a.container.Engine.DefaultWeights()),
					Genetic: gaCfg,
					Window:  window,
					Seed:    ga.seed,
				},
				MinHistory:     minHistory,
				TrailingWindow: trailingWindow,
				FailFast:       failFast,
			})
			if err != nil {
				return fmt.Errorf("backtest aborted: %w", err)
			}

			return a.emit(cmd.Context(), domain.NewBacktestAnalysis(lottery.ID, result), func(w io.Writer) error {
				return printBacktest(w, result, trials)
			})
		},
	}

	weights.register(cmd)
	ga.register(cmd)
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Strategy to replay (default: configured)")
	cmd.Flags().IntVar(&window, "window", 0, "Prior draws each prediction analyses (0 = all)")
	cmd.Flags().IntVar(&minHistory, "min-history", 0, "Draws seen before the first prediction (0 = configured)")
	cmd.Flags().IntVar(&trailingWindow, "trailing-window", 0, "Replay only the last N draws (0 = configured)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort on the first strategy failure")
	cmd.Flags().BoolVar(&trials, "trials", false, "Print every trial")
	return cmd
}

func printBacktest(w io.Writer, r *domain.BacktestResult, trials bool) error {
	err := flushTable(w, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Run\t%s\n", r.RunID)
		fmt.Fprintf(tw, "Strategy\t%s\n", r.StrategyName)
		fmt.Fprintf(tw, "Trials\t%d (%d failed)\n", r.TotalTests, r.ErrorCount)
		fmt.Fprintf(tw, "Winning trials\t%d\n", r.SuccessfulPredictions)
		fmt.Fprintf(tw, "Average accuracy\t%.4f\n", r.AverageAccuracy)
		fmt.Fprintf(tw, "Cost\t%s\n", r.TotalCost.StringFixed(2))
		fmt.Fprintf(tw, "Payoff\t%s\n", r.TotalPayoff.StringFixed(2))
		fmt.Fprintf(tw, "Profitability\t%.4f\n", r.Profitability)
		fmt.Fprintf(tw, "Max drawdown\t%.2f\n", r.MaxDrawdown)
		fmt.Fprintf(tw, "Sharpe ratio\t%.4f\n", r.SharpeRatio)
	})
	if err != nil || !trials {
		return err
	}

	fmt.Fprintln(w)
	return flushTable(w, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "CONTEST\tPREDICTED\tDRAWN\tMATCHES\tPAYOUT\tCUMULATIVE")
		for _, t := range r.Trials {
			predicted := formatNumbers(t.Predicted)
			if t.Error != "" {
				predicted = "error: " + t.Error
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", t.ContestNumber, predicted, formatNumbers(t.Drawn),
				t.Matches, t.Payout.StringFixed(2), t.Cumulative.StringFixed(2))
		}
	})
}

func newLeakageCmd(opts *globalOptions) *cobra.Command {
	var trainFraction float64

	cmd := &cobra.Command{
		Use:   "leakage",
		Short: "Check a chronological train/test split for data leakage",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			draws, err := a.draws(cmd.Context())
			if err != nil {
				return err
			}
			training, test, err := backtest.SplitChronological(draws, trainFraction)
			if err != nil {
				return err
			}

			report := a.container.Engine.CheckDataLeakage(training, test)
			return a.emit(cmd.Context(), domain.NewLeakageAnalysis(opts.lottery, report), func(w io.Writer) error {
				fmt.Fprintf(w, "training %d draws, test %d draws\n", len(training), len(test))
				if !report.HasLeakage {
					fmt.Fprintln(w, "no leakage detected")
					return nil
				}
				for _, d := range report.Details {
					fmt.Fprintf(w, "LEAK: %s\n", d)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&trainFraction, "train-fraction", 0.8, "Share of the oldest draws used for training")
	return cmd
}
