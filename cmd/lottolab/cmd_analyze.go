package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/scoring"
	"github.com/aristath/lottolab/internal/services"
)

func newFrequenciesCmd(opts *globalOptions) *cobra.Command {
	var window int

	cmd := &cobra.Command{
		Use:   "frequencies",
		Short: "Classify numbers as hot, warm or cold",
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
			freqs, err := a.container.Engine.Frequencies(opts.lottery, draws, window)
			if err != nil {
				return err
			}

			return a.emit(cmd.Context(), domain.NewFrequencyAnalysis(opts.lottery, window, freqs), func(w io.Writer) error {
				return flushTable(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "NUMBER\tHITS\tRATIO\tTEMPERATURE")
					for _, f := range freqs {
						fmt.Fprintf(tw, "%02d\t%d\t%.3f\t%s\n", f.Number, f.Frequency, f.Ratio, f.Temperature)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "Trailing draws analysed (0 = configured default)")
	return cmd
}

func newCorrelationCmd(opts *globalOptions) *cobra.Command {
	var (
		window int
		top    int
	)

	cmd := &cobra.Command{
		Use:   "correlation",
		Short: "Show the strongest number pair correlations",
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
			m, hit, err := a.container.Engine.BuildCorrelationMap(cmd.Context(), opts.lottery, draws, window)
			if err != nil {
				return err
			}

			entries := m.Entries()
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Correlation > entries[j].Correlation
			})
			if top > 0 && len(entries) > top {
				entries = entries[:top]
			}

			analysis := domain.NewCorrelationAnalysis(opts.lottery, domain.CorrelationAnalysis{
				Entries:   entries,
				Window:    window,
				Threshold: m.Threshold(),
				CacheHit:  hit,
			})
			return a.emit(cmd.Context(), analysis, func(w io.Writer) error {
				fmt.Fprintf(w, "%d significant pairs (threshold %.3f, cached: %t)\n", m.Len(), m.Threshold(), hit)
				return flushTable(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "A\tB\tCORRELATION")
					for _, e := range entries {
						fmt.Fprintf(tw, "%02d\t%02d\t%.4f\n", e.NumberA, e.NumberB, e.Correlation)
					}
				})
			})
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "Trailing draws analysed (0 = configured default)")
	cmd.Flags().IntVar(&top, "top", 20, "Show only the N strongest pairs (0 = all)")
	return cmd
}

// weightFlags are the optional scoring weight overrides
type weightFlags struct {
	frequency   float64
	temporal    float64
	correlation float64
}

func (f *weightFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.frequency, "w-frequency", -1, "Frequency weight (default: configured)")
	cmd.Flags().Float64Var(&f.temporal, "w-temporal", -1, "Temporal weight (default: configured)")
	cmd.Flags().Float64Var(&f.correlation, "w-correlation", -1, "Correlation weight (default: configured)")
}

// resolve returns nil when no weight flag was set
func (f *weightFlags) resolve(defaults scoring.Weights) *scoring.Weights {
	if f.frequency < 0 && f.temporal < 0 && f.correlation < 0 {
		return nil
	}
	w := defaults
	if f.frequency >= 0 {
		w.Frequency = f.frequency
	}
	if f.temporal >= 0 {
		w.Temporal = f.temporal
	}
	if f.correlation >= 0 {
		w.Correlation = f.correlation
	}
	return &w
}

func newScoreCmd(opts *globalOptions) *cobra.Command {
	var (
		weights   weightFlags
		reference []int
		window    int
		top       int
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank numbers by hybrid score",
		Long: `Score combines frequency, multi-window temporal and correlation components
into one weighted score per number.

Examples:
  lottolab score --top 10
  lottolab score --reference 4,8,15 --w-correlation 0.6`,
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
			scores, err := a.container.Engine.ScoreNumbers(cmd.Context(), services.ScoreRequest{
				LotteryID: opts.lottery,
				Draws:     draws,
				Weights:   weights.resolve(a.container.Engine.DefaultWeights()),
				Reference: reference,
				Window:    window,
			})
			if err != nil {
				return err
			}

			shown := scores
			if top > 0 && len(shown) > top {
				shown = shown[:top]
			}

			return a.emit(cmd.Context(), domain.NewScoresAnalysis(opts.lottery, scores), func(w io.Writer) error {
				return flushTable(w, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "RANK\tNUMBER\tSCORE\tFREQUENCY\tTEMPORAL\tCORRELATION")
					for i, s := range shown {
						marker := ""
						if s.LowConfidence {
							marker = " *"
						}
						fmt.Fprintf(tw, "%d\t%02d\t%.4f%s\t%.3f\t%.3f\t%.3f\n", i+1, s.Number, s.TotalScore, marker,
							s.Components.Frequency, s.Components.Temporal, s.Components.Correlation)
					}
				})
			})
		},
	}

	weights.register(cmd)
	cmd.Flags().IntSliceVar(&reference, "reference", nil, "Numbers the correlation component is measured against")
	cmd.Flags().IntVar(&window, "window", 0, "Trailing draws for the correlation map (0 = configured default)")
	cmd.Flags().IntVar(&top, "top", 0, "Show only the N best numbers (0 = all)")
	return cmd
}
