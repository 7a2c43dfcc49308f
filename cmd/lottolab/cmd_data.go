package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/history"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV or JSON draw history into the store",
		Long: `Import validates a draw export against the selected lottery and upserts
it into the store. Re-importing a contest replaces the stored draw.

CSV rows are "contest,date,n1,...,nk" (or a single space/dash separated
numbers column); JSON is an array of {contest_number, date, numbers}.

Examples:
  lottolab import megasena.csv
  lottolab import --lottery quina quina.json`,
		Args: cobra.ExactArgs(1),
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
			draws, err := history.LoadFile(args[0], lottery)
			if err != nil {
				return err
			}
			if err := a.container.DrawRepo.Save(cmd.Context(), lottery.ID, draws); err != nil {
				return err
			}
			total, err := a.container.DrawRepo.Count(cmd.Context(), lottery.ID)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Imported %d %s draws (latest contest %d, %d stored)\n",
				len(draws), lottery.ID, domain.LatestContest(draws), total)
			return nil
		},
	}
}

func newLotteriesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lotteries",
		Short: "List the configured lotteries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			lotteries := a.container.Engine.Lotteries()
			stored := make([]int, len(lotteries))
			for i, l := range lotteries {
				if stored[i], err = a.container.DrawRepo.Count(cmd.Context(), l.ID); err != nil {
					return err
				}
			}

			return flushTable(a.out, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNAME\tPOOL\tPICK\tTICKET\tSTORED")
				for i, l := range lotteries {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\n", l.ID, l.Name, l.PoolSize, l.Pick, l.TicketCost.StringFixed(2), stored[i])
				}
			})
		},
	}
}

func formatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

func flushTable(w io.Writer, write func(tw *tabwriter.Writer)) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	write(tw)
	return tw.Flush()
}
