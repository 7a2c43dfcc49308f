// Command lottolab runs the lottery engine from the command line against the
// stored draw history or a CSV/JSON export.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/lottolab/internal/config"
	"github.com/aristath/lottolab/internal/di"
	"github.com/aristath/lottolab/internal/domain"
	"github.com/aristath/lottolab/internal/modules/history"
	"github.com/aristath/lottolab/pkg/logger"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	lottery  string
	file     string
	format   string
	logLevel string
	limit    int
	archive  bool
}

// app is the wired engine for one command invocation
type app struct {
	container *di.Container
	opts      *globalOptions
	log       zerolog.Logger
	out       io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "lottolab",
		Short: "Statistical analysis of lottery draw histories",
		Long: `Lottolab analyses lottery draw histories: number frequencies, pair
correlations, hybrid number scores, genetic candidate generation and
walk-forward backtests of prediction strategies.

Draws are read from the local store (see 'lottolab import') or, with --file,
directly from a CSV or JSON export.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.lottery, "lottery", "l", domain.LotteryMegaSena.ID, "Lottery ID")
	flags.StringVarP(&opts.file, "file", "f", "", "Read draws from a CSV or JSON file instead of the store")
	flags.StringVar(&opts.format, "format", "table", "Output format (table|json)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	flags.IntVar(&opts.limit, "limit", 0, "Use only the last N stored draws (0 = all)")
	flags.BoolVar(&opts.archive, "archive", false, "Upload the result to the configured reports bucket")

	root.AddCommand(
		newImportCmd(opts),
		newLotteriesCmd(opts),
		newFrequenciesCmd(opts),
		newCorrelationCmd(opts),
		newScoreCmd(opts),
		newGenerateCmd(opts),
		newBacktestCmd(opts),
		newLeakageCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp loads the configuration and wires the engine
func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	switch opts.format {
	case "table", "json":
	default:
		return nil, fmt.Errorf("unsupported format %q", opts.format)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  opts.logLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})

	container, err := di.Wire(cfg, log)
	if err != nil {
		return nil, err
	}

	return &app{container: container, opts: opts, log: log, out: cmd.OutOrStdout()}, nil
}

func (a *app) Close() {
	if err := a.container.Close(); err != nil {
		a.log.Error().Err(err).Msg("Failed to release resources")
	}
}

func (a *app) lottery() (domain.Lottery, error) {
	return a.container.Engine.Lottery(a.opts.lottery)
}

// draws returns the draws selected by --file or --limit
func (a *app) draws(ctx context.Context) ([]domain.Draw, error) {
	lottery, err := a.lottery()
	if err != nil {
		return nil, err
	}

	if a.opts.file != "" {
		draws, err := history.LoadFile(a.opts.file, lottery)
		if err != nil {
			return nil, err
		}
		return domain.TrailingWindow(draws, a.opts.limit), nil
	}

	draws, err := a.container.DrawRepo.List(ctx, lottery.ID, a.opts.limit)
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, fmt.Errorf("no draws stored for %s; run 'lottolab import' first or pass --file", lottery.ID)
	}
	return draws, nil
}

// emit prints an analysis as JSON, or through table when the table format is selected,
// then archives it when --archive is set
func (a *app) emit(ctx context.Context, analysis domain.Analysis, table func(w io.Writer) error) error {
	if a.opts.format == "json" {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else if err := table(a.out); err != nil {
		return err
	}

	if !a.opts.archive {
		return nil
	}
	key, err := a.container.Engine.Archive(ctx, analysis)
	if err != nil {
		return fmt.Errorf("failed to archive result: %w", err)
	}
	a.log.Info().Str("key", key).Msg("Result archived")
	return nil
}
