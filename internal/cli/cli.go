// Package cli implements the eventfeed update command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/david/eventfeed/internal/config"
	"github.com/david/eventfeed/internal/ingest"
	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

const (
	ExitSuccess          = 0
	ExitError            = 1
	ExitAllSourcesFailed = 2
)

// Options are the per-invocation overrides of the environment config.
type Options struct {
	Out      string
	Sources  string
	MaxItems int
	Stats    bool
}

// Runner executes one update: collect, write, report.
type Runner struct {
	Deps   ingest.Deps
	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger
}

// NewDeps builds the production fetchers from cfg.
func NewDeps(cfg config.Config, log logger.Logger) ingest.Deps {
	return ingest.Deps{
		HTTP:  ingest.NewHTTPFetcher(ingest.WithTimeout(cfg.Timeout), ingest.WithRateLimit(cfg.RateLimit)),
		Colly: ingest.NewCollyFetcher(cfg.Timeout, cfg.RateLimit),
		Log:   log,
	}
}

// Update loads the registry, collects every source and writes the dataset
// atomically. The dataset is written even when every source failed.
func (r *Runner) Update(ctx context.Context, opts Options) (models.Dataset, ingest.Report, error) {
	reg, err := ingest.LoadRegistry(opts.Sources)
	if err != nil {
		return models.Dataset{}, ingest.Report{}, err
	}
	if opts.MaxItems > 0 {
		reg.MaxItems = opts.MaxItems
	}

	deps := r.Deps
	if deps.Log == nil {
		deps.Log = r.Log
	}
	agg, err := ingest.NewAggregator(reg, deps)
	if err != nil {
		return models.Dataset{}, ingest.Report{}, err
	}

	ds, report := agg.Run(ctx)
	if err := ingest.WriteDataset(opts.Out, ds); err != nil {
		return ds, report, err
	}
	return ds, report, nil
}

// Run performs one update, prints the outcome and returns the process exit
// code.
func (r *Runner) Run(ctx context.Context, opts Options) (int, error) {
	ds, report, err := r.Update(ctx, opts)
	if err != nil {
		return ExitError, err
	}

	for _, f := range report.Failures {
		fmt.Fprintln(r.Stderr, f.String())
	}
	fmt.Fprintf(r.Stdout, "Generated %s with %d items.\n", opts.Out, len(ds.Items))
	if opts.Stats {
		RenderStats(r.Stdout, report)
	}

	if report.AllFailed() {
		return ExitAllSourcesFailed, nil
	}
	return ExitSuccess, nil
}

// NewRootCmd creates the root command. The exit code of the run is stored
// in *exitCode.
func NewRootCmd(cfg config.Config, r *Runner, exitCode *int) *cobra.Command {
	opts := Options{Out: cfg.Output, Sources: cfg.Sources, MaxItems: cfg.MaxItems}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Collect Guangzhou events into a JSON dataset",
		Long: `Fetches every enabled source in the registry, filters photo-op
listings, deduplicates and writes the dataset atomically.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if r.Stdout == nil {
				r.Stdout = cmd.OutOrStdout()
			}
			if r.Stderr == nil {
				r.Stderr = cmd.ErrOrStderr()
			}
			code, err := r.Run(cmd.Context(), opts)
			*exitCode = code
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", opts.Out, "Output JSON file")
	cmd.Flags().StringVar(&opts.Sources, "sources", opts.Sources, "Source registry YAML (default: embedded)")
	cmd.Flags().IntVar(&opts.MaxItems, "max-items", opts.MaxItems, "Maximum items in the dataset")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "Print a per-source summary table")

	return cmd
}

// Execute runs the update command and exits the process.
func Execute() {
	if err := config.LoadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	defer func() { _ = log.Sync() }()

	code := ExitSuccess
	r := &Runner{Deps: NewDeps(cfg, log), Log: log}
	if err := NewRootCmd(cfg, r, &code).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == ExitSuccess {
			code = ExitError
		}
	}
	_ = log.Sync()
	os.Exit(code)
}
