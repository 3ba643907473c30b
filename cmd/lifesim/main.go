/*
main.go - lifesim entry point

PURPOSE:
  Command-line front end of the lifetime simulator. One binary runs a
  population locally, serves the HTTP API, or feeds numbers through a
  single accumulator.

COMMANDS:
  run         Simulate a population and print the fitness table as CSV
  serve       Start the HTTP API with a background run queue
  accumulate  Read numbers from stdin into one accumulator

GLOBAL FLAGS:
  --config    TOML configuration file (default: built-in defaults)
  --verbose   Development logging at debug level

EXAMPLES:
  # 50k lives of the conservative saver, fitness = mean consumption
  lifesim run --preset conservative-saver --lives 50000 \
      --consumption_avg_lifetime 1

  # Serve with a file database
  lifesim serve --config lifesim.toml --db ./runs.db

  # Median of a column
  cut -d, -f2 data.csv | lifesim accumulate --descriptor '{"kind":"quantile"}' --q 0.5

SEE ALSO:
  - config/config.go: Configuration file layout
  - population/driver.go: Population runs
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/lifetime-engine/config"
)

// rootOptions carries the global flags and what they resolve to.
type rootOptions struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "lifesim",
		Short: "Monte Carlo lifetime financial simulator",
		Long: `lifesim simulates many individual lifetimes of saving, retiring and drawing
down funds, and scores a saving strategy by the statistics of the population.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file (TOML)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Print detailed execution info")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newAccumulateCmd(opts))
	return cmd
}

func (o *rootOptions) init() error {
	o.cfg = config.Default()
	if o.configPath != "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}

	logger, err := newLogger(o.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	o.logger = logger
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
