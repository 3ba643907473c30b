package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

type runOptions struct {
	lives   int
	workers int
	preset  string
	mode    string
	gender  string
	seed    uint64
	weights map[string]*float64
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{weights: map[string]*float64{}}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a population and print its fitness table",
		Long: `Simulates a population under the configured strategy and world rules and
writes the fitness composition table to stdout as CSV. A summary line goes
to stderr.

Flags override the configuration file. --preset replaces the configured
strategy entirely. Each fitness component has a weight flag named after it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd, root)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPopulation(ctx, cmd, root, req)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.lives, "lives", 0, "Number of lives to simulate")
	f.IntVar(&opts.workers, "workers", 0, "Worker goroutines (0 uses GOMAXPROCS)")
	f.StringVar(&opts.preset, "preset", "", "Strategy preset: default, conservative-saver, early-retiree, no-savings")
	f.StringVar(&opts.mode, "mode", "", "Statistics mode: basic or full")
	f.StringVar(&opts.gender, "gender", "", "Gender: f or m")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed (0 draws one)")
	for _, c := range population.Components() {
		opts.weights[c.Name] = f.Float64(c.Flag, 0, "Weight of "+c.Name)
	}
	return cmd
}

// request starts from the configured run and applies the flags that were
// set explicitly.
func (o *runOptions) request(cmd *cobra.Command, root *rootOptions) (population.RunRequest, error) {
	req, err := root.cfg.RunRequest()
	if err != nil {
		return population.RunRequest{}, err
	}

	f := cmd.Flags()
	if f.Changed("lives") {
		req.Lives = o.lives
	}
	if f.Changed("workers") {
		req.Workers = o.workers
	}
	if f.Changed("seed") {
		req.Seed = o.seed
	}
	if f.Changed("mode") {
		mode, err := lifetime.ParseMode(o.mode)
		if err != nil {
			return population.RunRequest{}, err
		}
		req.Mode = mode
	}
	if f.Changed("gender") {
		gender, err := lifetime.ParseGender(o.gender)
		if err != nil {
			return population.RunRequest{}, err
		}
		req.Gender = gender
	}
	if f.Changed("preset") {
		preset, ok := lifetime.Presets()[o.preset]
		if !ok {
			return population.RunRequest{}, fmt.Errorf("unknown strategy preset %q", o.preset)
		}
		req.Strategy = preset
	}

	weights := population.Weights{}
	for name, v := range req.Weights {
		weights[name] = v
	}
	for _, c := range population.Components() {
		if f.Changed(c.Flag) {
			weights[c.Name] = *o.weights[c.Name]
		}
	}
	req.Weights = weights

	if err := req.Validate(); err != nil {
		return population.RunRequest{}, err
	}
	return req, nil
}

func runPopulation(ctx context.Context, cmd *cobra.Command, root *rootOptions, req population.RunRequest) error {
	driver := population.NewDriver(root.cfg.World, population.WithLogger(root.logger))

	res, err := driver.Run(ctx, req)
	if err != nil {
		return err
	}

	if err := res.Composition.WriteCSV(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write fitness table: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s lives on %d workers in %s, seed %d, fitness %s\n",
		req.Strategy.Name,
		humanize.Comma(int64(res.Lives)),
		res.Workers,
		res.Duration.Round(time.Millisecond),
		res.Seed,
		humanize.CommafWithDigits(res.Fitness, 2),
	)
	return nil
}
