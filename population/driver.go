/*
Package population runs many independent lives and reduces them to one
population bundle and one fitness value.

PURPOSE:
  The Driver splits a population of N lives into one batch per worker.
  Every worker owns a private bundle and a private random stream, so no
  state is shared while lives are simulated. When a worker finishes, its
  bundle is handed back once and merged into the population bundle.

KEY CONCEPTS IN THIS FILE (driver.go):
  - RunRequest: Strategy, population size, worker count, bundle mode, seed
  - Split: n/workers lives per worker, the remainder goes to the last one
  - WorkerSeed: Deterministic per-worker PCG seeds derived from the run
    seed with xxhash, so the same request reproduces the same result
  - Run: errgroup fan-out; any worker error fails the whole run

MERGE ORDER:
  Worker bundles are merged in worker index order, never in completion
  order. Summary statistics are order independent up to rounding, but a
  fixed order keeps histogram bins bit-for-bit reproducible.

SEE ALSO:
  - fitness.go: Composition table over the population bundle
  - lifetime/person.go: One simulated life
*/
package population

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/world"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// RunRequest describes one population run.
type RunRequest struct {
	Strategy lifetime.Strategy `json:"strategy"`
	Gender   lifetime.Gender   `json:"gender"`
	Lives    int               `json:"lives"`
	Workers  int               `json:"workers,omitempty"`
	Mode     lifetime.Mode     `json:"mode"`
	Seed     uint64            `json:"seed,omitempty"`
	Weights  Weights           `json:"weights,omitempty"`
}

// Validate reports every problem of the request at once.
func (r RunRequest) Validate() error {
	var errs error
	if r.Lives < 1 {
		errs = multierr.Append(errs, fmt.Errorf("lives must be at least 1, got %d", r.Lives))
	}
	if r.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("workers must not be negative, got %d", r.Workers))
	}
	if _, err := lifetime.ParseGender(string(r.Gender)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := lifetime.ParseMode(string(r.Mode)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := r.Strategy.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := r.Weights.Validate(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errs)
	}
	return nil
}

// Result is the outcome of a succeeded run.
type Result struct {
	Bundle      *lifetime.Bundle
	Composition Composition
	Fitness     float64
	Seed        uint64
	Lives       int
	Workers     int
	Duration    time.Duration
}

// =============================================================================
// DRIVER
// =============================================================================

// Driver runs populations against one set of world rules.
type Driver struct {
	rules   world.Rules
	logger  *zap.Logger
	metrics *Metrics
	workers int
}

// Option configures a Driver.
type Option func(d *Driver)

// WithLogger sets the logger. nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// WithWorkers sets the worker count used when a request leaves it at 0.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDriver creates a driver. The default worker count is GOMAXPROCS.
func NewDriver(rules world.Rules, opts ...Option) *Driver {
	d := &Driver{
		rules:   rules,
		logger:  zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rules returns the world rules every life is simulated under.
func (d *Driver) Rules() world.Rules { return d.rules }

// Run simulates the population and composes its fitness table.
func (d *Driver) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Mode == "" {
		req.Mode = lifetime.ModeBasic
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Workers == 0 {
		req.Workers = d.workers
	}
	if req.Seed == 0 {
		req.Seed = rand.Uint64()
	}

	start := time.Now()
	logger := d.logger.With(
		zap.String("strategy", req.Strategy.Name),
		zap.Int("lives", req.Lives),
		zap.Int("workers", req.Workers),
		zap.Uint64("seed", req.Seed),
	)
	logger.Info("population run started")

	shares := Split(req.Lives, req.Workers)
	bundles := make([]*lifetime.Bundle, len(shares))

	g, ctx := errgroup.WithContext(ctx)
	for i, lives := range shares {
		g.Go(func() error {
			workerStart := time.Now()
			b, err := d.simulate(ctx, req, i, lives)
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			bundles[i] = b
			d.metrics.observeLives(lives)
			d.metrics.observeWorker(time.Since(workerStart))
			logger.Debug("worker finished", zap.Int("worker", i), zap.Int("worker_lives", lives))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.metrics.observeRun(StatusFailed, time.Since(start))
		logger.Error("population run failed", zap.Error(err))
		return nil, err
	}

	population := lifetime.NewBundle(req.Mode, d.rules)
	for i, b := range bundles {
		if err := population.Merge(b); err != nil {
			d.metrics.observeRun(StatusFailed, time.Since(start))
			return nil, fmt.Errorf("failed to merge worker %d: %w", i, err)
		}
	}

	rows, err := Compose(population, req.Weights)
	if err != nil {
		d.metrics.observeRun(StatusFailed, time.Since(start))
		return nil, err
	}

	res := &Result{
		Bundle:      population,
		Composition: rows,
		Fitness:     rows.Fitness(),
		Seed:        req.Seed,
		Lives:       req.Lives,
		Workers:     req.Workers,
		Duration:    time.Since(start),
	}
	d.metrics.observeRun(StatusSucceeded, res.Duration)
	d.metrics.observeFitness(res.Fitness)
	logger.Info("population run finished",
		zap.Duration("duration", res.Duration),
		zap.Float64("fitness", res.Fitness),
	)
	return res, nil
}

// simulate runs one worker's batch into a private bundle.
func (d *Driver) simulate(ctx context.Context, req RunRequest, worker, lives int) (*lifetime.Bundle, error) {
	s1, s2 := WorkerSeed(req.Seed, worker)
	rng := rand.New(rand.NewPCG(s1, s2))

	b := lifetime.NewBundle(req.Mode, d.rules)
	for i := 0; i < lives; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := lifetime.NewPerson(req.Strategy, req.Gender, d.rules, req.Mode, rng)
		if err := b.Merge(p.LiveLife()); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// =============================================================================
// PARTITIONING
// =============================================================================

// Split divides n lives across workers. Every worker gets n/workers and
// the last one also takes the remainder.
func Split(n, workers int) []int {
	if workers < 1 {
		workers = 1
	}
	shares := make([]int, workers)
	for i := range shares {
		shares[i] = n / workers
	}
	shares[workers-1] += n % workers
	return shares
}

// WorkerSeed derives the two PCG seed words of one worker.
func WorkerSeed(seed uint64, worker int) (uint64, uint64) {
	key := strconv.FormatUint(seed, 10) + "/" + strconv.Itoa(worker)
	return xxhash.Sum64String(key), xxhash.Sum64String(key + "/inc")
}
