/*
queue.go - Background run queue

PURPOSE:
  Population runs take seconds to minutes, far longer than an HTTP
  request should block. Submitted runs are recorded as queued and handed
  to a fixed number of runner goroutines that execute them one at a time
  and record the outcome.

DESIGN:
  - Buffered channel of run ids; Submit fails fast with ErrQueueFull
  - Each runner: queued -> running -> succeeded | failed
  - A failed run keeps its error message; nothing is retried
  - Stop closes the channel and waits for queued runs to drain
  - Shutdown drains until its context ends, then cancels the in-flight
    run and fails whatever is still queued

CONFIGURATION:
  - Size:    Channel capacity (default: 16)
  - Runners: Concurrent runs (default: 1). Each run already fans out
             across the driver's workers.

USAGE:
  queue := NewRunQueue(store, driver, WithQueueLogger(logger))
  queue.Start()
  // ... later
  queue.Shutdown(ctx)

SEE ALSO:
  - handlers.go: CreateRun endpoint
  - population/driver.go: Executes a run
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/lifetime-engine/population"
)

var (
	ErrQueueFull    = errors.New("run queue is full")
	ErrQueueStopped = errors.New("run queue is stopped")
)

// Runner executes one population run. *population.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, req population.RunRequest) (*population.Result, error)
}

// RunQueue executes submitted runs in the background.
type RunQueue struct {
	Store   population.RunStore
	Runner  Runner
	Size    int
	Runners int

	logger  *zap.Logger
	now     func() time.Time
	jobs    chan job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

type job struct {
	id  uuid.UUID
	req population.RunRequest
}

// QueueOption configures a RunQueue.
type QueueOption func(q *RunQueue)

// WithQueueLogger sets the logger.
func WithQueueLogger(logger *zap.Logger) QueueOption {
	return func(q *RunQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithQueueSize sets the channel capacity.
func WithQueueSize(n int) QueueOption {
	return func(q *RunQueue) {
		if n > 0 {
			q.Size = n
		}
	}
}

// WithRunners sets the number of concurrent runs.
func WithRunners(n int) QueueOption {
	return func(q *RunQueue) {
		if n > 0 {
			q.Runners = n
		}
	}
}

// NewRunQueue creates a queue. Call Start before submitting.
func NewRunQueue(store population.RunStore, runner Runner, opts ...QueueOption) *RunQueue {
	q := &RunQueue{
		Store:   store,
		Runner:  runner,
		Size:    16,
		Runners: 1,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the runner goroutines.
func (q *RunQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true
	q.jobs = make(chan job, q.Size)
	q.ctx, q.cancel = context.WithCancel(context.Background())

	for i := 0; i < q.Runners; i++ {
		q.wg.Add(1)
		go q.run(i)
	}

	q.logger.Info("run queue started", zap.Int("size", q.Size), zap.Int("runners", q.Runners))
}

// Stop stops accepting runs and waits for queued runs to drain.
func (q *RunQueue) Stop() {
	_ = q.Shutdown(context.Background())
}

// Shutdown stops accepting runs and waits for queued runs to drain until
// ctx ends. Past that the in-flight runs are cancelled, the runs still
// queued are failed, and ctx's error is returned.
func (q *RunQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		q.logger.Warn("cancelling in-flight runs", zap.Error(err))
		q.cancel()
		<-done
	}
	q.cancel()
	q.logger.Info("run queue stopped")
	return err
}

// Submit records a queued run and schedules it.
func (q *RunQueue) Submit(ctx context.Context, req population.RunRequest) (population.RunRecord, error) {
	run := population.RunRecord{
		ID:        uuid.New(),
		Status:    population.StatusQueued,
		Request:   req,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started || q.stopped {
		return population.RunRecord{}, ErrQueueStopped
	}
	if len(q.jobs) == cap(q.jobs) {
		return population.RunRecord{}, ErrQueueFull
	}
	if err := q.Store.SaveRun(ctx, run); err != nil {
		return population.RunRecord{}, fmt.Errorf("failed to save run record: %w", err)
	}
	q.jobs <- job{id: run.ID, req: req}

	q.logger.Info("run queued", zap.String("run_id", run.ID.String()), zap.Int("lives", req.Lives))
	return run, nil
}

func (q *RunQueue) run(runner int) {
	defer q.wg.Done()
	for j := range q.jobs {
		if err := q.process(j); err != nil {
			q.logger.Error("run failed",
				zap.String("run_id", j.id.String()),
				zap.Int("runner", runner),
				zap.Error(err),
			)
		}
	}
}

func (q *RunQueue) process(j job) error {
	// Records are written even after cancellation.
	ctx := context.Background()

	if err := q.ctx.Err(); err != nil {
		return q.fail(ctx, j.id, fmt.Errorf("run queue stopped: %w", err))
	}
	if err := q.Store.UpdateStatus(ctx, j.id, population.StatusRunning, "", q.now()); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	res, err := q.Runner.Run(q.ctx, j.req)
	if err != nil {
		return q.fail(ctx, j.id, err)
	}

	if err := q.Store.SaveResult(ctx, j.id, res.Composition, population.Snapshots(res.Bundle)); err != nil {
		return q.fail(ctx, j.id, fmt.Errorf("failed to save result: %w", err))
	}
	if err := q.Store.UpdateStatus(ctx, j.id, population.StatusSucceeded, "", q.now()); err != nil {
		return fmt.Errorf("failed to mark run succeeded: %w", err)
	}

	q.logger.Info("run succeeded",
		zap.String("run_id", j.id.String()),
		zap.Float64("fitness", res.Fitness),
		zap.Duration("duration", res.Duration),
	)
	return nil
}

func (q *RunQueue) fail(ctx context.Context, id uuid.UUID, cause error) error {
	if err := q.Store.UpdateStatus(ctx, id, population.StatusFailed, cause.Error(), q.now()); err != nil {
		return fmt.Errorf("%w (and failed to record it: %v)", cause, err)
	}
	return cause
}
