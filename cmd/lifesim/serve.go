package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/lifetime-engine/api"
	"github.com/warp/lifetime-engine/population"
	"github.com/warp/lifetime-engine/store/memory"
	"github.com/warp/lifetime-engine/store/sqlite"
)

// shutdownTimeout bounds how long active requests, and then queued runs,
// get on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Starts the HTTP API. Submitted runs execute on a background queue and their
results are kept in SQLite (--db) or in memory when no database is set.

On SIGINT/SIGTERM the server stops accepting connections, waits for active
requests, then lets queued runs finish. Runs still going after the
shutdown timeout are cancelled and marked failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			return serve(cmd.Context(), root, cfg.Addr, cfg.DBPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dbPath, "db", "", `SQLite database path, ":memory:" or empty for the memory store`)
	return cmd
}

func serve(ctx context.Context, root *rootOptions, addr, dbPath string) error {
	logger := root.logger
	cfg := root.cfg.Server

	store, closeStore, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := failInterruptedRuns(ctx, store, time.Now()); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	driver := population.NewDriver(root.cfg.World,
		population.WithLogger(logger),
		population.WithMetrics(population.NewMetrics(reg)),
	)
	queue := api.NewRunQueue(store, driver,
		api.WithQueueLogger(logger),
		api.WithQueueSize(cfg.QueueSize),
		api.WithRunners(cfg.Runners),
	)
	queue.Start()
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := queue.Shutdown(drainCtx); err != nil {
			logger.Warn("queued runs abandoned", zap.Error(err))
		}
	}()

	handler := api.NewHandler(store, queue, api.WithLogger(logger))
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Gatherer:       reg,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("db", dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore picks the memory store for an empty path and SQLite otherwise.
func openStore(dbPath string) (population.RunStore, func(), error) {
	if dbPath == "" {
		return memory.New(), func() {}, nil
	}
	store, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, func() { store.Close() }, nil
}

// failInterruptedRuns marks runs a previous process left queued or running
// as failed. Their goroutines died with that process.
func failInterruptedRuns(ctx context.Context, store population.RunStore, now time.Time) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	for _, run := range runs {
		if run.Status.Terminal() {
			continue
		}
		if err := store.UpdateStatus(ctx, run.ID, population.StatusFailed, "interrupted by server restart", now); err != nil {
			return fmt.Errorf("failed to fail interrupted run %s: %w", run.ID, err)
		}
	}
	return nil
}
