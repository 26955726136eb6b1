package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the workers in one process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), true, true)
	},
}

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run only the API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), true, false)
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the processing workers and maintenance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), false, true)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, apiCmd, workerCmd)
}

// run blocks until ctx is cancelled, then stops the workers (letting
// in-flight jobs finish) and shuts the server down.
func run(ctx context.Context, withAPI, withWorker bool) error {
	logger.Info("sercha-ingest starting", "version", version, "api", withAPI, "worker", withWorker)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if withAPI && !withWorker && cfg.Queue == config.BackendMemory {
		logger.Warn("in-memory queue without a worker: jobs will never be processed")
	}

	if withWorker {
		w := a.newWorker()
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	if !withAPI {
		<-ctx.Done()
		logger.Info("shutdown signal received, stopping")
		return nil
	}

	return a.newServer().Run(ctx)
}
