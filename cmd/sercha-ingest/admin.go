package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect and cancel processing jobs",
}

var jobShowCmd = &cobra.Command{
	Use:   "show [document-id]",
	Short: "Show the latest job of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.ingestion.GetJobStatus(ctx, args[0])
		if err != nil {
			return fmt.Errorf("job lookup failed: %w", err)
		}
		printJob(cmd, job)
		return nil
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel [job-id]",
	Short: "Cancel a pending or processing job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		job, err := a.ingestion.CancelJob(ctx, args[0])
		if err != nil {
			return fmt.Errorf("cancel failed: %w", err)
		}
		cmd.Printf("Job %s is %s\n", job.ID, job.Status)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and configured capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.ingestion.QueueStats(ctx)
		if err != nil {
			return fmt.Errorf("queue stats failed: %w", err)
		}
		caps := a.capabilities.Status()

		if statusJSON {
			return printJSON(cmd, map[string]any{
				"backends":     map[string]string{"store": cfg.Store, "queue": cfg.Queue},
				"queue":        stats,
				"capabilities": caps,
			})
		}

		cmd.Printf("Store:  %s\n", cfg.Store)
		cmd.Printf("Queue:  %s\n", cfg.Queue)
		cmd.Println()
		cmd.Printf("Jobs:   pending=%d processing=%d completed=%d failed=%d cancelled=%d\n",
			stats.Pending, stats.Processing, stats.Completed, stats.Failed, stats.Cancelled)
		cmd.Println()
		cmd.Printf("Extraction:     %s\n", enabled(caps.Extraction))
		cmd.Printf("Translation:    %s\n", enabled(caps.Translation))
		cmd.Printf("Summarization:  %s\n", enabled(caps.Summarization))
		if caps.Embedding {
			cmd.Printf("Embedding:      %s (%s, %d dimensions)\n", enabled(true), caps.EmbeddingModel, caps.EmbeddingDimensions)
		} else {
			cmd.Printf("Embedding:      %s\n", enabled(false))
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Clear all chunks and reprocess every processed document",
	Long: `Clears the vector store and requests processing for every processed
document. Run it after switching the embedding model. Only one reindex runs
at a time across all instances.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.ingestion.Reindex(ctx)
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		cmd.Printf("Cleared %d chunks, requeued %d documents, %d failed\n",
			report.ClearedChunks, report.Requeued, report.Failed)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")

	jobCmd.AddCommand(jobShowCmd, jobCancelCmd)
	rootCmd.AddCommand(jobCmd, statusCmd, reindexCmd)
}

func enabled(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
