package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/config"
)

var (
	configFile string

	// Loaded by the root command before any subcommand runs.
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sercha-ingest",
	Short: "Document ingestion and semantic retrieval service",
	Long: `sercha-ingest accepts uploaded documents and turns them into searchable
chunks: text is extracted, translated, summarized, chunked and embedded by
background workers. Configuration comes from the environment, an optional
.env file and an optional config file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return nil
}
