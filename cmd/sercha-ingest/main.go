package main

// @title           Sercha Ingest API
// @version         1.0
// @description     Document ingestion and semantic retrieval. Uploaded documents are extracted, translated, summarized, chunked and embedded by background workers, then searched by similarity.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-ingest/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
