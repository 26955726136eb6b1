package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

var (
	registerID      string
	registerTitle   string
	registerMime    string
	registerProcess bool
	registerWait    bool

	processWait bool

	listStatus string
	listLimit  int
	listJSON   bool
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage uploaded documents",
}

var registerCmd = &cobra.Command{
	Use:   "register [file]",
	Short: "Register a file as a new document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a document and its latest job",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document, its content and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var processCmd = &cobra.Command{
	Use:     "process [id]",
	Aliases: []string{"reprocess"},
	Short:   "Request (re)processing of a document",
	Long: `Enqueues a processing job for the document. An already active job is
reused. With --wait the job is processed in this process instead of waiting
for a worker.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	registerCmd.Flags().StringVar(&registerID, "id", "", "document id (generated when empty)")
	registerCmd.Flags().StringVar(&registerTitle, "title", "", "document title (defaults to the file name)")
	registerCmd.Flags().StringVar(&registerMime, "mime-type", "", "mime type (detected when empty)")
	registerCmd.Flags().BoolVar(&registerProcess, "process", false, "request processing after registering")
	registerCmd.Flags().BoolVar(&registerWait, "wait", false, "with --process, process the job in this process")

	processCmd.Flags().BoolVar(&processWait, "wait", false, "process the job in this process")

	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status (uploaded, queued, processing, processed, failed)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "maximum number of documents")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")

	documentCmd.AddCommand(registerCmd, listCmd, showCmd, deleteCmd, processCmd)
	rootCmd.AddCommand(documentCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	title := registerTitle
	if title == "" {
		title = filepath.Base(path)
	}
	mimeType := registerMime
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.docs.Register(ctx, driving.RegisterDocumentRequest{
		ID:       registerID,
		Title:    title,
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	cmd.Printf("Registered document %s (%s, %d bytes)\n", doc.ID, doc.MimeType, len(content))

	if !registerProcess {
		return nil
	}
	return requestProcessing(ctx, cmd, a, doc.ID, registerWait)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return requestProcessing(ctx, cmd, a, args[0], processWait)
}

func requestProcessing(ctx context.Context, cmd *cobra.Command, a *app, documentID string, wait bool) error {
	job, err := a.ingestion.RequestProcessing(ctx, documentID)
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}
	cmd.Printf("Job %s is %s\n", job.ID, job.Status)

	if !wait {
		return nil
	}

	job, err = a.drainUntilDone(ctx, job.ID)
	if err != nil {
		return err
	}
	printJob(cmd, job)
	return nil
}

// drainUntilDone claims and processes jobs in this process until jobID is
// terminal. Other jobs claimed on the way are processed too.
func (a *app) drainUntilDone(ctx context.Context, jobID string) (*domain.Job, error) {
	timeout := time.Duration(a.cfg.Worker.DequeueTimeout) * time.Second
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		job, err := a.queue.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		claimed, err := a.queue.ClaimWithTimeout(ctx, timeout)
		if err != nil {
			return nil, fmt.Errorf("claim failed: %w", err)
		}
		if claimed == nil {
			continue
		}
		// Stage failures are recorded on the job itself
		_ = a.pipeline.Process(ctx, claimed)
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.docs.List(ctx, domain.DocumentStatus(listStatus), listLimit, 0)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if listJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	for _, d := range docs {
		cmd.Printf("  %s  %-10s  %s\n", d.ID, d.Status, d.Title)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.docs.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("show failed: %w", err)
	}

	cmd.Printf("ID:       %s\n", doc.ID)
	cmd.Printf("Title:    %s\n", doc.Title)
	cmd.Printf("Status:   %s\n", doc.Status)
	cmd.Printf("Type:     %s\n", doc.MimeType)
	if doc.Language != "" {
		cmd.Printf("Language: %s\n", doc.Language)
	}
	if doc.Summary != nil {
		cmd.Printf("Summary:  %s\n", *doc.Summary)
	}

	job, err := a.ingestion.GetJobStatus(ctx, doc.ID)
	if err == nil {
		printJob(cmd, job)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.docs.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func printJob(cmd *cobra.Command, job *domain.Job) {
	cmd.Printf("Job:      %s %s (%s, %d%%)\n", job.ID, job.Status, job.CurrentStep, job.Progress)
	if job.ErrorMessage != nil {
		cmd.Printf("Error:    %s\n", *job.ErrorMessage)
	}
	for _, w := range job.Warnings {
		cmd.Printf("Warning:  %s\n", w)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
