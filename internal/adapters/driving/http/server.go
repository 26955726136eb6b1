package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	// Registers the generated OpenAPI document served at /swagger/doc.json.
	_ "github.com/custodia-labs/sercha-ingest/docs"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	docService       driving.DocumentService
	ingestionService driving.IngestionService
	searchService    driving.SearchService
	capabilities     *runtime.Services

	// Infrastructure health checks, keyed by component name
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: 32 << 20,
	}
}

// Services bundles the driving ports the API exposes.
type Services struct {
	Documents    driving.DocumentService
	Ingestion    driving.IngestionService
	Search       driving.SearchService
	Capabilities *runtime.Services
}

// NewServer creates a new HTTP server. checks are pinged by /ready; nil
// entries are skipped.
func NewServer(cfg Config, svc Services, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           logger,
		docService:       svc.Documents,
		ingestionService: svc.Ingestion,
		searchService:    svc.Search,
		capabilities:     svc.Capabilities,
		checks:           make(map[string]Pinger),
	}
	for name, p := range checks {
		if p != nil {
			s.checks[name] = p
		}
	}

	s.setupRoutes(cfg.MaxUploadBytes)

	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(maxUpload int64) {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Document endpoints
	s.router.Handle("POST /api/v1/documents",
		http.MaxBytesHandler(http.HandlerFunc(s.handleRegisterDocument), maxUpload))
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)

	// Processing endpoints
	s.router.HandleFunc("POST /api/v1/documents/{id}/process", s.handleRequestProcessing)
	s.router.HandleFunc("GET /api/v1/documents/{id}/job", s.handleGetJobStatus)
	s.router.HandleFunc("POST /api/v1/jobs/{id}/cancel", s.handleCancelJob)
	s.router.HandleFunc("GET /api/v1/queue/stats", s.handleQueueStats)

	// Search endpoints
	s.router.HandleFunc("POST /api/v1/search", s.handleSearch)

	// Admin endpoints
	s.router.HandleFunc("POST /api/v1/admin/reindex", s.handleReindex)
	s.router.HandleFunc("GET /api/v1/admin/capabilities", s.handleCapabilities)
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
