package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports the health of each backing component
// @Description Readiness status per component
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components,omitempty"`
}

// RegisterDocumentBody is the JSON form of a document upload. Exactly one
// of Text and Content should be set; Content is base64 in JSON.
// @Description Document upload
type RegisterDocumentBody struct {
	ID       string `json:"id,omitempty" example:"42"`
	Title    string `json:"title,omitempty" example:"Quarterly report"`
	MimeType string `json:"mime_type,omitempty" example:"application/pdf"`
	Text     string `json:"text,omitempty"`
	Content  []byte `json:"content,omitempty" swaggertype:"string" format:"base64"`
}

// SearchRequest is the body of a semantic search
// @Description Semantic search request
type SearchRequest struct {
	Query string `json:"query" example:"river crossing"`
	K     int    `json:"k,omitempty" example:"10"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the database, the queue backend and the other configured components
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Components: make(map[string]string, len(s.checks))}
	status := http.StatusOK
	for name, p := range s.checks {
		if err := p.Ping(r.Context()); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the generated OpenAPI document.
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Document endpoints

// handleRegisterDocument godoc
// @Summary      Upload a document
// @Description  Stores the raw content and creates a document in the uploaded state. Accepts multipart/form-data (file, id, title) or JSON.
// @Tags         Documents
// @Accept       json,mpfd
// @Produce      json
// @Param        request  body      RegisterDocumentBody  false  "JSON upload"
// @Success      201      {object}  domain.Document
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      413      {object}  ErrorResponse  "Upload too large"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /documents [post]
func (s *Server) handleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.docService.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "failed to register document")
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// decodeUpload reads a document upload from a multipart form or a JSON body.
func decodeUpload(r *http.Request) (driving.RegisterDocumentRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return driving.RegisterDocumentRequest{}, fmt.Errorf("missing file: %w", err)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return driving.RegisterDocumentRequest{}, err
		}
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(content)
		}
		title := r.FormValue("title")
		if title == "" {
			title = header.Filename
		}
		return driving.RegisterDocumentRequest{
			ID:       r.FormValue("id"),
			Title:    title,
			MimeType: mimeType,
			Content:  content,
		}, nil
	}

	var body RegisterDocumentBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return driving.RegisterDocumentRequest{}, err
		}
		return driving.RegisterDocumentRequest{}, errors.New("invalid request body")
	}
	content := body.Content
	mimeType := body.MimeType
	if body.Text != "" {
		content = []byte(body.Text)
		if mimeType == "" {
			mimeType = "text/plain; charset=utf-8"
		}
	}
	if mimeType == "" && len(content) > 0 {
		mimeType = http.DetectContentType(content)
	}
	return driving.RegisterDocumentRequest{
		ID:       body.ID,
		Title:    body.Title,
		MimeType: mimeType,
		Content:  content,
	}, nil
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  Lists documents, optionally filtered by status
// @Tags         Documents
// @Produce      json
// @Param        status  query     string  false  "uploaded, queued, processing, processed or failed"
// @Param        limit   query     int     false  "Page size (default 50, max 500)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {array}   domain.Document
// @Failure      400     {object}  ErrorResponse  "Invalid status"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	docs, err := s.docService.List(r.Context(), domain.DocumentStatus(q.Get("status")), limit, offset)
	if err != nil {
		s.writeServiceError(w, err, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Returns a document with its extracted, translated and summarized text
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Cancels the active job and deletes the chunks, the content and the document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docService.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err, "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: "deleted"})
}

// Processing endpoints

// handleRequestProcessing godoc
// @Summary      Request processing
// @Description  Enqueues a full processing job. Returns the already active job if there is one.
// @Tags         Processing
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  domain.Job
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/process [post]
func (s *Server) handleRequestProcessing(w http.ResponseWriter, r *http.Request) {
	job, err := s.ingestionService.RequestProcessing(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to request processing")
		return
	}

	writeJSON(w, http.StatusAccepted, job)
}

// handleGetJobStatus godoc
// @Summary      Get job status
// @Description  Returns the latest processing job of a document
// @Tags         Processing
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Job
// @Failure      404  {object}  ErrorResponse  "No job for document"
// @Router       /documents/{id}/job [get]
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.ingestionService.GetJobStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to get job status")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob godoc
// @Summary      Cancel job
// @Description  Cancels a pending or processing job. A processing job stops at the next stage boundary.
// @Tags         Processing
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  domain.Job
// @Failure      404  {object}  ErrorResponse  "Job not found"
// @Failure      409  {object}  ErrorResponse  "Job already finished"
// @Router       /jobs/{id}/cancel [post]
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.ingestionService.CancelJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to cancel job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleQueueStats godoc
// @Summary      Queue statistics
// @Description  Returns job counts by status
// @Tags         Processing
// @Produce      json
// @Success      200  {object}  domain.QueueStats
// @Router       /queue/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingestionService.QueueStats(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "failed to get queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Search endpoints

// handleSearch godoc
// @Summary      Semantic search
// @Description  Embeds the query and returns the k most similar chunks
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      SearchRequest  true  "Search query"
// @Success      200      {object}  domain.SearchResult
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      409      {object}  ErrorResponse  "Query embedding does not match the corpus dimension"
// @Failure      503      {object}  ErrorResponse  "Embedding not configured"
// @Router       /search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.searchService.SemanticSearch(r.Context(), req.Query, req.K)
	if err != nil {
		s.writeServiceError(w, err, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Admin endpoints

// handleReindex godoc
// @Summary      Reindex corpus
// @Description  Clears the vector store and requests processing for every processed document
// @Tags         Admin
// @Produce      json
// @Success      202  {object}  driving.ReindexReport
// @Failure      409  {object}  ErrorResponse  "Reindex already in progress"
// @Router       /admin/reindex [post]
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingestionService.Reindex(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "reindex failed")
		return
	}

	writeJSON(w, http.StatusAccepted, report)
}

// handleCapabilities godoc
// @Summary      Capability status
// @Description  Reports which capabilities have a configured provider
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  runtime.Status
// @Router       /admin/capabilities [get]
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if s.capabilities == nil {
		writeError(w, http.StatusServiceUnavailable, "capabilities not available")
		return
	}
	writeJSON(w, http.StatusOK, s.capabilities.Status())
}

// Helper functions

// writeServiceError maps domain errors to status codes. Unknown errors are
// logged and answered with fallback.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrReindexInProgress),
		errors.Is(err, domain.ErrDimensionMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnconfigured),
		errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, domain.ErrExternalServiceTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
