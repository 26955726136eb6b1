package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
)

// Mock services for testing

type mockDocumentService struct {
	registerFn func(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error)
	getFn      func(ctx context.Context, id string) (*domain.Document, error)
	listFn     func(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockDocumentService) Register(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status, limit, offset)
	}
	return nil, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockIngestionService struct {
	requestFn func(ctx context.Context, documentID string) (*domain.Job, error)
	statusFn  func(ctx context.Context, documentID string) (*domain.Job, error)
	cancelFn  func(ctx context.Context, jobID string) (*domain.Job, error)
	reindexFn func(ctx context.Context) (*driving.ReindexReport, error)
	statsFn   func(ctx context.Context) (*domain.QueueStats, error)
}

func (m *mockIngestionService) RequestProcessing(ctx context.Context, documentID string) (*domain.Job, error) {
	if m.requestFn != nil {
		return m.requestFn(ctx, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIngestionService) GetJobStatus(ctx context.Context, documentID string) (*domain.Job, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, documentID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestionService) CancelJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, jobID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestionService) Reindex(ctx context.Context) (*driving.ReindexReport, error) {
	if m.reindexFn != nil {
		return m.reindexFn(ctx)
	}
	return &driving.ReindexReport{}, nil
}

func (m *mockIngestionService) QueueStats(ctx context.Context) (*domain.QueueStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &domain.QueueStats{}, nil
}

type mockSearchService struct {
	searchFn func(ctx context.Context, query string, k int) (*domain.SearchResult, error)
}

func (m *mockSearchService) SemanticSearch(ctx context.Context, query string, k int) (*domain.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, k)
	}
	return &domain.SearchResult{Query: query}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type testServer struct {
	docs      *mockDocumentService
	ingestion *mockIngestionService
	search    *mockSearchService
	caps      *runtime.Services
	server    *Server
}

func newTestServer(checks map[string]Pinger) *testServer {
	ts := &testServer{
		docs:      &mockDocumentService{},
		ingestion: &mockIngestionService{},
		search:    &mockSearchService{},
		caps:      runtime.NewServices(ai.Unconfigured{}),
	}
	cfg := DefaultConfig()
	cfg.Version = "test"
	cfg.MaxUploadBytes = 1024
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ts.server = NewServer(cfg, Services{
		Documents:    ts.docs,
		Ingestion:    ts.ingestion,
		Search:       ts.search,
		Capabilities: ts.caps,
	}, checks)
	return ts
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do("GET", "/health", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if resp := decodeBody[StatusResponse](t, rr); resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
}

func TestHandleVersion(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do("GET", "/version", nil, "")

	if resp := decodeBody[VersionResponse](t, rr); resp.Version != "test" {
		t.Errorf("expected version test, got %s", resp.Version)
	}
}

func TestHandleReady(t *testing.T) {
	ts := newTestServer(map[string]Pinger{
		"postgres": &mockPinger{},
		"redis":    nil,
	})

	rr := ts.do("GET", "/ready", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	resp := decodeBody[ReadyResponse](t, rr)
	if resp.Components["postgres"] != "ok" {
		t.Errorf("expected postgres ok, got %v", resp.Components)
	}
	if _, ok := resp.Components["redis"]; ok {
		t.Error("nil checks should be skipped")
	}
}

func TestHandleReady_ComponentDown(t *testing.T) {
	ts := newTestServer(map[string]Pinger{
		"postgres": &mockPinger{},
		"redis":    &mockPinger{err: errors.New("connection refused")},
	})

	rr := ts.do("GET", "/ready", nil, "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
	resp := decodeBody[ReadyResponse](t, rr)
	if resp.Components["redis"] != "connection refused" {
		t.Errorf("expected redis error, got %v", resp.Components)
	}
}

func TestHandleSwaggerDoc(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do("GET", "/swagger/doc.json", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	doc := decodeBody[map[string]any](t, rr)
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/search"]; !ok {
		t.Error("expected /search in api documentation")
	}
}

func TestHandleRegisterDocument_JSON(t *testing.T) {
	ts := newTestServer(nil)
	var got driving.RegisterDocumentRequest
	ts.docs.registerFn = func(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
		got = req
		return domain.NewDocument(req.ID, "ref", req.MimeType, req.Title), nil
	}

	body := `{"id":"42","title":"Notes","text":"Hallo Welt"}`
	rr := ts.do("POST", "/api/v1/documents", strings.NewReader(body), "application/json")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.ID != "42" || string(got.Content) != "Hallo Welt" {
		t.Errorf("unexpected request: %+v", got)
	}
	if !strings.HasPrefix(got.MimeType, "text/plain") {
		t.Errorf("expected text/plain, got %s", got.MimeType)
	}
	if doc := decodeBody[domain.Document](t, rr); doc.Status != domain.DocumentStatusUploaded {
		t.Errorf("expected uploaded, got %s", doc.Status)
	}
}

func TestHandleRegisterDocument_Multipart(t *testing.T) {
	ts := newTestServer(nil)
	var got driving.RegisterDocumentRequest
	ts.docs.registerFn = func(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
		got = req
		return domain.NewDocument("generated", "ref", req.MimeType, req.Title), nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("plain text content"))
	_ = mw.Close()

	rr := ts.do("POST", "/api/v1/documents", &buf, mw.FormDataContentType())

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Title != "report.txt" {
		t.Errorf("expected title from filename, got %q", got.Title)
	}
	if string(got.Content) != "plain text content" {
		t.Errorf("unexpected content %q", got.Content)
	}
	if !strings.HasPrefix(got.MimeType, "text/plain") {
		t.Errorf("expected detected text/plain, got %s", got.MimeType)
	}
}

func TestHandleRegisterDocument_Errors(t *testing.T) {
	ts := newTestServer(nil)
	ts.docs.registerFn = func(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"service rejects", `{"id":"x"}`, http.StatusBadRequest},
		{"too large", `{"text":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do("POST", "/api/v1/documents", strings.NewReader(tt.body), "application/json")
			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestHandleListDocuments(t *testing.T) {
	ts := newTestServer(nil)
	var gotStatus domain.DocumentStatus
	var gotLimit, gotOffset int
	ts.docs.listFn = func(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error) {
		gotStatus, gotLimit, gotOffset = status, limit, offset
		return nil, nil
	}

	rr := ts.do("GET", "/api/v1/documents?status=processed&limit=5&offset=10", nil, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotStatus != domain.DocumentStatusProcessed || gotLimit != 5 || gotOffset != 10 {
		t.Errorf("unexpected arguments: %s %d %d", gotStatus, gotLimit, gotOffset)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rr.Body.String())
	}
}

func TestHandleGetDocument_NotFound(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do("GET", "/api/v1/documents/missing", nil, "")

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	ts := newTestServer(nil)
	var deleted string
	ts.docs.deleteFn = func(ctx context.Context, id string) error {
		deleted = id
		return nil
	}

	rr := ts.do("DELETE", "/api/v1/documents/42", nil, "")

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if deleted != "42" {
		t.Errorf("expected document 42 deleted, got %q", deleted)
	}
}

func TestHandleRequestProcessing(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.requestFn = func(ctx context.Context, documentID string) (*domain.Job, error) {
		return domain.NewJob(documentID, domain.JobTypeFullProcessing), nil
	}

	rr := ts.do("POST", "/api/v1/documents/42/process", nil, "")

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rr.Code)
	}
	job := decodeBody[domain.Job](t, rr)
	if job.DocumentID != "42" || job.Status != domain.JobStatusPending {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestHandleGetJobStatus(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.statusFn = func(ctx context.Context, documentID string) (*domain.Job, error) {
		job := domain.NewJob(documentID, domain.JobTypeFullProcessing)
		job.Status = domain.JobStatusProcessing
		job.CurrentStep = string(domain.StageTranslation)
		job.Progress = 25
		return job, nil
	}

	rr := ts.do("GET", "/api/v1/documents/42/job", nil, "")

	job := decodeBody[domain.Job](t, rr)
	if job.CurrentStep != "translation" || job.Progress != 25 {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestHandleCancelJob_Conflict(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.cancelFn = func(ctx context.Context, jobID string) (*domain.Job, error) {
		return nil, domain.ErrInvalidTransition
	}

	rr := ts.do("POST", "/api/v1/jobs/job-1/cancel", nil, "")

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer(nil)
	var gotK int
	ts.search.searchFn = func(ctx context.Context, query string, k int) (*domain.SearchResult, error) {
		gotK = k
		return &domain.SearchResult{
			Query: query,
			Results: []*domain.RankedChunk{{
				Chunk:      &domain.Chunk{DocumentID: "42", Content: "river"},
				DocumentID: "42",
				Score:      0.9,
			}},
		}, nil
	}

	rr := ts.do("POST", "/api/v1/search", strings.NewReader(`{"query":"river","k":3}`), "application/json")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotK != 3 {
		t.Errorf("expected k 3, got %d", gotK)
	}
	result := decodeBody[domain.SearchResult](t, rr)
	if len(result.Results) != 1 || result.Results[0].DocumentID != "42" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandleSearch_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty query", fmt.Errorf("%w: query is required", domain.ErrInvalidInput), http.StatusBadRequest},
		{"unconfigured", domain.NewStageError(domain.StageEmbedding, domain.ErrUnconfigured), http.StatusServiceUnavailable},
		{"dimension", domain.ErrDimensionMismatch, http.StatusConflict},
		{"timeout", fmt.Errorf("embed: %w", domain.ErrExternalServiceTimeout), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			ts.search.searchFn = func(ctx context.Context, query string, k int) (*domain.SearchResult, error) {
				return nil, tt.err
			}

			rr := ts.do("POST", "/api/v1/search", strings.NewReader(`{"query":"q"}`), "application/json")

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestHandleReindex_InProgress(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.reindexFn = func(ctx context.Context) (*driving.ReindexReport, error) {
		return nil, domain.ErrReindexInProgress
	}

	rr := ts.do("POST", "/api/v1/admin/reindex", nil, "")

	if rr.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rr.Code)
	}
}

func TestHandleQueueStats(t *testing.T) {
	ts := newTestServer(nil)
	ts.ingestion.statsFn = func(ctx context.Context) (*domain.QueueStats, error) {
		return &domain.QueueStats{Pending: 2, Completed: 7}, nil
	}

	rr := ts.do("GET", "/api/v1/queue/stats", nil, "")

	stats := decodeBody[domain.QueueStats](t, rr)
	if stats.Pending != 2 || stats.Completed != 7 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandleCapabilities(t *testing.T) {
	ts := newTestServer(nil)

	rr := ts.do("GET", "/api/v1/admin/capabilities", nil, "")

	status := decodeBody[runtime.Status](t, rr)
	if status.Embedding || status.Extraction {
		t.Errorf("expected nothing configured, got %+v", status)
	}
}
