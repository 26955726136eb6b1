package domain

import "time"

// DocumentStatus is the lifecycle state of an uploaded document
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusQueued     DocumentStatus = "queued"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusQueued, DocumentStatusProcessing,
		DocumentStatusProcessed, DocumentStatusFailed:
		return true
	}
	return false
}

// Document is an uploaded file moving through the ingestion pipeline.
// Each text field is nil until the stage that produces it has run.
type Document struct {
	ID     string         `json:"id"`
	Status DocumentStatus `json:"status"`

	// ContentRef is an opaque handle into the content store
	ContentRef string `json:"content_ref"`
	MimeType   string `json:"mime_type"`
	Title      string `json:"title"`

	OriginalText   *string `json:"original_text,omitempty"`
	TranslatedText *string `json:"translated_text,omitempty"`
	Summary        *string `json:"summary,omitempty"`

	// Language is the detected language of OriginalText
	Language string `json:"language,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewDocument creates a document in the uploaded state.
func NewDocument(id, contentRef, mimeType, title string) *Document {
	now := time.Now()
	return &Document{
		ID:         id,
		Status:     DocumentStatusUploaded,
		ContentRef: contentRef,
		MimeType:   mimeType,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IndexText returns the text that should be chunked and embedded:
// the translation when one exists, otherwise the extracted text.
func (d *Document) IndexText() string {
	if d.TranslatedText != nil {
		return *d.TranslatedText
	}
	if d.OriginalText != nil {
		return *d.OriginalText
	}
	return ""
}
