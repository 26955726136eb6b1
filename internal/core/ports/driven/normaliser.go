package driven

// Normaliser turns decoded document text of one format into plain text
// ready for chunking.
type Normaliser interface {
	// Normalise transforms raw content into normalized text.
	// The mimeType helps determine the appropriate processing.
	Normalise(content string, mimeType string) string

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	//   50-89: Format-specific (Markdown, HTML)
	//   1-9:   Fallback (raw text)
	Priority() int
}
