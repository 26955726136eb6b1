package driven

import "context"

// Extraction is the output of an Extractor.
type Extraction struct {
	Text string
	// Language is the detected ISO 639-1 code, empty when unknown
	Language string
	// Partial is set when some pages could not be read. It is not a failure.
	Partial bool
}

// Extractor turns raw content into text (OCR or decoding).
type Extractor interface {
	Extract(ctx context.Context, content []byte, mimeType string) (*Extraction, error)
}

// Translator translates text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// Summarizer produces a summary of at most roughly maxLen characters.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen int) (string, error)
}
