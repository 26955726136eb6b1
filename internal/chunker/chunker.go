// Package chunker splits text into bounded, overlapping segments.
//
// All sizes and offsets are counted in runes.
package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Config configures the chunker behavior.
type Config struct {
	// MaxSize is the maximum runes per segment
	MaxSize int

	// Overlap is how many runes a segment reaches back into the previous one
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool

	// Lookback is how far back from MaxSize a break point is searched for.
	// Zero means the default.
	Lookback int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxSize:            1000,
		Overlap:            200,
		PreserveSentences:  true,
		PreserveParagraphs: true,
		Lookback:           100,
	}
}

// Validate checks that the config can make progress.
func (c Config) Validate() error {
	if c.MaxSize < 1 {
		return fmt.Errorf("%w: max size must be positive, got %d", domain.ErrInvalidInput, c.MaxSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.MaxSize {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidInput, c.MaxSize, c.Overlap)
	}
	if c.Lookback < 0 {
		return fmt.Errorf("%w: lookback must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// Segment is one chunk of text with its rune offsets in the source.
type Segment struct {
	Content string
	Start   int
	End     int
}

// Chunker splits text into segments. It is stateless and safe for concurrent use.
type Chunker struct {
	config Config
}

// New creates a chunker with the given config.
func New(config Config) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Lookback == 0 {
		config.Lookback = DefaultConfig().Lookback
	}
	return &Chunker{config: config}, nil
}

// Config returns the chunker's configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Segments returns the segments of text in order. The sequence is lazy,
// finite and can be ranged over any number of times with identical results.
// Every segment is non-empty, at most MaxSize runes and has no leading or
// trailing whitespace.
func (c *Chunker) Segments(text string) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		runes := []rune(text)
		n := len(runes)

		start := skipSpace(runes, 0)
		for start < n {
			end := start + c.config.MaxSize
			if end > n {
				end = n
			}
			if end < n {
				end = c.breakPoint(runes, start, end)
			}

			segEnd := end
			for segEnd > start && unicode.IsSpace(runes[segEnd-1]) {
				segEnd--
			}
			seg := Segment{Content: string(runes[start:segEnd]), Start: start, End: segEnd}
			if !yield(seg) {
				return
			}

			if end >= n {
				return
			}

			// Move start with overlap, ensuring we always advance
			next := end - c.config.Overlap
			if next <= start {
				next = end
			}
			start = skipSpace(runes, next)
		}
	}
}

// Split chunks text with the default break preferences and returns the contents.
func Split(text string, maxSize, overlap int) ([]string, error) {
	config := DefaultConfig()
	config.MaxSize = maxSize
	config.Overlap = overlap

	c, err := New(config)
	if err != nil {
		return nil, err
	}

	var out []string
	for seg := range c.Segments(text) {
		out = append(out, seg.Content)
	}
	return out, nil
}

// breakPoint finds the exclusive end of a segment that starts at start and
// may not pass maxEnd. It returns maxEnd when no boundary is found.
func (c *Chunker) breakPoint(runes []rune, start, maxEnd int) int {
	lo := maxEnd - c.config.Lookback
	if lo < start {
		lo = start
	}

	last := func(match func(p int) bool) int {
		for p := maxEnd; p > lo; p-- {
			if match(p) {
				return p
			}
		}
		return -1
	}

	if c.config.PreserveParagraphs {
		if p := last(func(p int) bool { return isParagraphBreak(runes, p) }); p > start {
			return p
		}
	}
	if c.config.PreserveSentences {
		if p := last(func(p int) bool { return isSentenceBreak(runes, p) }); p > start {
			return p
		}
	}
	if p := last(func(p int) bool { return isWordBreak(runes, p) }); p > start {
		return p
	}
	return maxEnd
}

// isParagraphBreak reports whether p sits right after a blank line.
func isParagraphBreak(runes []rune, p int) bool {
	return p >= 2 && runes[p-1] == '\n' && runes[p-2] == '\n'
}

// isSentenceBreak reports whether p sits at the whitespace following a sentence end.
func isSentenceBreak(runes []rune, p int) bool {
	if p < len(runes) && unicode.IsSpace(runes[p]) && isSentenceEnd(runes[p-1]) {
		return true
	}
	return p >= 2 && unicode.IsSpace(runes[p-1]) && isSentenceEnd(runes[p-2])
}

func isWordBreak(runes []rune, p int) bool {
	return unicode.IsSpace(runes[p-1]) || (p < len(runes) && unicode.IsSpace(runes[p]))
}

func isSentenceEnd(r rune) bool {
	return strings.ContainsRune(".!?。！？", r)
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

// Normalize normalizes whitespace before chunking: line endings become
// "\n", runs of spaces collapse, lines are trimmed and at most one blank
// line separates paragraphs.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t'
		}), " ")
	}
	content = strings.Join(lines, "\n")

	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(content)
}
