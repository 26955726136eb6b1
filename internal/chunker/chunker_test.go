package chunker

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func TestSplit_HelloWorld(t *testing.T) {
	got, err := Split("Hello world", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hello", "world"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplit_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		got, err := Split(text, 10, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("expected no segments for %q, got %q", text, got)
		}
	}
}

func TestSplit_SmallContent(t *testing.T) {
	got, err := Split("  Hello, world!  ", 100, 20)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"Hello, world!"}) {
		t.Errorf("unexpected segments %q", got)
	}
}

func TestSplit_OverlapWithoutBoundaries(t *testing.T) {
	got, err := Split("abcdefghij", 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"abcd", "cdef", "efgh", "ghij"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplit_PrefersParagraph(t *testing.T) {
	got, err := Split("First para.\n\nSecond one here", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"First para.", "Second one here"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplit_PrefersSentence(t *testing.T) {
	got, err := Split("One. Two three four", 12, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"One.", "Two three", "four"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60) +
		"\n\n" + strings.Repeat("Pack my box with five dozen liquor jugs! ", 40)

	first, err := Split(text, 500, 50)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Split(text, 500, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) < 2 {
		t.Fatalf("expected several segments, got %d", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical segments for identical input")
	}
}

func TestSegments_Invariants(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit.\n", 50)
	c, err := New(Config{MaxSize: 80, Overlap: 15, PreserveSentences: true, PreserveParagraphs: true, Lookback: 40})
	if err != nil {
		t.Fatal(err)
	}

	runes := []rune(text)
	prevStart, prevEnd := -1, -1
	count := 0
	for seg := range c.Segments(text) {
		count++
		n := utf8.RuneCountInString(seg.Content)
		if n == 0 || n > 80 {
			t.Fatalf("segment %d has %d runes", count, n)
		}
		if seg.Content != strings.TrimSpace(seg.Content) {
			t.Errorf("segment %d is not trimmed: %q", count, seg.Content)
		}
		if string(runes[seg.Start:seg.End]) != seg.Content {
			t.Errorf("segment %d offsets do not match content", count)
		}
		if seg.Start <= prevStart {
			t.Errorf("segment %d does not advance: %d <= %d", count, seg.Start, prevStart)
		}
		if prevEnd >= 0 && seg.Start > prevEnd+1 && !unicode.IsSpace(runes[seg.Start-1]) {
			t.Errorf("segment %d leaves a gap after %d", count, prevEnd)
		}
		prevStart, prevEnd = seg.Start, seg.End
	}
	if count < 2 {
		t.Fatalf("expected several segments, got %d", count)
	}
}

func TestSegments_Restartable(t *testing.T) {
	c, err := New(Config{MaxSize: 5, Overlap: 1})
	if err != nil {
		t.Fatal(err)
	}
	seq := c.Segments("alpha beta gamma")

	var first, second []Segment
	for s := range seq {
		first = append(first, s)
	}
	for s := range seq {
		second = append(second, s)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected the same segments twice, got %v and %v", first, second)
	}
}

func TestSegments_StopEarly(t *testing.T) {
	c, err := New(Config{MaxSize: 3, Overlap: 0})
	if err != nil {
		t.Fatal(err)
	}
	seen := 0
	for range c.Segments("aaa bbb ccc ddd") {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("expected to stop after 2 segments, got %d", seen)
	}
}

func TestSegments_RuneOffsets(t *testing.T) {
	c, err := New(Config{MaxSize: 5, Overlap: 0})
	if err != nil {
		t.Fatal(err)
	}
	var segs []Segment
	for s := range c.Segments("héllo wörld") {
		segs = append(segs, s)
	}
	want := []Segment{
		{Content: "héllo", Start: 0, End: 5},
		{Content: "wörld", Start: 6, End: 11},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("expected %v, got %v", want, segs)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"zero max", Config{MaxSize: 0}},
		{"negative overlap", Config{MaxSize: 10, Overlap: -1}},
		{"overlap equals max", Config{MaxSize: 10, Overlap: 10}},
		{"negative lookback", Config{MaxSize: 10, Lookback: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	in := "  Title\r\n\r\n\r\n\r\nFirst   line\t\there \nsecond\rthird  "
	want := "Title\n\nFirst line here\nsecond\nthird"
	if got := Normalize(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
