package normalisers

import (
	"strings"
	"testing"
)

type mockNormaliser struct {
	name     string
	types    []string
	priority int
}

func (m *mockNormaliser) Normalise(content string, mimeType string) string {
	return content + "-" + m.name
}

func (m *mockNormaliser) SupportedTypes() []string {
	return m.types
}

func (m *mockNormaliser) Priority() int {
	return m.priority
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "test", types: []string{"text/plain"}, priority: 50})

	n := r.Get("text/plain")
	if n == nil {
		t.Fatal("expected to find normaliser")
	}
	if got := n.Normalise("x", "text/plain"); got != "x-test" {
		t.Errorf("expected x-test, got %s", got)
	}

	if r.Get("application/pdf") != nil {
		t.Error("expected nil for unregistered type")
	}
}

func TestRegistry_PriorityOrdering(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "low", types: []string{"text/*"}, priority: 1})
	r.Register(&mockNormaliser{name: "high", types: []string{"text/html"}, priority: 50})

	if got := r.Get("text/html").Normalise("", ""); got != "-high" {
		t.Errorf("expected the high priority normaliser, got %s", got)
	}
	if got := r.Get("text/csv").Normalise("", ""); got != "-low" {
		t.Errorf("expected the wildcard fallback, got %s", got)
	}
}

func TestRegistry_MIMEParameters(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "md", types: []string{"text/markdown"}, priority: 50})

	for _, mimeType := range []string{"text/markdown; charset=utf-8", "TEXT/MARKDOWN", " text/markdown "} {
		if r.Get(mimeType) == nil {
			t.Errorf("expected a match for %q", mimeType)
		}
	}
}

func TestRegistry_WildcardNeedsSubtype(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNormaliser{name: "text", types: []string{"text/*"}, priority: 1})

	if r.Get("textual/plain") != nil {
		t.Error("text/* must not match textual/plain")
	}
	if r.Get("image/png") != nil {
		t.Error("text/* must not match image/png")
	}
}

func TestRegistry_Types(t *testing.T) {
	types := DefaultRegistry().Types()

	want := []string{"application/json", "application/xhtml+xml", "text/*", "text/html", "text/markdown", "text/plain", "text/x-markdown"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, types)
	}
}

func TestDefaultRegistry_Selection(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		mimeType string
		want     string
	}{
		{"text/plain", "plaintext"},
		{"text/csv", "plaintext"},
		{"application/json", "plaintext"},
		{"text/markdown", "markdown"},
		{"text/html; charset=utf-8", "html"},
		{"application/xhtml+xml", "html"},
	}

	for _, tt := range tests {
		n := r.Get(tt.mimeType)
		var got string
		switch n.(type) {
		case PlaintextNormaliser:
			got = "plaintext"
		case MarkdownNormaliser:
			got = "markdown"
		case HTMLNormaliser:
			got = "html"
		}
		if got != tt.want {
			t.Errorf("%s: expected %s normaliser, got %T", tt.mimeType, tt.want, n)
		}
	}

	if r.Get("image/png") != nil {
		t.Error("expected no normaliser for images")
	}
}

func TestPlaintextNormaliser(t *testing.T) {
	in := "  line one  \r\nline two\r\n\r\n\r\n\r\nnext paragraph\t\n"

	got := PlaintextNormaliser{}.Normalise(in, "text/plain")

	want := "line one\nline two\n\nnext paragraph"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkdownNormaliser_KeepsMarkup(t *testing.T) {
	in := "# Title\n\n\n\n- item one\n- item two"

	got := MarkdownNormaliser{}.Normalise(in, "text/markdown")

	want := "# Title\n\n- item one\n- item two"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHTMLNormaliser(t *testing.T) {
	in := `<html><head><title>Harbour</title><style>p { color: red }</style></head>
<body>
  <h1>The   old harbour</h1>
  <p>Built in 1900 &amp; restored<br>in 2001.</p>
  <script>alert("x")</script>
  <ul><li>Bridge</li><li>Quay</li></ul>
</body></html>`

	got := HTMLNormaliser{}.Normalise(in, "text/html")

	for _, want := range []string{"Harbour", "The old harbour", "Built in 1900 & restored\nin 2001.", "Bridge", "Quay"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	for _, unwanted := range []string{"color", "alert", "<p>", "&amp;"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("unexpected %q in %q", unwanted, got)
		}
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("expected at most one blank line, got %q", got)
	}
}

func TestHTMLNormaliser_Malformed(t *testing.T) {
	got := HTMLNormaliser{}.Normalise("<p>unclosed <b>bold", "text/html")

	if got != "unclosed bold" {
		t.Errorf("expected %q, got %q", "unclosed bold", got)
	}
}
