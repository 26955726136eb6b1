package normalisers

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLNormaliser extracts the visible text of an HTML document. Block
// elements become paragraph breaks; script and style are dropped.
type HTMLNormaliser struct{}

func (HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (HTMLNormaliser) Priority() int { return 50 }

func (HTMLNormaliser) Normalise(content, _ string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was read
			return cleanHTMLText(b.String())
		case html.StartTagToken:
			tag := tagAtom(z)
			if tag == atom.Script || tag == atom.Style || tag == atom.Noscript || tag == atom.Template {
				skip++
			}
			if isBlock(tag) {
				b.WriteString("\n\n")
			} else if tag == atom.Br {
				b.WriteString("\n")
			}
		case html.SelfClosingTagToken:
			if tagAtom(z) == atom.Br {
				b.WriteString("\n")
			}
		case html.EndTagToken:
			tag := tagAtom(z)
			if (tag == atom.Script || tag == atom.Style || tag == atom.Noscript || tag == atom.Template) && skip > 0 {
				skip--
			}
			if isBlock(tag) {
				b.WriteString("\n\n")
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func tagAtom(z *html.Tokenizer) atom.Atom {
	name, _ := z.TagName()
	return atom.Lookup(name)
}

func isBlock(tag atom.Atom) bool {
	switch tag {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table, atom.Blockquote,
		atom.Pre, atom.Title, atom.Main, atom.Nav, atom.Aside:
		return true
	}
	return false
}

// cleanHTMLText collapses runs of spaces inside lines, then applies the
// paragraph rules shared with the other normalisers.
func cleanHTMLText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return cleanWhitespace(strings.Join(lines, "\n"))
}
