package markdown

import "strings"

// Engine converts raw model output to HTML that can be inserted into a page.
type Engine interface {
	Render(text string) string
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(text string) string

func (f EngineFunc) Render(text string) string { return f(text) }

// Simple is the default engine. It is stateless and safe for concurrent use.
var Simple Engine = EngineFunc(Render)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Escape replaces the five HTML-sensitive characters with entities.
func Escape(text string) string {
	return escaper.Replace(text)
}

// Render tokenizes text and writes the tokens as HTML. Every piece of
// source text is escaped exactly once; the only markup in the result is
// the markup emitted here.
func Render(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, tok := range Tokenize(text) {
		writeToken(&b, tok)
	}
	return b.String()
}

// RenderTokens writes an already tokenized stream as HTML.
func RenderTokens(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		writeToken(&b, tok)
	}
	return b.String()
}

func writeToken(b *strings.Builder, tok Token) {
	switch tok.Kind {
	case TokenText:
		b.WriteString(Escape(tok.Text))
	case TokenBold:
		b.WriteString("<strong>")
		b.WriteString(Escape(tok.Text))
		b.WriteString("</strong>")
	case TokenItalic:
		b.WriteString("<em>")
		b.WriteString(Escape(tok.Text))
		b.WriteString("</em>")
	case TokenCode:
		b.WriteString("<code>")
		b.WriteString(Escape(tok.Text))
		b.WriteString("</code>")
	case TokenCodeBlock:
		b.WriteString("<pre><code>")
		b.WriteString(Escape(tok.Text))
		b.WriteString("</code></pre>")
	case TokenLink:
		b.WriteString(`<a href="`)
		b.WriteString(Escape(tok.URL))
		b.WriteString(`" target="_blank" rel="noopener noreferrer">`)
		b.WriteString(Escape(tok.Text))
		b.WriteString("</a>")
	case TokenBreak:
		b.WriteString("<br>")
	}
}
