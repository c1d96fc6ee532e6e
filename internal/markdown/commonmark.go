package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Engine names accepted by NewEngine.
const (
	EngineSimple     = "simple"
	EngineCommonMark = "commonmark"
)

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", EngineSimple:
		return Simple, nil
	case EngineCommonMark:
		return NewCommonMark(), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", name)
	}
}

// CommonMark renders full GFM through goldmark. Raw HTML in the source is
// dropped (goldmark's default without WithUnsafe) and single newlines are
// kept as hard breaks, like the Simple engine.
type CommonMark struct {
	md goldmark.Markdown
}

// NewCommonMark creates a goldmark-backed engine with syntax highlighting.
func NewCommonMark() *CommonMark {
	return &CommonMark{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithASTTransformers(
					util.Prioritized(externalLinks{}, 999),
				),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}
}

// externalLinks marks every link and autolink with the same target and
// rel attributes the Simple engine emits.
type externalLinks struct{}

func (externalLinks) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindLink, ast.KindAutoLink:
			n.SetAttributeString("target", []byte("_blank"))
			n.SetAttributeString("rel", []byte("noopener noreferrer"))
		}
		return ast.WalkContinue, nil
	})
}

// Render converts text; on a conversion error the escaped source is
// returned so callers always get something safe to display.
func (c *CommonMark) Render(text string) string {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(text), &buf); err != nil {
		return Escape(text)
	}
	return strings.TrimSpace(buf.String())
}

// Terminal renders text for an ANSI terminal of the given width.
func Terminal(text string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("rendering for terminal: %w", err)
	}
	return out, nil
}
