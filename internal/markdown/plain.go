package markdown

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText returns the text a reader sees when fragment is displayed:
// tags are dropped, <br> becomes a newline and entities are decoded.
// It is what the copy button puts on the clipboard.
func PlainText(fragment string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}
