// Package markdown renders untrusted model output into safe HTML.
//
// The Simple engine understands a fixed subset of Markdown: fenced code
// blocks, inline code, bold, italics, http(s) links and line breaks.
// Input is tokenized in a single left-to-right pass, so text that has been
// claimed by one construct (for example the inside of a code fence) is
// never re-interpreted by another.
package markdown

import "strings"

// TokenKind identifies the construct a Token represents.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenBold
	TokenItalic
	TokenCode
	TokenCodeBlock
	TokenLink
	TokenBreak
)

// String returns a short name for the kind.
func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "text"
	case TokenBold:
		return "bold"
	case TokenItalic:
		return "italic"
	case TokenCode:
		return "code"
	case TokenCodeBlock:
		return "codeblock"
	case TokenLink:
		return "link"
	case TokenBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Token is one unit of the tokenized input. Text always holds raw,
// unescaped source text. URL is only set for links.
type Token struct {
	Kind TokenKind
	Text string
	URL  string
}

const fence = "```"

// Tokenize splits text into tokens. At each position the constructs are
// tried in precedence order (code block, inline code, bold, italic, link,
// break); the first one that matches wins. Unmatched delimiters are kept
// as literal text.
func Tokenize(text string) []Token {
	var (
		tokens []Token
		lit    strings.Builder
	)

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, Token{Kind: TokenText, Text: lit.String()})
			lit.Reset()
		}
	}

	i := 0
	for i < len(text) {
		tok, n := matchAt(text, i)
		if n == 0 {
			lit.WriteByte(text[i])
			i++
			continue
		}
		flush()
		tokens = append(tokens, tok)
		i += n
	}
	flush()

	return tokens
}

// matchAt tries every construct at text[i:]. It returns the token and the
// number of bytes consumed, or zero when nothing matches.
func matchAt(text string, i int) (Token, int) {
	rest := text[i:]

	switch rest[0] {
	case '`':
		if tok, n := matchCodeBlock(rest); n > 0 {
			return tok, n
		}
		return matchInlineCode(rest)
	case '*', '_':
		if tok, n := matchEmphasis(rest, rest[:1]+rest[:1], TokenBold); n > 0 {
			return tok, n
		}
		return matchEmphasis(rest, rest[:1], TokenItalic)
	case '[':
		return matchLink(rest)
	case '\n':
		return Token{Kind: TokenBreak}, 1
	}
	return Token{}, 0
}

// matchCodeBlock matches ```...``` spanning any number of lines. The
// shortest closing fence wins; the body is trimmed.
func matchCodeBlock(s string) (Token, int) {
	if !strings.HasPrefix(s, fence) {
		return Token{}, 0
	}
	end := strings.Index(s[len(fence):], fence)
	if end < 0 {
		return Token{}, 0
	}
	body := s[len(fence) : len(fence)+end]
	return Token{Kind: TokenCodeBlock, Text: strings.TrimSpace(body)}, len(fence) + end + len(fence)
}

// matchInlineCode matches `x` where x is non-empty and holds neither a
// newline nor a backtick.
func matchInlineCode(s string) (Token, int) {
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '`':
			if j == 1 {
				return Token{}, 0
			}
			return Token{Kind: TokenCode, Text: s[1:j]}, j + 1
		case '\n':
			return Token{}, 0
		}
	}
	return Token{}, 0
}

// matchEmphasis matches delim x delim on a single line with the shortest
// non-empty x.
func matchEmphasis(s, delim string, kind TokenKind) (Token, int) {
	if !strings.HasPrefix(s, delim) {
		return Token{}, 0
	}
	line := s
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		line = s[:nl]
	}
	start := len(delim)
	if len(line) <= start {
		return Token{}, 0
	}
	end := strings.Index(line[start+1:], delim)
	if end < 0 {
		return Token{}, 0
	}
	end += start + 1
	return Token{Kind: kind, Text: line[start:end]}, end + len(delim)
}

// matchLink matches [label](http://url) or [label](https://url). The label
// may not contain ']' or a newline; the URL stops at whitespace or ')'.
func matchLink(s string) (Token, int) {
	closeLabel := strings.IndexAny(s[1:], "]\n")
	if closeLabel <= 0 || s[1+closeLabel] != ']' {
		return Token{}, 0
	}
	label := s[1 : 1+closeLabel]
	rest := s[2+closeLabel:]
	if !strings.HasPrefix(rest, "(") {
		return Token{}, 0
	}
	target := rest[1:]
	var scheme string
	switch {
	case strings.HasPrefix(target, "https://"):
		scheme = "https://"
	case strings.HasPrefix(target, "http://"):
		scheme = "http://"
	default:
		return Token{}, 0
	}
	end := strings.IndexAny(target, " \t\r\n\f\v)")
	if end < 0 || target[end] != ')' || end == len(scheme) {
		return Token{}, 0
	}
	url := target[:end]
	consumed := 2 + closeLabel + 1 + end + 1
	return Token{Kind: TokenLink, Text: label, URL: url}, consumed
}
