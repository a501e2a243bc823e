package sqlparse

import (
	"regexp"
	"strings"
)

var refPattern = regexp.MustCompile(`\bref\(\s*(?:'([^']+)'|"([^"]+)")\s*\)`)

// ResolveRefs rewrites ref('name') and ref("name") call sites to bare
// identifiers so the statement runs against the catalog directly.
func ResolveRefs(sql string) string {
	return refPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := refPattern.FindStringSubmatch(m)
		if sub[1] != "" {
			return sub[1]
		}
		return sub[2]
	})
}

// Normalize produces a whitespace-insensitive form of a statement for
// fingerprinting: runs of whitespace outside quoted strings and quoted
// identifiers collapse to a single space, comments are dropped, and the
// result is trimmed. Two statements that differ only in layout normalize
// identically.
func Normalize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	l := NewLexer(sql)
	prev := Token{Type: TokenEOF}
	for {
		tok := l.Next()
		if tok.Type == TokenEOF {
			break
		}
		if needsSpace(prev, tok) {
			b.WriteByte(' ')
		}
		b.WriteString(render(tok))
		prev = tok
	}
	return b.String()
}

// needsSpace keeps word-like tokens apart so SELECT a does not become
// SELECTa. Punctuation binds tight on both sides except before an
// opening paren after a comma or operator.
func needsSpace(prev, tok Token) bool {
	if prev.Type == TokenEOF {
		return false
	}
	switch tok.Type {
	case TokenComma, TokenRParen, TokenSemicolon, TokenDot:
		return false
	}
	switch prev.Type {
	case TokenLParen, TokenDot:
		return false
	}
	return true
}

func render(tok Token) string {
	switch tok.Type {
	case TokenString:
		return "'" + strings.ReplaceAll(tok.Literal, "'", "''") + "'"
	case TokenIdent:
		if tok.Quoted {
			return `"` + strings.ReplaceAll(tok.Literal, `"`, `""`) + `"`
		}
		return tok.Literal
	default:
		return tok.Literal
	}
}
