// Package sqlparse tokenizes model SQL and extracts the relation names it
// reads from. It is not a full SQL parser: it understands just enough of
// DuckDB's grammar (FROM lists, joins, CTEs, subqueries, set operations,
// function calls) to derive dependencies reliably.
package sqlparse

import "strings"

// TokenType classifies a lexed token.
type TokenType int

// Token types.
const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenComma
	TokenDot
	TokenLParen
	TokenRParen
	TokenSemicolon
	TokenOp // any other operator or punctuation
)

// Token is one lexical unit. Quoted marks a double-quoted identifier,
// which never matches a keyword.
type Token struct {
	Type    TokenType
	Literal string
	Quoted  bool
}

// Is reports whether the token is the given unquoted keyword,
// case-insensitively.
func (t Token) Is(keyword string) bool {
	return t.Type == TokenIdent && !t.Quoted && strings.EqualFold(t.Literal, keyword)
}

// IsAny reports whether the token matches any of the given keywords.
func (t Token) IsAny(keywords ...string) bool {
	for _, k := range keywords {
		if t.Is(k) {
			return true
		}
	}
	return false
}
