package sqlparse

import "strings"

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

// NewLexer creates a Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokens lexes the whole input. The final token is always TokenEOF.
func Tokens(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.Next()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF}
	case l.ch == ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ","}
	case l.ch == '.':
		l.readChar()
		return Token{Type: TokenDot, Literal: "."}
	case l.ch == '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "("}
	case l.ch == ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")"}
	case l.ch == ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";"}
	case l.ch == '\'':
		return Token{Type: TokenString, Literal: l.readString()}
	case l.ch == '"':
		return Token{Type: TokenIdent, Literal: l.readQuotedIdent(), Quoted: true}
	case isLetter(l.ch) || l.ch == '_':
		return Token{Type: TokenIdent, Literal: l.readIdent()}
	case isDigit(l.ch):
		return Token{Type: TokenNumber, Literal: l.readNumber()}
	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenOp, Literal: string(ch)}
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString reads a single-quoted string literal, handling '' escapes.
func (l *Lexer) readString() string {
	l.readChar() // opening quote
	var b strings.Builder
	for l.ch != 0 {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				b.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // closing quote
			break
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	return b.String()
}

// readQuotedIdent reads a double-quoted identifier, handling "" escapes.
func (l *Lexer) readQuotedIdent() string {
	l.readChar() // opening quote
	var b strings.Builder
	for l.ch != 0 {
		if l.ch == '"' {
			if l.peekChar() == '"' {
				b.WriteByte('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // closing quote
			break
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	return b.String()
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
