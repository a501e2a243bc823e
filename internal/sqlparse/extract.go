package sqlparse

import (
	"fmt"
	"strings"
)

// ExtractRelations returns the distinct relation names a SQL statement
// reads from, in order of first appearance. Names defined by WITH are not
// relations; schema-qualified names contribute their unqualified tail;
// table functions (read_csv(...) and friends) are not relations.
func ExtractRelations(sql string) ([]string, error) {
	e := &extractor{
		toks: Tokens(sql),
		ctes: map[string]bool{},
		seen: map[string]bool{},
	}
	if err := e.scan(false, true); err != nil {
		return nil, err
	}
	return e.refs, nil
}

type extractor struct {
	toks []Token
	pos  int
	ctes map[string]bool // lowercased CTE names, excluded from refs
	seen map[string]bool // lowercased refs already collected
	refs []string
}

func (e *extractor) cur() Token { return e.toks[e.pos] }

func (e *extractor) advance() {
	if e.toks[e.pos].Type != TokenEOF {
		e.pos++
	}
}

// scan walks tokens generically. With untilRParen it consumes a balanced
// group and stops after the closing paren. fromEnabled gates FROM/JOIN
// handling: inside a function call argument list a bare FROM belongs to
// EXTRACT/SUBSTRING syntax, not to a query, until a SELECT appears.
func (e *extractor) scan(untilRParen, fromEnabled bool) error {
	for {
		tok := e.cur()
		switch {
		case tok.Type == TokenEOF:
			if untilRParen {
				return fmt.Errorf("sqlparse: unexpected end of input, unbalanced parentheses")
			}
			return nil
		case tok.Type == TokenRParen:
			if untilRParen {
				e.advance()
				return nil
			}
			return fmt.Errorf("sqlparse: unexpected )")
		case tok.Is("with"):
			if err := e.parseWith(); err != nil {
				return err
			}
		case tok.Is("select"):
			fromEnabled = true
			e.advance()
		case tok.Is("from") && fromEnabled:
			e.advance()
			if err := e.parseFromList(); err != nil {
				return err
			}
		case tok.Is("join") && fromEnabled:
			e.advance()
			if err := e.parseTableRef(); err != nil {
				return err
			}
		case tok.Type == TokenIdent && e.peekType() == TokenLParen:
			// Function call: arguments may embed subqueries, but a bare
			// FROM in there (EXTRACT, SUBSTRING, TRIM) is not a query
			// clause.
			e.advance()
			e.advance()
			if err := e.scan(true, false); err != nil {
				return err
			}
		case tok.Type == TokenLParen:
			e.advance()
			if err := e.scan(true, fromEnabled); err != nil {
				return err
			}
		default:
			e.advance()
		}
	}
}

// parseWith consumes a WITH clause: the CTE names are registered and each
// body is scanned as a full query.
func (e *extractor) parseWith() error {
	e.advance() // WITH
	if e.cur().Is("recursive") {
		e.advance()
	}
	for {
		name := e.cur()
		if name.Type != TokenIdent {
			return fmt.Errorf("sqlparse: expected CTE name, got %q", name.Literal)
		}
		e.ctes[strings.ToLower(name.Literal)] = true
		e.advance()

		// Optional column alias list.
		if e.cur().Type == TokenLParen {
			if err := e.skipBalanced(); err != nil {
				return err
			}
		}
		if !e.cur().Is("as") {
			return fmt.Errorf("sqlparse: expected AS after CTE name %q", name.Literal)
		}
		e.advance()
		if e.cur().Is("not") {
			e.advance()
			if !e.cur().Is("materialized") {
				return fmt.Errorf("sqlparse: expected MATERIALIZED after NOT in CTE %q", name.Literal)
			}
			e.advance()
		} else if e.cur().Is("materialized") {
			e.advance()
		}
		if e.cur().Type != TokenLParen {
			return fmt.Errorf("sqlparse: expected ( after AS in CTE %q", name.Literal)
		}
		e.advance()
		if err := e.scan(true, true); err != nil {
			return err
		}
		if e.cur().Type == TokenComma {
			e.advance()
			continue
		}
		return nil
	}
}

func (e *extractor) parseFromList() error {
	for {
		if err := e.parseTableRef(); err != nil {
			return err
		}
		if e.cur().Type == TokenComma {
			e.advance()
			continue
		}
		return nil
	}
}

// parseTableRef consumes one FROM/JOIN operand: a possibly qualified
// name, a table function call, a parenthesized subquery, or a
// parenthesized join, plus a trailing alias.
func (e *extractor) parseTableRef() error {
	tok := e.cur()
	switch {
	case tok.Type == TokenLParen:
		e.advance()
		inner := e.cur()
		if inner.Is("select") || inner.Is("with") {
			if err := e.scan(true, true); err != nil {
				return err
			}
		} else {
			// Parenthesized join: the leading operand is a table ref,
			// the rest (JOIN ... ON ...) scans generically.
			if err := e.parseFromList(); err != nil {
				return err
			}
			if err := e.scan(true, true); err != nil {
				return err
			}
		}
	case tok.Type == TokenIdent:
		parts := []Token{tok}
		e.advance()
		for e.cur().Type == TokenDot {
			e.advance()
			next := e.cur()
			if next.Type != TokenIdent {
				return fmt.Errorf("sqlparse: expected identifier after . in table name")
			}
			parts = append(parts, next)
			e.advance()
		}
		if e.cur().Type == TokenLParen {
			// Table function, not a relation.
			e.advance()
			if err := e.scan(true, false); err != nil {
				return err
			}
		} else {
			e.addRef(parts[len(parts)-1].Literal)
		}
	default:
		return fmt.Errorf("sqlparse: unexpected token %q in FROM clause", tok.Literal)
	}
	e.skipAlias()
	return nil
}

// skipAlias consumes an optional [AS] alias [(col, ...)] after a table ref.
func (e *extractor) skipAlias() {
	if e.cur().Is("as") {
		e.advance()
		if e.cur().Type == TokenIdent {
			e.advance()
		}
	} else if e.cur().Type == TokenIdent && !isClauseKeyword(e.cur()) {
		e.advance()
	} else {
		return
	}
	if e.cur().Type == TokenLParen {
		_ = e.skipBalanced()
	}
}

// skipBalanced consumes a balanced parenthesis group without interpreting
// its contents.
func (e *extractor) skipBalanced() error {
	if e.cur().Type != TokenLParen {
		return fmt.Errorf("sqlparse: expected (")
	}
	depth := 0
	for {
		switch e.cur().Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
			if depth == 0 {
				e.advance()
				return nil
			}
		case TokenEOF:
			return fmt.Errorf("sqlparse: unexpected end of input, unbalanced parentheses")
		}
		e.advance()
	}
}

func (e *extractor) peekType() TokenType {
	if e.pos+1 < len(e.toks) {
		return e.toks[e.pos+1].Type
	}
	return TokenEOF
}

func (e *extractor) addRef(name string) {
	key := strings.ToLower(name)
	if e.ctes[key] || e.seen[key] {
		return
	}
	e.seen[key] = true
	e.refs = append(e.refs, name)
}

func isClauseKeyword(t Token) bool {
	return t.IsAny(
		"where", "group", "order", "having", "limit", "offset",
		"union", "intersect", "except",
		"join", "inner", "left", "right", "full", "cross", "natural",
		"on", "using", "window", "qualify", "fetch",
		"semi", "anti", "asof", "positional", "tablesample",
	)
}
