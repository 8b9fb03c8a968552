// pkg/sql/parser/parser.go
// Package parser turns a token stream into expression trees and a query
// skeleton. Expressions use precedence climbing; the query itself is a
// small state machine over the SELECT/FROM/WHERE keywords.
package parser

import (
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/Mytherin/RembranDB/pkg/sql/lexer"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

var (
	// ErrUnexpectedToken is returned for a token the current parse state
	// cannot accept.
	ErrUnexpectedToken = errors.NewKind("Unexpected token %s")
	// ErrExpectedRightParen is returned for an unclosed parenthesis.
	ErrExpectedRightParen = errors.NewKind("Expected right parenthesis")
	// ErrUnexpectedSelect is returned when SELECT appears out of order.
	ErrUnexpectedSelect = errors.NewKind("Unexpected SELECT.")
	// ErrUnexpectedFrom is returned when FROM appears before SELECT.
	ErrUnexpectedFrom = errors.NewKind("Unexpected FROM.")
	// ErrUnexpectedWhere is returned when WHERE appears before FROM.
	ErrUnexpectedWhere = errors.NewKind("Unexpected WHERE.")
	// ErrExpectedTableName is returned when FROM is not followed by an
	// identifier.
	ErrExpectedTableName = errors.NewKind("Expected table name after FROM.")
	// ErrCommaInWhere is returned when the WHERE clause holds more than
	// one expression.
	ErrCommaInWhere = errors.NewKind("Unexpected comma in WHERE.")
	// ErrInvalidQuery is returned when lexing fails or the statement is
	// not a complete query.
	ErrInvalidQuery = errors.NewKind("Failed to parse SQL query.")
)

// parse states, in the order the keywords must appear
const (
	stateNone = iota
	stateSelect
	stateFrom
	stateWhere
)

// Parser consumes a token stream against the catalog's table set.
type Parser struct {
	lex     *lexer.Lexer
	catalog *storage.Catalog
}

// Parse parses one statement of the form
// SELECT <expr_list> FROM <table> [WHERE <expr>].
func Parse(input string, catalog *storage.Catalog) (*Query, error) {
	p := &Parser{lex: lexer.New(input), catalog: catalog}
	return p.parseQuery()
}

func (p *Parser) parseQuery() (*Query, error) {
	q := &Query{}
	state := stateNone

	for {
		tok := p.lex.Next()
		if tok.Type == lexer.EOF {
			break
		}
		switch tok.Type {
		case lexer.SELECT:
			if state != stateNone {
				return nil, ErrUnexpectedSelect.New()
			}
			state = stateSelect
			if err := p.parseSelectList(q); err != nil {
				return nil, err
			}
		case lexer.FROM:
			if state != stateSelect {
				return nil, ErrUnexpectedFrom.New()
			}
			state = stateFrom
			name := p.lex.Next()
			if name.Type != lexer.IDENT {
				return nil, ErrExpectedTableName.New()
			}
			q.TableName = name.Text
			q.Table = p.catalog.Table(name.Text)
			if q.Table == nil {
				return nil, storage.ErrTableNotFound.New(name.Text)
			}
		case lexer.WHERE:
			if state != stateFrom {
				return nil, ErrUnexpectedWhere.New()
			}
			state = stateWhere
			ops, err := p.parseOperationList()
			if err != nil {
				return nil, err
			}
			if len(ops) != 1 {
				return nil, ErrCommaInWhere.New()
			}
			q.Where = ops[0]
		case lexer.INVALID:
			return nil, ErrInvalidQuery.New()
		default:
			return nil, ErrUnexpectedToken.New(tok.Type)
		}
	}

	if state < stateFrom || (len(q.Select) == 0 && !q.Star) {
		return nil, ErrInvalidQuery.New()
	}
	return q, nil
}

// parseSelectList parses either a bare * or a comma-separated expression
// list. The asterisk lexes as an operator; in SELECT position it means
// all columns.
func (p *Parser) parseSelectList(q *Query) error {
	peek := p.lex.Peek()
	if peek.Type == lexer.OPERATOR && strings.HasPrefix(peek.Text, "*") {
		p.lex.Next()
		q.Star = true
		return nil
	}
	ops, err := p.parseOperationList()
	if err != nil {
		return err
	}
	q.Select = ops
	return nil
}

// parseOperationList parses one or more expressions separated by commas.
func (p *Parser) parseOperationList() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.parseOperation()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if p.lex.Peek().Type != lexer.COMMA {
			return ops, nil
		}
		p.lex.Next()
	}
}

// parseOperation parses a full expression: a primary followed by its
// right-hand side at minimum precedence.
func (p *Parser) parseOperation() (Operation, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseRHS(0, lhs)
}

// parsePrimary parses a constant, an identifier, or a parenthesized
// expression.
func (p *Parser) parsePrimary() (Operation, error) {
	tok := p.lex.Next()
	switch tok.Type {
	case lexer.CONSTANT:
		return &Constant{Value: tok.Number}, nil
	case lexer.IDENT:
		return &ColumnRef{Name: tok.Text}, nil
	case lexer.LPAREN:
		op, err := p.parseOperation()
		if err != nil {
			return nil, err
		}
		if p.lex.Next().Type != lexer.RPAREN {
			return nil, ErrExpectedRightParen.New()
		}
		return op, nil
	default:
		return nil, ErrUnexpectedToken.New(tok.Type)
	}
}

// parseRHS climbs operator precedence: it keeps extending lhs while the
// upcoming operator binds at least as tightly as prec, recursing when the
// operator after the right operand binds tighter still. All operators are
// left-associative.
func (p *Parser) parseRHS(prec int, lhs Operation) (Operation, error) {
	for {
		tok := p.lex.Peek()
		if tok.Type != lexer.OPERATOR {
			return lhs, nil
		}

		opText := tok.Text
		opPrec := lexer.Precedence(opText)
		if opPrec < prec {
			return lhs, nil
		}
		p.lex.Next()

		rhs, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}

		// a tighter-binding operator on the right is evaluated first
		next := p.lex.Peek()
		if next.Type == lexer.OPERATOR && lexer.Precedence(next.Text) > opPrec {
			rhs, err = p.parseRHS(opPrec+1, rhs)
			if err != nil {
				return nil, err
			}
		}

		lhs = &Binary{Op: KindOf(opText), OpText: opText, Left: lhs, Right: rhs}
	}
}
