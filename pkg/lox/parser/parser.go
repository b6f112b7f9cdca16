// Package parser builds statement trees from a token sequence.
//
// Grammar, lowest to highest precedence:
//
//	program     := declaration* EOF
//	declaration := "var" IDENTIFIER ( "=" expression )? ";" | statement
//	statement   := ifStmt | "print" expression ";" | block | expression ";"
//	ifStmt      := "if" "(" expression ")" statement ( "else" statement )?
//	block       := "{" declaration* "}"
//	expression  := assignment
//	assignment  := IDENTIFIER "=" assignment | equality
//	equality    := comparison ( ( "!=" | "==" ) comparison )*
//	comparison  := term ( ( ">" | ">=" | "<" | "<=" ) term )*
//	term        := factor ( ( "-" | "+" ) factor )*
//	factor      := unary ( ( "/" | "*" ) unary )*
//	unary       := ( "!" | "-" ) unary | primary
//	primary     := NUMBER | STRING | "true" | "false" | "nil" | IDENTIFIER | "(" expression ")"
//
// On a syntax error the parser records it, skips to the next statement
// boundary and keeps going, so one run can report several errors.
package parser

import (
	"fmt"

	"github.com/sambeau/taylox/pkg/lox/ast"
	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// Parser represents the parser
type Parser struct {
	tokens  []lexer.Token
	current int

	structuredErrors perrors.List
}

// New creates a new parser instance. A missing trailing EOF token is added.
func New(tokens []lexer.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens[:len(tokens):len(tokens)], lexer.Token{Type: lexer.EOF, Line: line})
	}
	return &Parser{tokens: tokens}
}

// Parse parses tokens into statements. The error is a perrors.List of every
// syntax error found; statements are only meaningful when it is nil.
func Parse(tokens []lexer.Token) ([]ast.Statement, error) {
	p := New(tokens)
	program := p.ParseProgram()
	return program.Statements, p.StructuredErrors().Err()
}

// Errors returns parser errors as strings (convenience method for tests).
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		result[i] = err.Error()
	}
	return result
}

// StructuredErrors returns parser errors as structured LoxError objects.
func (p *Parser) StructuredErrors() perrors.List {
	return p.structuredErrors
}

// addError records a syntax error without interrupting the parse
func (p *Parser) addError(err *perrors.LoxError) {
	p.structuredErrors.Add(err)
}

// newError creates a syntax error for the offending token
func (p *Parser) newError(tok lexer.Token, msg string) *perrors.LoxError {
	return perrors.NewSyntax(tok.Line, tok.Lexeme, tok.Type == lexer.EOF, msg)
}

// ParseProgram parses the program and returns the AST
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.isAtEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	return program
}

// parseDeclaration parses one declaration. On error it records the error,
// resynchronizes and returns nil.
func (p *Parser) parseDeclaration() ast.Statement {
	var (
		stmt ast.Statement
		err  error
	)
	if p.match(lexer.VAR) {
		stmt, err = p.parseVarStatement()
	} else {
		stmt, err = p.parseStatement()
	}

	if err != nil {
		if perr, ok := err.(*perrors.LoxError); ok {
			p.addError(perr)
		} else {
			p.addError(p.newError(p.peek(), err.Error()))
		}
		p.synchronize()
		return nil
	}
	return stmt
}

// parseVarStatement parses the rest of a declaration after 'var'
func (p *Parser) parseVarStatement() (ast.Statement, error) {
	stmt := &ast.VarStatement{Token: p.previous()}

	name, err := p.expect(lexer.IDENT, "Expect variable name.")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if p.match(lexer.ASSIGN) {
		stmt.Initializer, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(lexer.SEMICOLON, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseStatement parses statements
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.match(lexer.IF):
		return p.parseIfStatement()
	case p.match(lexer.PRINT):
		return p.parsePrintStatement()
	case p.match(lexer.LBRACE):
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseIfStatement parses the rest of an if statement after 'if'
func (p *Parser) parseIfStatement() (ast.Statement, error) {
	stmt := &ast.IfStatement{Token: p.previous()}

	if _, err := p.expect(lexer.LPAREN, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RPAREN, "Expect ')' after if condition."); err != nil {
		return nil, err
	}
	stmt.Condition = condition

	stmt.Consequence, err = p.parseStatement()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.ELSE) {
		stmt.Alternative, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// parsePrintStatement parses the rest of a print statement after 'print'
func (p *Parser) parsePrintStatement() (ast.Statement, error) {
	stmt := &ast.PrintStatement{Token: p.previous()}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "Expect ';' after value."); err != nil {
		return nil, err
	}

	stmt.Expression = expr
	return stmt, nil
}

// parseBlockStatement parses declarations up to the closing brace
func (p *Parser) parseBlockStatement() (ast.Statement, error) {
	block := &ast.BlockStatement{Token: p.previous()}
	block.Statements = []ast.Statement{}

	for !p.check(lexer.RBRACE) && !p.isAtEnd() {
		if stmt := p.parseDeclaration(); stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}

	if _, err := p.expect(lexer.RBRACE, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return block, nil
}

// parseExpressionStatement parses 'expression ;'
func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	stmt := &ast.ExpressionStatement{Token: p.peek()}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMICOLON, "Expect ';' after expression."); err != nil {
		return nil, err
	}

	stmt.Expression = expr
	return stmt, nil
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseAssignment()
}

// parseAssignment is right-associative. An invalid target is reported but
// the already parsed left-hand side is kept and parsing carries on.
func (p *Parser) parseAssignment() (ast.Expression, error) {
	expr, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	if p.match(lexer.ASSIGN) {
		equals := p.previous()
		val, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}

		if v, ok := expr.(*ast.Variable); ok {
			return &ast.Assign{Name: v.Name, Value: val}, nil
		}
		p.addError(p.newError(equals, "Invalid assignment target."))
	}

	return expr, nil
}

// parseBinary parses a left-associative chain of operators drawn from ops,
// with operands parsed by next
func (p *Parser) parseBinary(next func() (ast.Expression, error), ops ...lexer.TokenType) (ast.Expression, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}

	for p.match(ops...) {
		operator := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &ast.Binary{Left: expr, Operator: operator, Right: right}
	}

	return expr, nil
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.parseBinary(p.parseComparison, lexer.NOT_EQ, lexer.EQ)
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	return p.parseBinary(p.parseTerm, lexer.GT, lexer.GTE, lexer.LT, lexer.LTE)
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	return p.parseBinary(p.parseFactor, lexer.MINUS, lexer.PLUS)
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	return p.parseBinary(p.parseUnary, lexer.SLASH, lexer.ASTERISK)
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.match(lexer.BANG, lexer.MINUS) {
		operator := p.previous()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Operator: operator, Right: right}, nil
	}

	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch {
	case p.match(lexer.FALSE):
		return &ast.Literal{Token: p.previous(), Value: value.False}, nil
	case p.match(lexer.TRUE):
		return &ast.Literal{Token: p.previous(), Value: value.True}, nil
	case p.match(lexer.NIL):
		return &ast.Literal{Token: p.previous(), Value: value.Nil}, nil
	case p.match(lexer.NUMBER, lexer.STRING):
		tok := p.previous()
		return &ast.Literal{Token: tok, Value: tok.Literal}, nil
	case p.match(lexer.IDENT):
		return &ast.Variable{Name: p.previous()}, nil
	case p.match(lexer.LPAREN):
		paren := p.previous()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &ast.Grouping{Token: paren, Expression: expr}, nil
	}

	return nil, p.newError(p.peek(), "Expect expression.")
}

// synchronize discards tokens until the start of the next statement
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Type == lexer.SEMICOLON {
			return
		}

		switch p.peek().Type {
		case lexer.CLASS, lexer.FUN, lexer.VAR, lexer.FOR, lexer.IF, lexer.WHILE, lexer.PRINT, lexer.RETURN:
			return
		}

		p.advance()
	}
}

// expect consumes a token of type t or returns an error with msg
func (p *Parser) expect(t lexer.TokenType, msg string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.newError(p.peek(), msg)
}

// match consumes the current token if it has one of the given types
func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.EOF
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

// String renders the parser position for debugging
func (p *Parser) String() string {
	return fmt.Sprintf("parser at token %d of %d (%s)", p.current, len(p.tokens), p.peek())
}
