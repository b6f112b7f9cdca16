// Package ast defines the expression and statement trees produced by the
// parser. Every node renders a parenthesized debug form through String().
package ast

import (
	"bytes"
	"strconv"

	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root node of every AST
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

// String renders one statement per line
func (p *Program) String() string {
	var out bytes.Buffer

	for i, s := range p.Statements {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(s.String())
	}

	return out.String()
}

// parenthesize writes "(name part part ...)"
func parenthesize(name string, parts ...Node) string {
	var out bytes.Buffer

	out.WriteString("(")
	out.WriteString(name)
	for _, part := range parts {
		out.WriteString(" ")
		out.WriteString(part.String())
	}
	out.WriteString(")")

	return out.String()
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal represents a number, string, boolean or nil in source
type Literal struct {
	Token lexer.Token
	Value value.Value
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.Token.Lexeme }
func (l *Literal) String() string {
	if t, ok := l.Value.(value.Text); ok {
		return strconv.Quote(t.Value)
	}
	return value.Stringify(l.Value)
}

// Grouping represents a parenthesized expression
type Grouping struct {
	Token      lexer.Token // the '(' token
	Expression Expression
}

func (g *Grouping) expressionNode()      {}
func (g *Grouping) TokenLiteral() string { return g.Token.Lexeme }
func (g *Grouping) String() string       { return parenthesize("group", g.Expression) }

// Unary represents a prefix operator like -x or !x
type Unary struct {
	Operator lexer.Token
	Right    Expression
}

func (u *Unary) expressionNode()      {}
func (u *Unary) TokenLiteral() string { return u.Operator.Lexeme }
func (u *Unary) String() string       { return parenthesize(u.Operator.Lexeme, u.Right) }

// Binary represents an infix arithmetic, comparison or equality operator
type Binary struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (b *Binary) expressionNode()      {}
func (b *Binary) TokenLiteral() string { return b.Operator.Lexeme }
func (b *Binary) String() string       { return parenthesize(b.Operator.Lexeme, b.Left, b.Right) }

// Logical represents 'and'/'or'. The parser does not produce it yet.
type Logical struct {
	Left     Expression
	Operator lexer.Token
	Right    Expression
}

func (l *Logical) expressionNode()      {}
func (l *Logical) TokenLiteral() string { return l.Operator.Lexeme }
func (l *Logical) String() string       { return parenthesize(l.Operator.Lexeme, l.Left, l.Right) }

// Variable represents a reference to a named binding
type Variable struct {
	Name lexer.Token
}

func (v *Variable) expressionNode()      {}
func (v *Variable) TokenLiteral() string { return v.Name.Lexeme }
func (v *Variable) String() string       { return v.Name.Lexeme }

// Assign represents 'name = value'
type Assign struct {
	Name  lexer.Token
	Value Expression
}

func (a *Assign) expressionNode()      {}
func (a *Assign) TokenLiteral() string { return a.Name.Lexeme }
func (a *Assign) String() string {
	return "(= " + a.Name.Lexeme + " " + a.Value.String() + ")"
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ExpressionStatement is an expression evaluated for its effect
type ExpressionStatement struct {
	Token      lexer.Token // first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) String() string       { return parenthesize(";", es.Expression) }

// PrintStatement represents 'print expr;'
type PrintStatement struct {
	Token      lexer.Token // the 'print' token
	Expression Expression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Lexeme }
func (ps *PrintStatement) String() string       { return parenthesize("print", ps.Expression) }

// VarStatement represents 'var name = initializer;' with optional initializer
type VarStatement struct {
	Token       lexer.Token // the 'var' token
	Name        lexer.Token
	Initializer Expression // nil when absent
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Token.Lexeme }
func (vs *VarStatement) String() string {
	if vs.Initializer == nil {
		return "(var " + vs.Name.Lexeme + ")"
	}
	return "(var " + vs.Name.Lexeme + " " + vs.Initializer.String() + ")"
}

// BlockStatement represents '{ declarations }'
type BlockStatement struct {
	Token      lexer.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) String() string {
	parts := make([]Node, len(bs.Statements))
	for i, s := range bs.Statements {
		parts[i] = s
	}
	return parenthesize("block", parts...)
}

// IfStatement represents 'if (condition) then else alternative'
type IfStatement struct {
	Token       lexer.Token // the 'if' token
	Condition   Expression
	Consequence Statement
	Alternative Statement // nil when there is no else branch
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) String() string {
	if is.Alternative == nil {
		return parenthesize("if", is.Condition, is.Consequence)
	}
	return parenthesize("if", is.Condition, is.Consequence, is.Alternative)
}
