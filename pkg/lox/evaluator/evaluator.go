// Package evaluator executes statement trees directly, without compiling
// them to any intermediate form.
package evaluator

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sambeau/taylox/pkg/lox/ast"
	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// Runtime error messages
const (
	errOperandNumber   = "Operand must be a number."
	errOperandsNumber  = "Operands must be a number."
	errOperandsPlus    = "Operands must be two numbers or two strings."
	errLogicalNotReady = "Logical operators are not supported."
)

// Interpreter holds the environment that persists across calls to Interpret
type Interpreter struct {
	env    *Environment
	out    io.Writer
	logger *zap.Logger
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithOutput sets where print writes. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(in *Interpreter) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// New creates an interpreter with an empty global scope
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		env:    NewEnvironment(),
		out:    os.Stdout,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Environment returns the interpreter's environment
func (in *Interpreter) Environment() *Environment {
	return in.env
}

// Reset forgets every global binding
func (in *Interpreter) Reset() {
	in.env.Reset()
}

// Interpret executes statements in order and stops at the first runtime
// error. When the last statement is an expression statement its value is
// returned so a REPL can echo it; otherwise the value is nil.
func (in *Interpreter) Interpret(statements []ast.Statement) (value.Value, error) {
	in.logger.Debug("interpret", zap.Int("statements", len(statements)))

	var last value.Value
	for i, stmt := range statements {
		val, err := in.Execute(stmt)
		if err != nil {
			in.logger.Debug("runtime error", zap.Error(err), zap.Int("statement", i))
			return nil, err
		}
		if _, ok := stmt.(*ast.ExpressionStatement); ok && i == len(statements)-1 {
			last = val
		}
	}
	return last, nil
}

// Execute runs one statement. Only an expression statement yields a value.
func (in *Interpreter) Execute(stmt ast.Statement) (value.Value, error) {
	switch stmt := stmt.(type) {
	case *ast.ExpressionStatement:
		return in.Evaluate(stmt.Expression)

	case *ast.PrintStatement:
		val, err := in.Evaluate(stmt.Expression)
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(in.out, value.Stringify(val)); err != nil {
			return nil, fmt.Errorf("print: %w", err)
		}
		return nil, nil

	case *ast.VarStatement:
		val := value.Nil
		if stmt.Initializer != nil {
			var err error
			val, err = in.Evaluate(stmt.Initializer)
			if err != nil {
				return nil, err
			}
		}
		in.env.Define(stmt.Name.Lexeme, val)
		return nil, nil

	case *ast.BlockStatement:
		return nil, in.executeBlock(stmt.Statements)

	case *ast.IfStatement:
		cond, err := in.Evaluate(stmt.Condition)
		if err != nil {
			return nil, err
		}
		if value.Truthy(cond) {
			_, err = in.Execute(stmt.Consequence)
		} else if stmt.Alternative != nil {
			_, err = in.Execute(stmt.Alternative)
		}
		return nil, err

	default:
		return nil, fmt.Errorf("unknown statement type: %T", stmt)
	}
}

// executeBlock runs statements in a new scope. The enclosing scope is
// restored however the block exits.
func (in *Interpreter) executeBlock(statements []ast.Statement) error {
	prev := in.env.Enter()
	defer in.env.Leave(prev)

	for _, stmt := range statements {
		if _, err := in.Execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate computes the value of an expression
func (in *Interpreter) Evaluate(expr ast.Expression) (value.Value, error) {
	switch expr := expr.(type) {
	case *ast.Literal:
		if expr.Value == nil {
			return value.Nil, nil
		}
		return expr.Value, nil

	case *ast.Grouping:
		return in.Evaluate(expr.Expression)

	case *ast.Variable:
		return in.env.Get(expr.Name)

	case *ast.Assign:
		val, err := in.Evaluate(expr.Value)
		if err != nil {
			return nil, err
		}
		if err := in.env.Assign(expr.Name, val); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.Unary:
		right, err := in.Evaluate(expr.Right)
		if err != nil {
			return nil, err
		}
		return evalUnary(expr.Operator, right)

	case *ast.Binary:
		left, err := in.Evaluate(expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := in.Evaluate(expr.Right)
		if err != nil {
			return nil, err
		}
		return evalBinary(expr.Operator, left, right)

	case *ast.Logical:
		return nil, runtimeError(expr.Operator, errLogicalNotReady)

	default:
		return nil, fmt.Errorf("unknown expression type: %T", expr)
	}
}

func evalUnary(op lexer.Token, right value.Value) (value.Value, error) {
	switch op.Type {
	case lexer.MINUS:
		n, ok := right.(value.Number)
		if !ok {
			return nil, runtimeError(op, errOperandNumber)
		}
		return value.Number{Value: -n.Value}, nil
	case lexer.BANG:
		return value.FromBool(!value.Truthy(right)), nil
	default:
		return nil, runtimeError(op, fmt.Sprintf("Unknown unary operator '%s'.", op.Lexeme))
	}
}

func evalBinary(op lexer.Token, left, right value.Value) (value.Value, error) {
	switch op.Type {
	case lexer.EQ:
		return value.FromBool(value.Equal(left, right)), nil
	case lexer.NOT_EQ:
		return value.FromBool(!value.Equal(left, right)), nil
	case lexer.PLUS:
		return evalPlus(op, left, right)
	}

	l, lok := left.(value.Number)
	r, rok := right.(value.Number)
	if !lok || !rok {
		return nil, runtimeError(op, errOperandsNumber)
	}

	switch op.Type {
	case lexer.MINUS:
		return value.Number{Value: l.Value - r.Value}, nil
	case lexer.ASTERISK:
		return value.Number{Value: l.Value * r.Value}, nil
	case lexer.SLASH:
		return value.Number{Value: l.Value / r.Value}, nil
	case lexer.GT:
		return value.FromBool(l.Value > r.Value), nil
	case lexer.GTE:
		return value.FromBool(l.Value >= r.Value), nil
	case lexer.LT:
		return value.FromBool(l.Value < r.Value), nil
	case lexer.LTE:
		return value.FromBool(l.Value <= r.Value), nil
	default:
		return nil, runtimeError(op, fmt.Sprintf("Unknown binary operator '%s'.", op.Lexeme))
	}
}

// evalPlus adds two numbers or concatenates two strings
func evalPlus(op lexer.Token, left, right value.Value) (value.Value, error) {
	switch l := left.(type) {
	case value.Number:
		if r, ok := right.(value.Number); ok {
			return value.Number{Value: l.Value + r.Value}, nil
		}
	case value.Text:
		if r, ok := right.(value.Text); ok {
			return value.Text{Value: l.Value + r.Value}, nil
		}
	}
	return nil, runtimeError(op, errOperandsPlus)
}

func runtimeError(tok lexer.Token, msg string) *perrors.LoxError {
	return perrors.NewRuntime(tok.Line, tok.Lexeme, msg)
}
