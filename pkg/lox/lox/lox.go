// Package lox runs source text through the whole pipeline: scanning,
// parsing and evaluation.
package lox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sambeau/taylox/pkg/lox/ast"
	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/evaluator"
	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/parser"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// Exit codes for the command line driver
const (
	ExitOK       = 0
	ExitUsage    = 64 // bad command line
	ExitData     = 65 // lexical or syntax error
	ExitSoftware = 70 // runtime error or deadline
	ExitIO       = 74 // file could not be read or written
)

// Scan converts source text to tokens. The error is a perrors.List.
func Scan(src string) ([]lexer.Token, error) {
	return lexer.New(src).ScanTokens()
}

// Parse builds statements from tokens. The error is a perrors.List.
func Parse(tokens []lexer.Token) ([]ast.Statement, error) {
	return parser.Parse(tokens)
}

// Check scans and parses src without running it
func Check(src string) error {
	tokens, err := Scan(src)
	if err != nil {
		return err
	}
	_, err = Parse(tokens)
	return err
}

// Result is the outcome of a successful run
type Result struct {
	// Value of a trailing top-level expression statement, or nil
	Value value.Value
}

// HasValue reports whether the run ended with an expression statement
func (r Result) HasValue() bool {
	return r.Value != nil
}

// Echo renders the trailing value the way print would, or "" if there is none
func (r Result) Echo() string {
	if r.Value == nil {
		return ""
	}
	return value.Stringify(r.Value)
}

// Option configures a Runner
type Option func(*Runner)

// WithOutput sets where print writes
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithLogger sets the logger for pipeline stage events
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner runs successive sources against one interpreter, so globals
// defined by one run are visible to the next.
type Runner struct {
	mu     sync.Mutex
	interp *evaluator.Interpreter
	out    io.Writer
	logger *zap.Logger
}

// NewRunner creates a runner with a fresh global scope
func NewRunner(opts ...Option) *Runner {
	r := &Runner{out: os.Stdout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.interp = evaluator.New(evaluator.WithOutput(r.out), evaluator.WithLogger(r.logger))
	return r
}

// Environment returns the runner's global environment
func (r *Runner) Environment() *evaluator.Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interp.Environment()
}

// Reset forgets every global binding
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interp.Reset()
}

// Run scans, parses and interprets src. It stops at the first stage that
// fails and returns that stage's error: a perrors.List for lexical or
// syntax errors, a *perrors.LoxError for a runtime error.
func (r *Runner) Run(src string) (Result, error) {
	statements, err := r.Compile(src)
	if err != nil {
		return Result{}, err
	}
	return r.Execute(statements)
}

// Execute interprets already parsed statements
func (r *Runner) Execute(statements []ast.Statement) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	val, err := r.interp.Interpret(statements)
	r.logger.Debug("interpreted",
		zap.Int("statements", len(statements)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("failed", err != nil),
	)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: val}, nil
}

// Compile scans and parses src, logging each stage
func (r *Runner) Compile(src string) ([]ast.Statement, error) {
	tokens, err := Scan(src)
	r.logger.Debug("scanned", zap.Int("tokens", len(tokens)), zap.Int("errors", perrors.Flatten(err).Len()))
	if err != nil {
		return nil, err
	}

	statements, err := Parse(tokens)
	r.logger.Debug("parsed", zap.Int("statements", len(statements)), zap.Int("errors", perrors.Flatten(err).Len()))
	if err != nil {
		return nil, err
	}
	return statements, nil
}

// RunContext runs src like Run but gives up when ctx ends, returning
// ctx.Err(). The evaluation itself is not interrupted: it finishes in the
// background and its result is discarded.
func (r *Runner) RunContext(ctx context.Context, src string) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := r.Run(src)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		r.logger.Warn("run abandoned", zap.Error(ctx.Err()))
		return Result{}, ctx.Err()
	}
}

// ExitCode maps an error from Run, Check or file reading to a process exit
// code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ExitSoftware
	}

	var list perrors.List
	if errors.As(err, &list) && len(list) > 0 {
		return classExitCode(list[0])
	}
	var lerr *perrors.LoxError
	if errors.As(err, &lerr) {
		return classExitCode(lerr)
	}
	return ExitIO
}

func classExitCode(err *perrors.LoxError) int {
	if err.IsCompile() {
		return ExitData
	}
	return ExitSoftware
}

// Report writes err to w in the given format ("text" or "json"). Lox
// diagnostics are written one per line; file, when set, prefixes each.
// Any other error is written as "error: <message>".
func Report(w io.Writer, err error, format, file string) {
	if err == nil {
		return
	}

	list := perrors.Flatten(err)
	if list == nil {
		var lerr *perrors.LoxError
		if errors.As(err, &lerr) {
			list = perrors.List{lerr}
		}
	}

	if len(list) == 0 {
		if format == "json" {
			data, _ := json.Marshal(map[string]string{"error": err.Error()})
			fmt.Fprintln(w, string(data))
			return
		}
		fmt.Fprintf(w, "error: %s\n", err)
		return
	}

	if file != "" {
		list = list.WithFile(file)
	}

	if format == "json" {
		data, jerr := list.ToJSON()
		if jerr != nil {
			fmt.Fprintf(w, "error: %s\n", jerr)
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, list.Error())
}
