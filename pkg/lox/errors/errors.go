// Package errors provides the diagnostic type shared by every stage of the
// Lox pipeline.
//
// A LoxError is tagged with the stage that raised it: the scanner raises
// lexical errors, the parser raises syntax errors, and the evaluator raises
// runtime errors. Error() renders the one-line form drivers print.
package errors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ErrorClass identifies the pipeline stage that produced an error.
type ErrorClass string

const (
	ClassLexical ErrorClass = "lexical" // Scanner errors
	ClassSyntax  ErrorClass = "syntax"  // Parser errors
	ClassRuntime ErrorClass = "runtime" // Evaluation errors
)

// LoxError represents any diagnostic from scanning, parsing or evaluation.
type LoxError struct {
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
	Line    int        `json:"line"`             // 1-based source line
	Lexeme  string     `json:"lexeme,omitempty"` // offending token (syntax/runtime)
	AtEnd   bool       `json:"at_end,omitempty"` // offending token was EOF
	Hints   []string   `json:"hints,omitempty"`
	File    string     `json:"file,omitempty"`
}

// NewLexical creates a scanner error anchored to a line.
func NewLexical(line int, message string) *LoxError {
	return &LoxError{Class: ClassLexical, Message: message, Line: line}
}

// NewSyntax creates a parser error for the offending token.
// atEnd is true when the token is the end-of-input marker.
func NewSyntax(line int, lexeme string, atEnd bool, message string) *LoxError {
	return &LoxError{Class: ClassSyntax, Message: message, Line: line, Lexeme: lexeme, AtEnd: atEnd}
}

// NewRuntime creates an evaluation error tagged with a token.
func NewRuntime(line int, lexeme string, message string) *LoxError {
	return &LoxError{Class: ClassRuntime, Message: message, Line: line, Lexeme: lexeme}
}

// Error implements the error interface.
func (e *LoxError) Error() string {
	return e.String()
}

// Where describes the error location within the line: "at end",
// "at '<lexeme>'", or empty for lexical and runtime errors.
func (e *LoxError) Where() string {
	if e.Class != ClassSyntax {
		return ""
	}
	if e.AtEnd {
		return "at end"
	}
	return fmt.Sprintf("at '%s'", e.Lexeme)
}

// String returns the canonical one-line diagnostic.
//
//	[line 3] Error: Unexpected character: #
//	[line 3] Error at ';': Expect expression.
//	[line 3] Undefined variable 'x'.
func (e *LoxError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "[line %d] ", e.Line)

	switch e.Class {
	case ClassRuntime:
		sb.WriteString(e.Message)
	default:
		sb.WriteString("Error")
		if where := e.Where(); where != "" {
			sb.WriteString(" ")
			sb.WriteString(where)
		}
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *LoxError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassLexical:
		sb.WriteString("Lexical error")
	case ClassSyntax:
		sb.WriteString("Syntax error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		fmt.Fprintf(&sb, "\n  at: line %d", e.Line)
	} else {
		fmt.Fprintf(&sb, ": line %d", e.Line)
	}
	if where := e.Where(); where != "" {
		sb.WriteString(", ")
		sb.WriteString(where)
	}
	sb.WriteString("\n  ")
	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  hint: ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *LoxError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *LoxError) WithFile(file string) *LoxError {
	copy := *e
	copy.File = file
	return &copy
}

// IsLexical returns true if this is a scanner error.
func (e *LoxError) IsLexical() bool { return e.Class == ClassLexical }

// IsSyntax returns true if this is a parser error.
func (e *LoxError) IsSyntax() bool { return e.Class == ClassSyntax }

// IsRuntime returns true if this is an evaluation error.
func (e *LoxError) IsRuntime() bool { return e.Class == ClassRuntime }

// IsCompile returns true for errors raised before evaluation starts.
func (e *LoxError) IsCompile() bool { return e.Class == ClassLexical || e.Class == ClassSyntax }

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest candidate to input. Identifiers are case
// sensitive, so a difference in case counts as an edit. Returns "" when
// nothing is within the threshold for the input's length.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range sorted {
		dist := levenshteinDistance(input, candidate)
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit
	// Medium words (4-6): max 2 edits
	// Longer words (7+): max 3 edits
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}

	return bestMatch
}

// NewUndefinedVariable creates the runtime error for an unbound name, with a
// "Did you mean" hint when a visible name is close enough.
func NewUndefinedVariable(line int, name string, visible []string) *LoxError {
	err := NewRuntime(line, name, fmt.Sprintf("Undefined variable '%s'.", name))
	if suggestion := FindClosestMatch(name, visible); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}
