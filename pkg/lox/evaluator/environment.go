package evaluator

import (
	"sort"

	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/value"
)

// noOuter marks the global frame, which has no enclosing scope
const noOuter = -1

// frame is one scope: its bindings and the index of the enclosing frame
type frame struct {
	store map[string]value.Value
	outer int
}

// Environment is a chain of scopes stored as frames in one slice. Frames
// refer to their enclosing scope by index. The current cursor names the
// innermost active frame; lookups walk outward from it.
type Environment struct {
	frames  []frame
	current int
}

// Binding is a name and the value it is bound to
type Binding struct {
	Name  string
	Value value.Value
}

// NewEnvironment creates an environment holding only the global scope
func NewEnvironment() *Environment {
	e := &Environment{}
	e.Reset()
	return e
}

// Reset discards every binding and returns to a single empty global scope
func (e *Environment) Reset() {
	e.frames = []frame{{store: make(map[string]value.Value), outer: noOuter}}
	e.current = 0
}

// Depth returns the number of live frames, 1 for the global scope alone
func (e *Environment) Depth() int {
	return len(e.frames)
}

// Enter pushes a new scope enclosed by the current one and makes it current.
// It returns the cursor to hand back to Leave.
func (e *Environment) Enter() int {
	prev := e.current
	e.frames = append(e.frames, frame{store: make(map[string]value.Value), outer: prev})
	e.current = len(e.frames) - 1
	return prev
}

// Leave abandons the current scope and every frame pushed after it, then
// restores the cursor returned by the matching Enter.
func (e *Environment) Leave(prev int) {
	if e.current > 0 {
		clear(e.frames[e.current:])
		e.frames = e.frames[:e.current]
	}
	e.current = prev
}

// Define binds name in the current scope, overwriting any binding there
func (e *Environment) Define(name string, val value.Value) {
	e.frames[e.current].store[name] = val
}

// Get looks name up from the innermost scope outward
func (e *Environment) Get(name lexer.Token) (value.Value, error) {
	for i := e.current; i != noOuter; i = e.frames[i].outer {
		if val, ok := e.frames[i].store[name.Lexeme]; ok {
			return val, nil
		}
	}
	return nil, e.undefined(name)
}

// Assign rebinds name in the nearest scope that already holds it
func (e *Environment) Assign(name lexer.Token, val value.Value) error {
	for i := e.current; i != noOuter; i = e.frames[i].outer {
		if _, ok := e.frames[i].store[name.Lexeme]; ok {
			e.frames[i].store[name.Lexeme] = val
			return nil
		}
	}
	return e.undefined(name)
}

func (e *Environment) undefined(name lexer.Token) error {
	return perrors.NewUndefinedVariable(name.Line, name.Lexeme, e.AllIdentifiers())
}

// AllIdentifiers returns the sorted names visible from the current scope.
// This is used for fuzzy matching in error messages and REPL completion.
func (e *Environment) AllIdentifiers() []string {
	bindings := e.Bindings()
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.Name
	}
	return names
}

// Bindings returns every binding visible from the current scope, sorted by
// name. A shadowed outer binding is hidden by the inner one.
func (e *Environment) Bindings() []Binding {
	seen := make(map[string]bool)
	var result []Binding

	for i := e.current; i != noOuter; i = e.frames[i].outer {
		for name, val := range e.frames[i].store {
			if seen[name] {
				continue
			}
			seen[name] = true
			result = append(result, Binding{Name: name, Value: val})
		}
	}

	sort.Slice(result, func(a, b int) bool { return result[a].Name < result[b].Name })
	return result
}
