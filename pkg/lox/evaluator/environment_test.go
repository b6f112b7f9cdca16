package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/value"
)

func ident(name string) lexer.Token {
	return lexer.Token{Type: lexer.IDENT, Lexeme: name, Line: 1}
}

func num(f float64) value.Value { return value.Number{Value: f} }

func TestEnvironmentDefineAndGet(t *testing.T) {
	env := NewEnvironment()
	env.Define("a", num(1))

	got, err := env.Get(ident("a"))
	require.NoError(t, err)
	assert.Equal(t, num(1), got)

	env.Define("a", num(2))
	got, err = env.Get(ident("a"))
	require.NoError(t, err)
	assert.Equal(t, num(2), got)

	_, err = env.Get(ident("missing"))
	require.Error(t, err)
	assert.Equal(t, "[line 1] Undefined variable 'missing'.", err.Error())
}

func TestEnvironmentShadowAndAssign(t *testing.T) {
	env := NewEnvironment()
	env.Define("a", num(1))
	env.Define("b", num(10))

	prev := env.Enter()
	env.Define("a", num(2))
	require.NoError(t, env.Assign(ident("b"), num(20)))

	got, _ := env.Get(ident("a"))
	assert.Equal(t, num(2), got)
	assert.Equal(t, []string{"a", "b"}, env.AllIdentifiers())

	env.Leave(prev)

	got, _ = env.Get(ident("a"))
	assert.Equal(t, num(1), got, "shadow must not leak outward")
	got, _ = env.Get(ident("b"))
	assert.Equal(t, num(20), got, "assignment writes to the owning scope")
	assert.Equal(t, 1, env.Depth())
}

func TestEnvironmentAssignUndefined(t *testing.T) {
	env := NewEnvironment()
	prev := env.Enter()
	err := env.Assign(ident("x"), num(1))
	env.Leave(prev)

	require.Error(t, err)
	_, err = env.Get(ident("x"))
	assert.Error(t, err, "failed assignment must not create a binding")
}

func TestEnvironmentBindings(t *testing.T) {
	env := NewEnvironment()
	env.Define("z", value.True)
	env.Define("a", value.Nil)
	prev := env.Enter()
	env.Define("z", value.False)

	assert.Equal(t, []Binding{{Name: "a", Value: value.Nil}, {Name: "z", Value: value.False}}, env.Bindings())

	env.Leave(prev)
	assert.Equal(t, []Binding{{Name: "a", Value: value.Nil}, {Name: "z", Value: value.True}}, env.Bindings())
}

func TestEnvironmentReset(t *testing.T) {
	env := NewEnvironment()
	env.Define("a", num(1))
	env.Enter()
	env.Reset()

	assert.Equal(t, 1, env.Depth())
	assert.Empty(t, env.Bindings())
}

// Nested enter/leave pairs always return to the starting state, and a
// binding is visible exactly while the scope that defined it is live.
func TestEnvironmentScopeLaws(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		env := NewEnvironment()
		env.Define("x", num(0))

		depth := rapid.IntRange(1, 8).Draw(t, "depth")
		shadow := rapid.SliceOfN(rapid.Bool(), depth, depth).Draw(t, "shadow")

		var prevs []int
		want := 0.0
		for level := 1; level <= depth; level++ {
			prevs = append(prevs, env.Enter())
			if shadow[level-1] {
				env.Define("x", num(float64(level)))
				want = float64(level)
			}
			got, err := env.Get(ident("x"))
			if err != nil {
				t.Fatalf("get x at level %d: %v", level, err)
			}
			if !value.Equal(got, num(want)) {
				t.Fatalf("level %d: x = %v, want %v", level, got, want)
			}
		}

		for i := len(prevs) - 1; i >= 0; i-- {
			env.Leave(prevs[i])
		}

		if env.Depth() != 1 {
			t.Fatalf("depth after unwinding = %d", env.Depth())
		}
		got, _ := env.Get(ident("x"))
		if !value.Equal(got, num(0)) {
			t.Fatalf("global x = %v after unwinding", got)
		}
	})
}
