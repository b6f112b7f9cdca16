package repl

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(echo bool) (*Session, *bytes.Buffer) {
	var out bytes.Buffer
	return NewSession(Config{Echo: echo}, &out, nil), &out
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"print 1;", false},
		{"", false},
		{"{", true},
		{"{ var a = 1;", true},
		{"{ var a = 1; }", false},
		{"if (a", true},
		{"(1 + (2)", true},
		{`print "{";`, false},
		{`print "abc`, false},
		{`{ print "abc`, true},
		{"\"multi\nline\";", false},
		{"// {\n", false},
		{"print 1; // (", false},
		{"}", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := needsMoreInput(tt.input); got != tt.expected {
				t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFeedPersistsStateAndEchoes(t *testing.T) {
	s, out := newTestSession(true)

	s.Feed("var a = 1;")
	s.Feed("a + 1;")
	s.Feed("print a;")
	s.Feed("\"text\";")

	assert.Equal(t, "2\n1\ntext\n", out.String())
}

func TestFeedWithoutEcho(t *testing.T) {
	s, out := newTestSession(false)
	s.Feed("1 + 1;")
	s.Feed("print 3;")
	assert.Equal(t, "3\n", out.String())
}

func TestFeedMultiLineEntry(t *testing.T) {
	s, out := newTestSession(true)

	assert.Equal(t, PROMPT, s.Prompt())

	entry, quit := s.Feed("{")
	assert.False(t, quit)
	assert.Empty(t, entry)
	assert.Equal(t, CONTINUATION_PROMPT, s.Prompt())

	s.Feed("  var b = 2;")
	s.Feed("")
	entry, _ = s.Feed("  print b; }")

	assert.Equal(t, "{\n  var b = 2;\n\n  print b; }", entry)
	assert.Equal(t, "2\n", out.String())
	assert.Equal(t, PROMPT, s.Prompt())
}

func TestErrorsAbortOnlyTheEntry(t *testing.T) {
	s, out := newTestSession(true)

	s.Feed("var count = 1;")
	s.Feed("print cuont;")
	s.Feed("print (1;")
	s.Feed("print count;")

	expected := strings.Join([]string{
		"[line 1] Undefined variable 'cuont'.",
		"  hint: Did you mean `count`?",
		"[line 1] Error at ';': Expect ')' after expression.",
		"1",
		"",
	}, "\n")
	assert.Equal(t, expected, out.String())
}

func TestAbort(t *testing.T) {
	s, out := newTestSession(true)

	s.Feed("{ print 1;")
	assert.True(t, s.Abort())
	assert.False(t, s.Abort())

	s.Feed("print 2;")
	assert.Equal(t, "2\n", out.String())
}

func TestExitCommands(t *testing.T) {
	for _, word := range []string{"exit", "quit", "  exit  "} {
		s, _ := newTestSession(true)
		_, quit := s.Feed(word)
		assert.True(t, quit, word)
	}

	// Inside a multi-line entry, exit is just an identifier
	s, _ := newTestSession(true)
	s.Feed("{")
	_, quit := s.Feed("exit")
	assert.False(t, quit)
}

func TestCommands(t *testing.T) {
	s, out := newTestSession(true)

	s.Feed(":env")
	assert.Equal(t, "(no variables)\n", out.String())

	out.Reset()
	s.Feed(`var name = "lox";`)
	s.Feed("var n = 2;")
	s.Feed("var nothing;")
	s.Feed(":env")
	assert.Equal(t, "  n: NUMBER = 2\n  name: TEXT = \"lox\"\n  nothing: NIL = nil\n", out.String())

	out.Reset()
	s.Feed(":ast")
	s.Feed("print -n * 2;")
	s.Feed(":ast")
	s.Feed("n;")
	assert.Equal(t, "AST printing ON\n(print (* (- n) 2))\n-4\nAST printing OFF\n2\n", out.String())

	out.Reset()
	s.Feed(":clear")
	s.Feed("n;")
	assert.Equal(t, "Environment cleared\n[line 1] Undefined variable 'n'.\n", out.String())

	out.Reset()
	s.Feed(":nope")
	assert.Equal(t, "Unknown command: :nope (type :help for commands)\n", out.String())

	out.Reset()
	s.Feed(":help")
	assert.Contains(t, out.String(), ":env")
}

func TestEnvTruncatesLongValuesByRune(t *testing.T) {
	s, out := newTestSession(true)
	s.Feed(`var long = "` + strings.Repeat("é", 70) + `";`)

	out.Reset()
	s.Feed(":env")

	expected := "  long: TEXT = \"" + strings.Repeat("é", 56) + "...\n"
	assert.Equal(t, expected, out.String())
	assert.True(t, utf8.ValidString(out.String()))
}

func TestComplete(t *testing.T) {
	s, _ := newTestSession(true)
	s.Feed("var prefix = 1;")
	s.Feed("var printer = 2;")

	assert.Equal(t, []string{"print", "printer"}, s.Complete("pri"))
	assert.Equal(t, []string{"var x = prefix"}, s.Complete("var x = pre"))
	assert.Equal(t, []string{"(while"}, s.Complete("(whi"))
	assert.Nil(t, s.Complete("print "))
	assert.Nil(t, s.Complete(""))
}

func TestServe(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("var a = 20;\n{\n  a = a * 2;\n}\na + 2;\nexit\nprint 99;\n")

	require.NoError(t, Serve(Config{Echo: true}, in, &out, nil))
	assert.Equal(t, "42\n", out.String())
}

func TestServeFlushesUnfinishedEntry(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Serve(Config{Echo: true}, strings.NewReader("{ print 1;\n"), &out, nil))
	assert.Equal(t, "[line 1] Error at end: Expect '}' after block.\n", out.String())
}

func TestServeUnterminatedStringAbortsOnlyItsLine(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\"abc\nprint 1;\nvar a = 2;\na;\n")

	require.NoError(t, Serve(Config{Echo: true}, in, &out, nil))
	assert.Equal(t, "[line 1] Error: Unterminated string.\n1\n2\n", out.String())
}

func TestHistoryPath(t *testing.T) {
	assert.Equal(t, "/tmp/h", Config{HistoryFile: "/tmp/h"}.historyPath())
	assert.True(t, strings.HasSuffix(Config{}.historyPath(), ".taylox_history"))
}
