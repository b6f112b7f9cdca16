package lox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	perrors "github.com/sambeau/taylox/pkg/lox/errors"
)

func TestRunPrintsAndEchoes(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(WithOutput(&out))

	res, err := r.Run("var a = 1; { var a = 2; print a; } print a; a + 41;")
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out.String())
	assert.True(t, res.HasValue())
	assert.Equal(t, "42", res.Echo())

	res, err = r.Run("print 1;")
	require.NoError(t, err)
	assert.False(t, res.HasValue())
	assert.Equal(t, "", res.Echo())
}

func TestRunnerKeepsGlobals(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(WithOutput(&out))

	_, err := r.Run("var greeting = \"hi\";")
	require.NoError(t, err)
	_, err = r.Run("greeting = greeting + \"!\";")
	require.NoError(t, err)
	_, err = r.Run("print greeting;")
	require.NoError(t, err)
	assert.Equal(t, "hi!\n", out.String())

	// An error does not lose earlier state
	_, err = r.Run("print missing;")
	require.Error(t, err)
	res, err := r.Run("greeting;")
	require.NoError(t, err)
	assert.Equal(t, "hi!", res.Echo())

	assert.Equal(t, []string{"greeting"}, r.Environment().AllIdentifiers())
	r.Reset()
	assert.Empty(t, r.Environment().AllIdentifiers())
}

func TestRunStopsAtFailingStage(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		errors   []string
		exitCode int
		printed  string
	}{
		{
			name:     "lexical errors prevent parsing and running",
			src:      "print 1;\nprint @;\nprint #;",
			errors:   []string{"[line 2] Error: Unexpected character: @", "[line 3] Error: Unexpected character: #"},
			exitCode: ExitData,
		},
		{
			name:     "syntax errors prevent running",
			src:      "print 1;\nprint (2;\nvar = 3;",
			errors:   []string{"[line 2] Error at ';': Expect ')' after expression.", "[line 3] Error at '=': Expect variable name."},
			exitCode: ExitData,
		},
		{
			name:     "runtime error stops after output so far",
			src:      "print 1;\nprint -\"x\";\nprint 3;",
			errors:   []string{"[line 2] Operand must be a number."},
			exitCode: ExitSoftware,
			printed:  "1\n",
		},
		{
			name:     "unterminated string",
			src:      "print \"abc\ndef",
			errors:   []string{"[line 1] Error: Unterminated string."},
			exitCode: ExitData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := NewRunner(WithOutput(&out)).Run(tt.src)
			require.Error(t, err)

			list := perrors.Flatten(err)
			var got []string
			for _, e := range list {
				got = append(got, e.Error())
			}
			assert.Equal(t, tt.errors, got)
			assert.Equal(t, tt.exitCode, ExitCode(err))
			assert.Equal(t, tt.printed, out.String())
		})
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("print undefinedButFine;"))

	err := Check("print ;")
	require.Error(t, err)
	assert.Equal(t, ExitData, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"deadline", context.DeadlineExceeded, ExitSoftware},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), ExitSoftware},
		{"runtime", perrors.NewRuntime(1, "x", "boom"), ExitSoftware},
		{"wrapped syntax list", fmt.Errorf("main.lox: %w", perrors.List{perrors.NewSyntax(1, ";", false, "bad")}), ExitData},
		{"lexical", perrors.NewLexical(1, "bad"), ExitData},
		{"io", os.ErrNotExist, ExitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

// blockingWriter stalls every write until release is closed
type blockingWriter struct {
	release chan struct{}
	buf     bytes.Buffer
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return w.buf.Write(p)
}

func TestRunContextDeadline(t *testing.T) {
	out := &blockingWriter{release: make(chan struct{})}
	r := NewRunner(WithOutput(out))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := r.RunContext(ctx, "print 1; 2;")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, ExitSoftware, ExitCode(err))
	assert.False(t, res.HasValue(), "an abandoned run has no result")

	// The abandoned run still finishes once unblocked, and the next run
	// waits for it
	close(out.release)
	res, err = r.RunContext(context.Background(), "2 * 21;")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Echo())
	assert.Equal(t, "1\n", out.buf.String())
}

func TestRunContextCancel(t *testing.T) {
	out := &blockingWriter{release: make(chan struct{})}
	defer close(out.release)
	r := NewRunner(WithOutput(out))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := r.RunContext(ctx, "print 1;")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunLogsStages(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewRunner(WithOutput(&bytes.Buffer{}), WithLogger(zap.New(core)))

	_, err := r.Run("var a = 1;")
	require.NoError(t, err)

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"scanned", "parsed", "interpret", "interpreted"}, messages)
	assert.Equal(t, int64(6), logs.FilterMessage("scanned").All()[0].ContextMap()["tokens"])
}

func TestReport(t *testing.T) {
	list := perrors.List{
		perrors.NewSyntax(2, ";", false, "Expect expression."),
		perrors.NewSyntax(3, "", true, "Expect ';' after value."),
	}

	var buf bytes.Buffer
	Report(&buf, list, "text", "")
	assert.Equal(t, "[line 2] Error at ';': Expect expression.\n[line 3] Error at end: Expect ';' after value.\n", buf.String())

	buf.Reset()
	Report(&buf, perrors.NewRuntime(4, "x", "Undefined variable 'x'."), "text", "main.lox")
	assert.Equal(t, "main.lox: [line 4] Undefined variable 'x'.\n", buf.String())

	buf.Reset()
	Report(&buf, list, "json", "")
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Expect expression.", decoded[0]["message"])

	buf.Reset()
	Report(&buf, os.ErrNotExist, "text", "")
	assert.Equal(t, "error: file does not exist\n", buf.String())

	buf.Reset()
	Report(&buf, os.ErrNotExist, "json", "")
	assert.JSONEq(t, `{"error":"file does not exist"}`, buf.String())

	buf.Reset()
	Report(&buf, nil, "text", "")
	assert.Empty(t, buf.String())
}
