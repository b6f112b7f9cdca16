// Package repl implements the interactive prompt. Every entry runs against
// one persistent interpreter; an error abandons only the current entry.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	perrors "github.com/sambeau/taylox/pkg/lox/errors"
	"github.com/sambeau/taylox/pkg/lox/lexer"
	"github.com/sambeau/taylox/pkg/lox/lox"
	"github.com/sambeau/taylox/pkg/lox/value"
)

const PROMPT = "> "
const CONTINUATION_PROMPT = ".. "

// Config holds REPL settings
type Config struct {
	Prompt             string
	ContinuationPrompt string
	HistoryFile        string // empty means $TMPDIR/.taylox_history
	Echo               bool
	Version            string
}

// Session holds the state of one interactive session: the runner, any
// partial multi-line entry, and display toggles. It does no terminal I/O
// of its own, so it can be driven by liner or by a plain reader.
type Session struct {
	cfg     Config
	out     io.Writer
	logger  *zap.Logger
	runner  *lox.Runner
	buffer  strings.Builder
	showAST bool
}

// NewSession creates a session whose prints and echoes go to out
func NewSession(cfg Config, out io.Writer, logger *zap.Logger) *Session {
	if cfg.Prompt == "" {
		cfg.Prompt = PROMPT
	}
	if cfg.ContinuationPrompt == "" {
		cfg.ContinuationPrompt = CONTINUATION_PROMPT
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:    cfg,
		out:    out,
		logger: logger,
		runner: lox.NewRunner(lox.WithOutput(out), lox.WithLogger(logger)),
	}
}

// Prompt returns the prompt for the next line
func (s *Session) Prompt() string {
	if s.buffer.Len() > 0 {
		return s.cfg.ContinuationPrompt
	}
	return s.cfg.Prompt
}

// Abort drops any partial entry and reports whether there was one
func (s *Session) Abort() bool {
	had := s.buffer.Len() > 0
	s.buffer.Reset()
	return had
}

// Feed handles one line of input. It returns the completed entry (for
// history) once the entry is complete and run, and quit when the user asked
// to leave.
func (s *Session) Feed(input string) (entry string, quit bool) {
	trimmed := strings.TrimSpace(input)

	if s.buffer.Len() == 0 {
		switch {
		case trimmed == "exit" || trimmed == "quit":
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			s.handleCommand(trimmed)
			return trimmed, false
		case trimmed == "":
			return "", false
		}
	}

	if s.buffer.Len() > 0 {
		s.buffer.WriteString("\n")
	}
	s.buffer.WriteString(input)

	full := s.buffer.String()
	if needsMoreInput(full) {
		return "", false
	}
	s.buffer.Reset()

	s.eval(full)
	return full, false
}

// eval runs one complete entry
func (s *Session) eval(src string) {
	s.logger.Debug("repl entry", zap.Int("bytes", len(src)))

	statements, err := s.runner.Compile(src)
	if err != nil {
		s.printErrors(err)
		return
	}

	if s.showAST {
		for _, stmt := range statements {
			fmt.Fprintln(s.out, stmt.String())
		}
	}

	res, err := s.runner.Execute(statements)
	if err != nil {
		s.printErrors(err)
		return
	}

	if s.cfg.Echo && res.HasValue() {
		fmt.Fprintln(s.out, res.Echo())
	}
}

// printErrors writes each diagnostic on its own line followed by its hints
func (s *Session) printErrors(err error) {
	list := perrors.Flatten(err)
	if len(list) == 0 {
		fmt.Fprintf(s.out, "error: %s\n", err)
		return
	}
	for _, e := range list {
		fmt.Fprintln(s.out, e.Error())
		for _, hint := range e.Hints {
			fmt.Fprintln(s.out, "  hint: "+hint)
		}
	}
}

// handleCommand handles REPL meta-commands that start with ':'
func (s *Session) handleCommand(cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(s.out, "REPL Commands:")
		fmt.Fprintln(s.out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(s.out, "  :env            Show variables in scope")
		fmt.Fprintln(s.out, "  :clear          Clear all variables")
		fmt.Fprintln(s.out, "  :ast            Toggle printing the parsed tree before running")
		fmt.Fprintln(s.out, "  exit, quit      Exit the REPL")

	case ":env":
		s.printEnvironment()

	case ":clear":
		s.runner.Reset()
		fmt.Fprintln(s.out, "Environment cleared")

	case ":ast":
		s.showAST = !s.showAST
		if s.showAST {
			fmt.Fprintln(s.out, "AST printing ON")
		} else {
			fmt.Fprintln(s.out, "AST printing OFF")
		}

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// printEnvironment displays the global bindings, sorted by name
func (s *Session) printEnvironment() {
	bindings := s.runner.Environment().Bindings()
	if len(bindings) == 0 {
		fmt.Fprintln(s.out, "(no variables)")
		return
	}

	for _, b := range bindings {
		shown := value.Stringify(b.Value)
		if t, ok := b.Value.(value.Text); ok {
			shown = strconv.Quote(t.Value)
		}
		if utf8.RuneCountInString(shown) > 60 {
			shown = string([]rune(shown)[:57]) + "..."
		}
		fmt.Fprintf(s.out, "  %s: %s = %s\n", b.Name, b.Value.Type(), shown)
	}
}

// Complete returns completions for line: the line with its last word
// replaced by each reserved word or defined name it prefixes
func (s *Session) Complete(line string) []string {
	start := len(line)
	for start > 0 && isIdentChar(line[start-1]) {
		start--
	}
	word := line[start:]
	if word == "" {
		return nil
	}

	candidates := append(lexer.Keywords(), s.runner.Environment().AllIdentifiers()...)
	seen := make(map[string]bool)
	var matches []string
	for _, c := range candidates {
		if seen[c] || !strings.HasPrefix(c, word) {
			continue
		}
		seen[c] = true
		matches = append(matches, line[:start]+c)
	}
	sort.Strings(matches)
	return matches
}

func isIdentChar(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// needsMoreInput reports whether input has unclosed braces or parentheses
// outside of strings and comments. An unterminated string is left for the
// scanner to report.
func needsMoreInput(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}

	braceCount := 0
	parenCount := 0
	inString := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				for i < len(input) && input[i] != '\n' {
					i++
				}
			}
		case '{':
			braceCount++
		case '}':
			braceCount--
		case '(':
			parenCount++
		case ')':
			parenCount--
		}
	}

	return braceCount > 0 || parenCount > 0
}

// historyPath returns the configured history file or the default one
func (c Config) historyPath() string {
	if c.HistoryFile != "" {
		return c.HistoryFile
	}
	return filepath.Join(os.TempDir(), ".taylox_history")
}

// Start runs the REPL on the terminal with line editing, history, and tab
// completion. It returns when the user quits.
func Start(cfg Config, out io.Writer, logger *zap.Logger) {
	s := NewSession(cfg, out, logger)

	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)
	line.SetCompleter(s.Complete)

	historyFile := s.cfg.historyPath()
	if f, err := os.Open(historyFile); err == nil {
		if _, err := line.ReadHistory(f); err != nil {
			s.logger.Warn("reading history", zap.String("file", historyFile), zap.Error(err))
		}
		f.Close()
	}

	defer func() {
		f, err := os.Create(historyFile)
		if err != nil {
			s.logger.Warn("saving history", zap.String("file", historyFile), zap.Error(err))
			return
		}
		line.WriteHistory(f)
		f.Close()
	}()

	s.banner()

	for {
		input, err := line.Prompt(s.Prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if s.Abort() {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		entry, quit := s.Feed(input)
		if quit {
			fmt.Fprintln(out, "Goodbye!")
			return
		}
		if entry != "" {
			line.AppendHistory(entry)
		}
	}
}

// Serve runs the REPL over a plain reader with no prompts, one line at a
// time. It is used when input is not an interactive terminal.
func Serve(cfg Config, in io.Reader, out io.Writer, logger *zap.Logger) error {
	s := NewSession(cfg, out, logger)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, quit := s.Feed(scanner.Text()); quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	// Run whatever is left of an unfinished entry so its errors surface
	if s.buffer.Len() > 0 {
		rest := s.buffer.String()
		s.buffer.Reset()
		s.eval(rest)
	}
	return nil
}

func (s *Session) banner() {
	fmt.Fprintf(s.out, "taylox %s\n", s.cfg.Version)
	fmt.Fprintln(s.out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(s.out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(s.out, "Type ':help' for REPL commands")
	fmt.Fprintln(s.out, "")
}
