package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sambeau/taylox/config"
	"github.com/sambeau/taylox/pkg/logger"
	"github.com/sambeau/taylox/pkg/lox/lox"
	"github.com/sambeau/taylox/pkg/lox/repl"
	"github.com/sambeau/taylox/pkg/watch"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// exitConfig is returned when the configuration cannot be loaded
const exitConfig = 78

const usageLine = "Usage: taylox [script]"

func main() {
	ctx := context.Background()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// app holds the command line state shared by every mode
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	eval       string
	check      bool
	tokens     bool
	printAST   bool
	watch      bool
	debug      bool
	timeout    time.Duration
	format     string

	cfg *config.Config
	log *zap.Logger
}

// run is the main entry point, designed for testability (Mat Ryer pattern).
// It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv}

	// Set up signal handling so --watch and long runs stop cleanly
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	code := lox.ExitOK
	cmd := a.command(&code)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		fmt.Fprintln(stderr, usageLine)
		return lox.ExitUsage
	}
	return code
}

// command builds the root command. The exit code of the selected mode is
// stored in code; a returned error is always a usage error.
func (a *app) command(code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taylox [script]",
		Short: "A tree-walking interpreter for Lox",
		Long: `taylox runs Lox scripts. With no script it starts an interactive prompt.

Config Resolution:
  1. --config flag
  2. TAYLOX_CONFIG environment variable
  3. ./taylox.yaml
  4. built-in defaults`,
		Example: `  taylox                     Start the REPL
  taylox hello.lox           Run a script
  taylox -e 'print 1 + 2;'   Run a code string
  taylox --check *.lox       Check syntax without running
  taylox --watch hello.lox   Re-run a script whenever it changes`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if a.check {
				if len(args) == 0 {
					return errors.New("--check needs at least one file")
				}
				return nil
			}
			return cobra.MaximumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.format != "text" && a.format != "json" {
				return fmt.Errorf("unknown format %q (use text or json)", a.format)
			}
			if a.eval != "" && len(args) > 0 {
				return errors.New("cannot combine -e with a script file")
			}
			if a.watch && len(args) == 0 {
				return errors.New("--watch needs a script file")
			}
			if (a.tokens || a.printAST) && a.eval == "" && len(args) == 0 {
				return errors.New("--tokens and --ast need a script file or -e")
			}

			*code = a.execute(cmd.Context(), args, cmd.Flags().Changed("timeout"))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&a.eval, "eval", "e", "", "Run a code string and echo its final value")
	flags.BoolVar(&a.check, "check", false, "Check syntax without running (accepts several files)")
	flags.BoolVar(&a.tokens, "tokens", false, "Print the token stream instead of running")
	flags.BoolVar(&a.printAST, "ast", false, "Print the parsed tree instead of running")
	flags.BoolVar(&a.watch, "watch", false, "Re-run the script whenever it changes")
	flags.DurationVar(&a.timeout, "timeout", 0, "Give up on a run after this long (0 means never)")
	flags.StringVar(&a.format, "format", "text", "Diagnostic format: text or json")
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default: auto-detect)")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("taylox version {{.Version}}\n")

	return cmd
}

// execute loads configuration and logging, then dispatches to a mode
func (a *app) execute(ctx context.Context, args []string, timeoutSet bool) int {
	cfg, configFile, err := config.LoadWithPath(a.configPath, a.getenv)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: loading config: %v\n", err)
		return exitConfig
	}

	// Apply CLI overrides
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	if timeoutSet {
		cfg.Run.Timeout = a.timeout
	}

	// Full validation after CLI overrides applied
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(a.stderr, "error: config validation: %v\n", err)
		return exitConfig
	}

	log, closeLog, err := logger.New(cfg.Logging, a.stderr)
	if err != nil {
		fmt.Fprintf(a.stderr, "error: creating logger: %v\n", err)
		return exitConfig
	}
	defer closeLog()

	a.cfg, a.log = cfg, log
	log.Debug("config loaded", zap.String("path", configFile), zap.Duration("timeout", cfg.Run.Timeout))

	switch {
	case a.check:
		return a.checkFiles(args)
	case a.watch:
		return a.watchFile(ctx, args[0])
	case a.eval != "":
		return a.runSource(ctx, a.eval, true)
	case len(args) == 1:
		src, err := os.ReadFile(args[0])
		if err != nil {
			lox.Report(a.stderr, fmt.Errorf("reading %s: %w", args[0], err), a.format, "")
			return lox.ExitIO
		}
		return a.runSource(ctx, string(src), false)
	default:
		return a.startREPL()
	}
}

// runSource runs, or with --tokens/--ast only displays, one source text.
// With echo set the value of a trailing expression statement is printed.
func (a *app) runSource(ctx context.Context, src string, echo bool) int {
	if a.tokens {
		return a.printTokens(src)
	}
	if a.printAST {
		return a.printTree(src)
	}

	if a.cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Run.Timeout)
		defer cancel()
	}

	runner := lox.NewRunner(lox.WithOutput(a.stdout), lox.WithLogger(a.log))
	res, err := runner.RunContext(ctx, src)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("run exceeded timeout of %s: %w", a.cfg.Run.Timeout, err)
		}
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitCode(err)
	}

	if echo && res.HasValue() {
		fmt.Fprintln(a.stdout, res.Echo())
	}
	return lox.ExitOK
}

// printTokens prints every token, one per line, then any lexical errors
func (a *app) printTokens(src string) int {
	tokens, err := lox.Scan(src)
	for _, tok := range tokens {
		fmt.Fprintln(a.stdout, tok.String())
	}
	if err != nil {
		lox.Report(a.stderr, err, a.format, "")
	}
	return lox.ExitCode(err)
}

// printTree prints each parsed statement in its parenthesized form
func (a *app) printTree(src string) int {
	tokens, err := lox.Scan(src)
	if err != nil {
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitCode(err)
	}
	statements, err := lox.Parse(tokens)
	if err != nil {
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitCode(err)
	}
	for _, stmt := range statements {
		fmt.Fprintln(a.stdout, stmt.String())
	}
	return lox.ExitOK
}

// checkFiles syntax-checks each file and returns the worst exit code
func (a *app) checkFiles(files []string) int {
	worst := lox.ExitOK

	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			lox.Report(a.stderr, fmt.Errorf("reading %s: %w", filename, err), a.format, "")
			worst = max(worst, lox.ExitIO)
			continue
		}

		if err := lox.Check(string(content)); err != nil {
			lox.Report(a.stderr, err, a.format, filename)
			worst = max(worst, lox.ExitCode(err))
			continue
		}
		a.log.Debug("syntax ok", zap.String("file", filename))
	}

	return worst
}

// watchFile runs path once, then again with a fresh interpreter each time
// it changes, until ctx ends
func (a *app) watchFile(ctx context.Context, path string) int {
	rerun := func(path string) {
		src, err := os.ReadFile(path)
		if err != nil {
			lox.Report(a.stderr, fmt.Errorf("reading %s: %w", path, err), a.format, "")
			return
		}
		code := a.runSource(ctx, string(src), false)
		a.log.Info("run finished", zap.String("path", path), zap.Int("exit", code))
	}

	w, err := watch.New(path, a.cfg.Run.WatchDebounce, rerun, a.log)
	if err != nil {
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitIO
	}

	rerun(path)
	if err := w.Run(ctx); err != nil {
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitIO
	}
	return lox.ExitOK
}

// startREPL runs the interactive prompt on a terminal, or reads entries
// line by line from any other input
func (a *app) startREPL() int {
	rcfg := repl.Config{
		Prompt:             a.cfg.REPL.Prompt,
		ContinuationPrompt: a.cfg.REPL.ContinuationPrompt,
		HistoryFile:        a.cfg.REPL.HistoryFile,
		Echo:               a.cfg.REPL.Echo,
		Version:            Version,
	}

	if f, ok := a.stdin.(*os.File); ok && isTerminal(f) {
		repl.Start(rcfg, a.stdout, a.log)
		return lox.ExitOK
	}

	if err := repl.Serve(rcfg, a.stdin, a.stdout, a.log); err != nil {
		lox.Report(a.stderr, err, a.format, "")
		return lox.ExitIO
	}
	return lox.ExitOK
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
