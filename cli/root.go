// Package cli implements the nodeview command: inspect, convert, digest and
// step through node documents and scene logs.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/runtime/parser"
	"github.com/opal-lang/nodeio/runtime/viz"
)

// app holds the streams and persistent flags shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	debug     bool
	telemetry bool
	noColor   bool

	logger *slog.Logger

	// newPrompter opens the interactive prompt used by step.
	newPrompter func() prompter
}

// NewRootCommand builds the command tree over the given streams.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, newPrompter: newLinerPrompter}
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nodeview",
		Short:         "Inspect node documents and step through scene logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(a.stderr, a.debug || os.Getenv("NODEIO_DEBUG") != "")
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&a.telemetry, "telemetry", false, "Print parse counters and timing to stderr")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		a.dumpCommand(),
		a.digestCommand(),
		a.checkCommand(),
		a.stepCommand(),
		a.watchCommand(),
	)
	return rootCmd
}

// Main runs the command line and returns the exit code.
func Main(ctx context.Context, args []string) int {
	cmd := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(os.Stderr, noColorArg(args)))
		return ExitCode(err)
	}
	return ExitSuccess
}

func noColorArg(args []string) bool {
	for _, a := range args {
		if a == "--no-color" {
			return true
		}
	}
	return false
}

// newLogger returns a text logger on w at debug level when debug is set,
// warn otherwise. Time and level are dropped for cleaner output.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// open starts a parser over path, or over stdin for "-".
func (a *app) open(path string, names *intern.Table) (*parser.Parser, error) {
	opts := []parser.ParserOpt{parser.WithInterner(names), parser.WithLogger(a.logger)}
	if a.telemetry {
		opts = append(opts, parser.WithTelemetry())
	}
	if path == parser.StdinPath {
		return parser.OpenReader(a.stdin, path, opts...)
	}
	return parser.Open(path, opts...)
}

// loadScene parses and validates the scene log at path.
func (a *app) loadScene(path string, names *intern.Table, last int) (*viz.Scene, error) {
	p, err := a.open(path, names)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	list, err := p.ParseList()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEOF(); err != nil {
		return nil, err
	}
	a.report(p)

	start := time.Now()
	scene, err := viz.Load(list, viz.WithNames(names), viz.WithLast(last), viz.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("scene loaded", "records", scene.Len(), "elapsed", time.Since(start))
	return scene, nil
}

// report prints parse telemetry when --telemetry is set.
func (a *app) report(p *parser.Parser) {
	t := p.Telemetry()
	if t == nil {
		return
	}
	fields := []string{
		fmt.Sprintf("lines=%d", t.Lines),
		fmt.Sprintf("tokens=%d", t.Tokens),
		fmt.Sprintf("hashes=%d", t.Hashes),
		fmt.Sprintf("lists=%d", t.Lists),
		fmt.Sprintf("scalars=%d", t.Scalars),
		fmt.Sprintf("parse_time=%s", t.ParseTime),
	}
	_, _ = fmt.Fprintf(a.stderr, "telemetry: %s\n", strings.Join(fields, " "))
}
