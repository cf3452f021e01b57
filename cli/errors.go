package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/nodeio/core/nodefmt"
	"github.com/opal-lang/nodeio/runtime/lexer"
	"github.com/opal-lang/nodeio/runtime/viz"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // usage and anything unclassified
	ExitIOError      = 2
	ExitParseError   = 3 // lexical or syntax error in the input
	ExitInvalidScene = 4
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
	Err     error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func (e *CLIError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, lexer.ErrIO):
		return ExitIOError
	case errors.Is(err, lexer.ErrLexical), errors.Is(err, lexer.ErrSyntax):
		return ExitParseError
	case errors.Is(err, viz.ErrInvalidScene):
		return ExitInvalidScene
	default:
		return ExitFailure
	}
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var (
		cliErr    *CLIError
		recordErr *viz.RecordError
	)
	switch {
	case errors.As(err, &cliErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), cliErr.Message)
		if cliErr.Details != "" {
			_, _ = fmt.Fprintf(w, "\n%s\n", cliErr.Details)
		}
		if cliErr.Hint != "" {
			_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), cliErr.Hint)
		}
	case errors.As(err, &recordErr):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor),
			"print the record with 'nodeview dump --format text --indent \"  \"' to inspect it")
	case errors.Is(err, nodefmt.ErrUnsupported):
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor),
			"cbor output can represent every value")
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}
