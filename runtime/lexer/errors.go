package lexer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies input failures. Accessor misuse is not an input
// failure and is reported by core/invariant panics instead.
type ErrorType int

const (
	ErrorIO      ErrorType = iota // input could not be opened or read
	ErrorLexical                  // unexpected character, unterminated string, bad number
	ErrorSyntax                   // token present where the grammar required another
)

func (e ErrorType) String() string {
	switch e {
	case ErrorIO:
		return "io error"
	case ErrorLexical:
		return "lexical error"
	case ErrorSyntax:
		return "syntax error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is matching against an *Error's Type.
var (
	ErrIO      = errors.New("io error")
	ErrLexical = errors.New("lexical error")
	ErrSyntax  = errors.New("syntax error")
)

// Error is an input failure with location and source context.
type Error struct {
	Type     ErrorType
	Message  string
	Path     string    // input path, if known
	Source   string    // the offending line
	Position Position  // zero for IO errors
	Expected TokenType // syntax errors only
	Got      TokenType // syntax errors only
	Err      error     // underlying error (IO errors)
}

// Error returns the formatted error message with location and code snippet
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if snippet := e.snippet(); snippet != "" {
		b.WriteString("\n")
		b.WriteString(snippet)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by error type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Type == ErrorIO
	case ErrLexical:
		return e.Type == ErrorLexical
	case ErrSyntax:
		return e.Type == ErrorSyntax
	}
	return false
}

// snippet renders the error location in Rust/Clang style:
//
//	  --> scene.viz:3:7
//	   |
//	 3 | {a: "unterminated}
//	   |     ^
func (e *Error) snippet() string {
	location := e.Path
	if e.Position.Line > 0 {
		if location != "" {
			location += ":"
		}
		location += e.Position.String()
	}
	if location == "" {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  --> %s", location)
	if e.Position.Line == 0 {
		return b.String()
	}

	b.WriteString("\n   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", e.Position.Line, e.Source)
	b.WriteString("   | ")
	if e.Position.Column > 0 && e.Position.Column <= len(e.Source)+1 {
		b.WriteString(strings.Repeat(" ", e.Position.Column-1) + "^")
	}
	return b.String()
}

// NewIOError wraps an open/read failure.
func NewIOError(path string, err error) *Error {
	msg := "cannot read input"
	if path != "" {
		msg = fmt.Sprintf("cannot read %s", path)
	}
	return &Error{Type: ErrorIO, Message: msg, Path: path, Err: err}
}
