package parser

import (
	"log/slog"
	"time"

	"github.com/opal-lang/nodeio/core/intern"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// ParserConfig holds parser configuration
type ParserConfig struct {
	path      string
	names     *intern.Table
	logger    *slog.Logger
	telemetry bool
}

// WithPath names the input in diagnostics. Open sets it automatically.
func WithPath(path string) ParserOpt {
	return func(c *ParserConfig) {
		c.path = path
	}
}

// WithInterner interns field names into t instead of intern.Default().
func WithInterner(t *intern.Table) ParserOpt {
	return func(c *ParserConfig) {
		c.names = t
	}
}

// WithLogger traces productions at debug level.
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// WithTelemetry enables parse counters and timing
func WithTelemetry() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = true
	}
}

// ParseTelemetry holds parser counters (production-safe)
type ParseTelemetry struct {
	Lines     int           // input lines read
	Tokens    int           // tokens produced by the lexer
	Hashes    int           // hash productions completed
	Lists     int           // list productions completed
	Scalars   int           // scalar values stored
	ParseTime time.Duration // time spent inside entry points
}
