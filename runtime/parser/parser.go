// Package parser builds node trees from the bracketed text format.
//
// The grammar is
//
//	list  := '[' (value (',' value)*)? ']'
//	hash  := '{' (field (',' field)*)? '}'
//	field := identifier ':' value
//	value := hash | list | identifier | string | int | float
//
// Field names are interned and used as hash ids. A bare identifier in value
// position is stored as a string. The first malformed construct ends the
// parse with a *lexer.Error; there is no partial result.
package parser

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/core/invariant"
	"github.com/opal-lang/nodeio/core/node"
	"github.com/opal-lang/nodeio/runtime/lexer"
)

// Parser reads node documents from a token stream.
type Parser struct {
	lex       *lexer.Lexer
	names     *intern.Table
	logger    *slog.Logger
	telemetry *ParseTelemetry
	closer    closers
	depth     int
}

// New creates a parser over r. The caller keeps ownership of r.
func New(r io.Reader, opts ...ParserOpt) *Parser {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.names == nil {
		config.names = intern.Default()
	}
	if config.logger == nil {
		config.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	lexOpts := []lexer.LexerOpt{lexer.WithPath(config.path), lexer.WithLogger(config.logger)}
	p := &Parser{
		names:  config.names,
		logger: config.logger,
	}
	if config.telemetry {
		p.telemetry = &ParseTelemetry{}
		lexOpts = append(lexOpts, lexer.WithTelemetry())
	}
	p.lex = lexer.New(r, lexOpts...)
	return p
}

// Names returns the table field names are interned into.
func (p *Parser) Names() *intern.Table {
	return p.names
}

// Path returns the input name used in diagnostics.
func (p *Parser) Path() string {
	return p.lex.Path()
}

// Telemetry returns parse counters, or nil when telemetry is off.
func (p *Parser) Telemetry() *ParseTelemetry {
	if p.telemetry == nil {
		return nil
	}
	if lt := p.lex.Telemetry(); lt != nil {
		p.telemetry.Lines = lt.Lines
		p.telemetry.Tokens = lt.Tokens
	}
	return p.telemetry
}

// Close releases the input opened by Open. It is a no-op for parsers built
// with New.
func (p *Parser) Close() error {
	if len(p.closer) == 0 {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

// ParseList consumes exactly one list production.
func (p *Parser) ParseList() (*node.List, error) {
	defer p.timed()()
	return p.list()
}

// ParseHash consumes exactly one hash production.
func (p *Parser) ParseHash() (*node.Hash, error) {
	defer p.timed()()
	return p.hash()
}

// ParseDocument consumes one top-level list or hash, whichever comes next.
func (p *Parser) ParseDocument() (node.Value, error) {
	defer p.timed()()

	tok, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != lexer.LSQUARE && tok.Type != lexer.LBRACE {
		return nil, p.lex.SyntaxError(tok, "expected '[' or '{' to start a document, got %s", tok.Describe())
	}
	return p.value()
}

// More reports whether any tokens remain before end of input.
func (p *Parser) More() (bool, error) {
	tok, err := p.lex.Peek()
	if err != nil {
		return false, err
	}
	return tok.Type != lexer.EOF, nil
}

// ExpectEOF fails with a syntax error if anything follows the last document.
func (p *Parser) ExpectEOF() error {
	_, err := p.lex.Expect(lexer.EOF)
	return err
}

func (p *Parser) timed() func() {
	if p.telemetry == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.telemetry.ParseTime += time.Since(start)
	}
}

func (p *Parser) enter(production string, at lexer.Position) {
	p.depth++
	p.logger.Debug("enter "+production, "pos", at, "depth", p.depth)
}

func (p *Parser) exit(production string, size int) {
	p.logger.Debug("exit "+production, "size", size, "depth", p.depth)
	p.depth--
}

func (p *Parser) list() (*node.List, error) {
	open, err := p.lex.Expect(lexer.LSQUARE)
	if err != nil {
		return nil, err
	}
	p.enter("list", open.Position)

	l := node.NewList()
	if p.lex.PeekIs(lexer.RSQUARE) {
		_, _ = p.lex.Next()
		p.closed(false)
		p.exit("list", 0)
		return l, nil
	}

	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		l.Push(v)

		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case lexer.COMMA:
			continue
		case lexer.RSQUARE:
			p.closed(false)
			p.exit("list", l.Len())
			return l, nil
		default:
			return nil, p.unclosed(tok, "']'", "list", open.Position)
		}
	}
}

func (p *Parser) hash() (*node.Hash, error) {
	open, err := p.lex.Expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	p.enter("hash", open.Position)

	h := node.NewHash()
	if p.lex.PeekIs(lexer.RBRACE) {
		_, _ = p.lex.Next()
		p.closed(true)
		p.exit("hash", 0)
		return h, nil
	}

	for {
		name, err := p.lex.Expect(lexer.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.lex.Expect(lexer.COLON); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}

		id := p.names.Intern(name.Text)
		h.Set(id, v)
		p.logger.Debug("field", "name", name.Text, "id", id, "kind", v.Kind())

		tok, err := p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case lexer.COMMA:
			continue
		case lexer.RBRACE:
			p.closed(true)
			p.exit("hash", h.Len())
			return h, nil
		default:
			return nil, p.unclosed(tok, "'}'", "hash", open.Position)
		}
	}
}

func (p *Parser) value() (node.Value, error) {
	tok, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}

	var v node.Value
	switch tok.Type {
	case lexer.LSQUARE:
		l, err := p.list()
		if err != nil {
			return nil, err
		}
		return l, nil
	case lexer.LBRACE:
		h, err := p.hash()
		if err != nil {
			return nil, err
		}
		return h, nil
	case lexer.IDENTIFIER, lexer.STRING:
		v = node.Str(tok.Text)
	case lexer.INTEGER:
		v = node.Int(tok.Int)
	case lexer.FLOAT:
		v = node.Float(tok.Float)
	default:
		return nil, p.lex.SyntaxError(tok, "expected value, got %s", tok.Describe())
	}

	_, err = p.lex.Next()
	invariant.Invariant(err == nil, "consuming a peeked token cannot fail")
	if p.telemetry != nil {
		p.telemetry.Scalars++
	}
	return v, nil
}

func (p *Parser) closed(isHash bool) {
	if p.telemetry == nil {
		return
	}
	if isHash {
		p.telemetry.Hashes++
	} else {
		p.telemetry.Lists++
	}
}

func (p *Parser) unclosed(tok lexer.Token, closer, production string, opened lexer.Position) *lexer.Error {
	return p.lex.SyntaxError(tok, "expected ',' or %s, got %s (%s opened at %s)",
		closer, tok.Describe(), production, opened)
}

// IsInputError reports whether err is one of the parser's input failures
// (IO, lexical or syntax) as opposed to some other error.
func IsInputError(err error) bool {
	var lexErr *lexer.Error
	return errors.As(err, &lexErr)
}
