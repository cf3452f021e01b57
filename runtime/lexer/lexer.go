package lexer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace     [128]bool
	isDigit          [128]bool
	isIdentStart     [128]bool
	isIdentPart      [128]bool
	singleCharTokens [128]TokenType
	isSingleChar     [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f'
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
	}

	for ch, tt := range map[byte]TokenType{
		'[': LSQUARE,
		']': RSQUARE,
		'{': LBRACE,
		'}': RBRACE,
		'(': LPAREN,
		')': RPAREN,
		',': COMMA,
		':': COLON,
	} {
		singleCharTokens[ch] = tt
		isSingleChar[ch] = true
	}
}

// LexerOpt represents a lexer configuration option
type LexerOpt func(*LexerConfig)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	path      string
	telemetry bool
	logger    *slog.Logger
}

// WithPath names the input in diagnostics.
func WithPath(path string) LexerOpt {
	return func(c *LexerConfig) {
		c.path = path
	}
}

// WithTelemetry enables line and token counting.
func WithTelemetry() LexerOpt {
	return func(c *LexerConfig) {
		c.telemetry = true
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) {
		c.logger = logger
	}
}

// Telemetry holds lexer counters (production-safe)
type Telemetry struct {
	Lines  int               // lines read from the input
	Tokens int               // tokens produced, including EOF
	ByType map[TokenType]int // tokens per type
}

// Lexer turns a line-buffered byte stream into tokens, holding at most one
// token of lookahead. It reads the input one line at a time and never
// buffers more than the current line.
type Lexer struct {
	r    *bufio.Reader
	path string

	line    []byte // current line, newline stripped
	lineNum int    // 1-based number of the current line
	pos     int    // byte offset of the next unread character in line
	atEOF   bool   // the reader is exhausted

	peeked bool
	tok    Token
	err    error // sticky: once set every call returns it

	telemetry *Telemetry
	logger    *slog.Logger
}

// New creates a lexer over r.
func New(r io.Reader, opts ...LexerOpt) *Lexer {
	config := &LexerConfig{}
	for _, opt := range opts {
		opt(config)
	}

	l := &Lexer{
		r:      bufio.NewReader(r),
		path:   config.path,
		logger: config.logger,
	}
	if l.logger == nil {
		l.logger = defaultLogger()
	}
	if config.telemetry {
		l.telemetry = &Telemetry{ByType: make(map[TokenType]int)}
	}
	return l
}

// defaultLogger discards output unless NODEIO_DEBUG_LEXER is set.
func defaultLogger() *slog.Logger {
	if os.Getenv("NODEIO_DEBUG_LEXER") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove timestamp and level for cleaner output
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Telemetry returns the counters, or nil when telemetry is off.
func (l *Lexer) Telemetry() *Telemetry {
	return l.telemetry
}

// Path returns the input name used in diagnostics.
func (l *Lexer) Path() string {
	return l.path
}

// Line returns the text of the line currently being lexed.
func (l *Lexer) Line() string {
	return string(l.line)
}

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	if l.peeked {
		return l.tok, nil
	}

	tok, err := l.scan()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	l.tok = tok
	l.peeked = true

	if l.telemetry != nil {
		l.telemetry.Tokens++
		l.telemetry.ByType[tok.Type]++
	}
	l.logger.Debug("token", "type", tok.Type, "text", tok.Text, "pos", tok.Position)
	return tok, nil
}

// PeekIs reports whether the next token has type tt. Errors are left for
// the next Peek, Next or Expect to report.
func (l *Lexer) PeekIs(tt TokenType) bool {
	tok, err := l.Peek()
	return err == nil && tok.Type == tt
}

// Next consumes and returns the next token.
func (l *Lexer) Next() (Token, error) {
	tok, err := l.Peek()
	if err != nil {
		return Token{}, err
	}
	if tok.Type != EOF {
		l.peeked = false
	}
	return tok, nil
}

// Expect consumes the next token, which must have type tt. A mismatch is a
// syntax error and the token is left unconsumed.
func (l *Lexer) Expect(tt TokenType) (Token, error) {
	tok, err := l.Peek()
	if err != nil {
		return Token{}, err
	}
	if tok.Type != tt {
		return Token{}, l.SyntaxError(tok, "expected %s, got %s", tt.Describe(), tok.Describe())
	}
	if tok.Type != EOF {
		l.peeked = false
	}
	return tok, nil
}

// SyntaxError builds a syntax error located at tok. Parsers use it for
// grammar failures that Expect cannot express.
func (l *Lexer) SyntaxError(tok Token, format string, args ...any) *Error {
	return &Error{
		Type:     ErrorSyntax,
		Message:  fmt.Sprintf(format, args...),
		Path:     l.path,
		Source:   string(l.line),
		Position: tok.Position,
		Got:      tok.Type,
	}
}

// Describe names the token for diagnostics, including its text when it
// has one, e.g. "identifier 'name'".
func (t Token) Describe() string {
	switch t.Type {
	case IDENTIFIER, INTEGER, FLOAT:
		return t.Type.Describe() + " '" + t.Text + "'"
	case STRING:
		return "string " + strconv.Quote(t.Text)
	default:
		return t.Type.Describe()
	}
}

// scan produces the next token from the input.
func (l *Lexer) scan() (Token, error) {
	for {
		for l.pos >= len(l.line) {
			if l.atEOF {
				return Token{Type: EOF, Position: Position{Line: l.lineNum, Column: len(l.line) + 1}}, nil
			}
			if err := l.readLine(); err != nil {
				return Token{}, err
			}
		}

		ch := l.line[l.pos]
		if ch >= 128 {
			return Token{}, l.lexError(l.pos, "unexpected byte 0x%02x", ch)
		}

		switch {
		case ch == '#':
			// Comment runs to end of line.
			l.pos = len(l.line)
		case isWhitespace[ch]:
			l.pos++
		case isSingleChar[ch]:
			tok := Token{Type: singleCharTokens[ch], Position: l.position(l.pos)}
			l.pos++
			return tok, nil
		case ch == '"':
			return l.lexString()
		case isIdentStart[ch]:
			return l.lexIdentifier(), nil
		case ch == '+' || ch == '-' || isDigit[ch]:
			return l.lexNumber()
		default:
			return Token{}, l.lexError(l.pos, "unexpected character %q", ch)
		}
	}
}

// readLine loads the next line, stripping "\n" and a trailing "\r".
func (l *Lexer) readLine() error {
	data, err := l.r.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return NewIOError(l.path, err)
		}
		l.atEOF = true
		if len(data) == 0 {
			l.line = l.line[:0]
			l.pos = 0
			return nil
		}
	}

	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	l.line = data
	l.lineNum++
	l.pos = 0

	if l.telemetry != nil {
		l.telemetry.Lines++
	}
	return nil
}

func (l *Lexer) position(offset int) Position {
	return Position{Line: l.lineNum, Column: offset + 1}
}

func (l *Lexer) lexError(offset int, format string, args ...any) *Error {
	return &Error{
		Type:     ErrorLexical,
		Message:  fmt.Sprintf(format, args...),
		Path:     l.path,
		Source:   string(l.line),
		Position: l.position(offset),
	}
}

func (l *Lexer) lexIdentifier() Token {
	start := l.pos
	for l.pos < len(l.line) && l.line[l.pos] < 128 && isIdentPart[l.line[l.pos]] {
		l.pos++
	}
	return Token{Type: IDENTIFIER, Text: string(l.line[start:l.pos]), Position: l.position(start)}
}

// lexString reads a double-quoted string. A backslash takes the following
// character literally. The closing quote must be on the same line.
func (l *Lexer) lexString() (Token, error) {
	start := l.pos
	l.pos++ // opening quote

	var b strings.Builder
	for {
		if l.pos >= len(l.line) {
			return Token{}, l.lexError(start, "string literal may not span a line")
		}
		ch := l.line[l.pos]
		l.pos++

		switch ch {
		case '"':
			return Token{Type: STRING, Text: b.String(), Position: l.position(start)}, nil
		case '\\':
			if l.pos >= len(l.line) {
				return Token{}, l.lexError(start, "string literal may not span a line")
			}
			b.WriteByte(l.line[l.pos])
			l.pos++
		default:
			b.WriteByte(ch)
		}
	}
}

// lexNumber reads [+-]digits, optionally followed by '.' and fraction
// digits. The sign applies to the whole value.
func (l *Lexer) lexNumber() (Token, error) {
	start := l.pos
	if ch := l.line[l.pos]; ch == '+' || ch == '-' {
		l.pos++
	}

	digits := l.pos
	l.skipDigits()
	if l.pos == digits {
		return Token{}, l.lexError(start, "numeric literal has no digits")
	}

	if l.pos < len(l.line) && l.line[l.pos] == '.' {
		l.pos++
		l.skipDigits()
		text := string(l.line[start:l.pos])
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, l.lexError(start, "decimal literal %s out of range", text)
		}
		return Token{Type: FLOAT, Text: text, Float: f, Position: l.position(start)}, nil
	}

	text := string(l.line[start:l.pos])
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, l.lexError(start, "integer literal %s out of range", text)
	}
	return Token{Type: INTEGER, Text: text, Int: n, Position: l.position(start)}, nil
}

func (l *Lexer) skipDigits() {
	for l.pos < len(l.line) && l.line[l.pos] < 128 && isDigit[l.line[l.pos]] {
		l.pos++
	}
}

// Tokens drains the lexer, returning every token up to and including EOF.
func (l *Lexer) Tokens() ([]Token, error) {
	var out []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return out, err
		}
		out = append(out, tok)
		if tok.Type == EOF {
			return out, nil
		}
	}
}
