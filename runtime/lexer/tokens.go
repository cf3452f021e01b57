package lexer

import "fmt"

// TokenType represents lexical tokens of the node text format
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Literals and content
	IDENTIFIER // field names and bare scalar words
	STRING     // "double quoted", backslash escapes the next character
	INTEGER    // 123, -456, +7
	FLOAT      // 3.14, -0.5, 12.

	// Brackets and braces
	LSQUARE // [
	RSQUARE // ]
	LBRACE  // {
	RBRACE  // }
	LPAREN  // (
	RPAREN  // )

	// Separators
	COMMA // ,
	COLON // :
)

// Token represents a lexical token
type Token struct {
	Type TokenType
	// Text is the identifier name, the decoded string contents, or the
	// literal text of a number.
	Text     string
	Int      int64   // INTEGER value
	Float    float64 // FLOAT value
	Position Position
}

// Position represents a position in the input
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based byte column
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// String returns the token text (for testing and debugging)
func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Type.Symbol()
}

// Symbol returns the source spelling of structural tokens, or "" for
// tokens that carry text.
func (t TokenType) Symbol() string {
	switch t {
	case LSQUARE:
		return "["
	case RSQUARE:
		return "]"
	case LBRACE:
		return "{"
	case RBRACE:
		return "}"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	case COMMA:
		return ","
	case COLON:
		return ":"
	default:
		return ""
	}
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case IDENTIFIER:
		return "IDENTIFIER"
	case STRING:
		return "STRING"
	case INTEGER:
		return "INTEGER"
	case FLOAT:
		return "FLOAT"
	case LSQUARE:
		return "LSQUARE"
	case RSQUARE:
		return "RSQUARE"
	case LBRACE:
		return "LBRACE"
	case RBRACE:
		return "RBRACE"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case COMMA:
		return "COMMA"
	case COLON:
		return "COLON"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Describe returns a human-readable name for diagnostics, e.g. "'['" or
// "identifier".
func (t TokenType) Describe() string {
	if s := t.Symbol(); s != "" {
		return "'" + s + "'"
	}
	switch t {
	case EOF:
		return "end of input"
	case IDENTIFIER:
		return "identifier"
	case STRING:
		return "string"
	case INTEGER:
		return "integer"
	case FLOAT:
		return "decimal"
	default:
		return t.String()
	}
}
