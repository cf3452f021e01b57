package nodefmt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/opal-lang/nodeio/core/node"
)

// WriteText writes v in the text grammar the parser reads, followed by a
// newline. Values the grammar cannot express are rejected: Undef, NaN and
// infinite floats, strings containing a line break, and field names that
// are not identifiers.
func WriteText(w io.Writer, v node.Value, opts ...Option) error {
	c := newConfig(opts)
	tw := &textWriter{
		walker: walker{names: c.names, open: make(map[node.Value]bool)},
		w:      bufio.NewWriter(w),
		indent: c.indent,
	}
	if err := tw.value(v, 0); err != nil {
		return err
	}
	tw.w.WriteByte('\n')
	return tw.w.Flush()
}

// FormatText returns WriteText's output as a string.
func FormatText(v node.Value, opts ...Option) (string, error) {
	var b strings.Builder
	if err := WriteText(&b, v, opts...); err != nil {
		return "", err
	}
	return b.String(), nil
}

type textWriter struct {
	walker
	w      *bufio.Writer
	indent string
}

func (t *textWriter) newline(depth int) {
	if t.indent == "" {
		return
	}
	t.w.WriteByte('\n')
	for i := 0; i < depth; i++ {
		t.w.WriteString(t.indent)
	}
}

func (t *textWriter) separator(depth int) {
	t.w.WriteByte(',')
	if t.indent == "" {
		t.w.WriteByte(' ')
		return
	}
	t.newline(depth)
}

func (t *textWriter) value(v node.Value, depth int) error {
	switch v := v.(type) {
	case nil, node.Undef:
		return fmt.Errorf("%w: undef has no text form", ErrUnsupported)
	case node.Int:
		t.w.WriteString(strconv.FormatInt(int64(v), 10))
	case node.Float:
		s, err := formatFloat(float64(v))
		if err != nil {
			return err
		}
		t.w.WriteString(s)
	case node.Str:
		s, err := quote(string(v))
		if err != nil {
			return err
		}
		t.w.WriteString(s)
	case *node.Hash:
		return t.hash(v, depth)
	case *node.List:
		return t.list(v, depth)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
	return nil
}

func (t *textWriter) hash(h *node.Hash, depth int) error {
	if err := t.push(h); err != nil {
		return err
	}
	defer t.pop(h)

	t.w.WriteByte('{')
	if h.Len() == 0 {
		t.w.WriteByte('}')
		return nil
	}
	t.newline(depth + 1)

	first := true
	for id, child := range h.All() {
		if !first {
			t.separator(depth + 1)
		}
		first = false

		name, err := t.name(id)
		if err != nil {
			return err
		}
		if !isIdentifier(name) {
			return fmt.Errorf("%w: field name %q is not an identifier", ErrUnsupported, name)
		}
		t.w.WriteString(name)
		t.w.WriteString(": ")
		if err := t.value(child, depth+1); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	t.newline(depth)
	t.w.WriteByte('}')
	return nil
}

func (t *textWriter) list(l *node.List, depth int) error {
	if err := t.push(l); err != nil {
		return err
	}
	defer t.pop(l)

	t.w.WriteByte('[')
	if l.Len() == 0 {
		t.w.WriteByte(']')
		return nil
	}
	t.newline(depth + 1)

	for i, child := range l.All() {
		if i > 0 {
			t.separator(depth + 1)
		}
		if err := t.value(child, depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}

	t.newline(depth)
	t.w.WriteByte(']')
	return nil
}

// formatFloat renders f so that it lexes back as a decimal, never as an
// integer: a '.' is always present.
func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: float %v has no text form", ErrUnsupported, f)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

// quote escapes '"' and '\' with a backslash; every other byte is literal.
func quote(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", fmt.Errorf("%w: string %q spans a line", ErrUnsupported, s)
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Dump writes a one-level debugging listing of a container: label on its
// own line, then one "    key => value" line per entry. Hash keys print as
// their interned name, or the numeric id when it has none. Nested
// containers print as "hash" or "list".
func Dump(w io.Writer, label string, v node.Value, opts ...Option) error {
	c := newConfig(opts)
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, label)

	switch v := v.(type) {
	case *node.Hash:
		for id, child := range v.All() {
			key, ok := c.names.Lookup(id)
			if !ok {
				key = strconv.Itoa(id)
			}
			fmt.Fprintf(bw, "    %s => %s\n", key, dumpScalar(child))
		}
	case *node.List:
		for i, child := range v.All() {
			fmt.Fprintf(bw, "    %d => %s\n", i, dumpScalar(child))
		}
	default:
		fmt.Fprintf(bw, "    %s\n", dumpScalar(v))
	}
	return bw.Flush()
}

func dumpScalar(v node.Value) string {
	switch v := v.(type) {
	case node.Int:
		return strconv.FormatInt(int64(v), 10)
	case node.Float:
		return strconv.FormatFloat(float64(v), 'f', 6, 64)
	case node.Str:
		return string(v)
	case nil:
		return node.KindUndef.String()
	default:
		return v.Kind().String()
	}
}
