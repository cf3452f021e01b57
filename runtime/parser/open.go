package parser

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/opal-lang/nodeio/core/node"
	"github.com/opal-lang/nodeio/runtime/lexer"
)

// StdinPath is the path that makes Open read standard input.
const StdinPath = "-"

// gzip member header (RFC 1952).
var gzipMagic = []byte{0x1f, 0x8b}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path for parsing. Input that begins with the gzip magic bytes
// is decompressed transparently; anything else is read as is. StdinPath
// reads standard input. Close the parser to release the file.
func Open(path string, opts ...ParserOpt) (*Parser, error) {
	if path == StdinPath {
		return OpenReader(os.Stdin, path, opts...)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, lexer.NewIOError(path, err)
	}
	p, err := OpenReader(f, path, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	p.closer = append(p.closer, f)
	return p, nil
}

// OpenReader is Open for an already open stream named name. Closing the
// parser releases the decompressor but not r.
func OpenReader(r io.Reader, name string, opts ...ParserOpt) (*Parser, error) {
	dr, err := Decompress(r)
	if err != nil {
		return nil, lexer.NewIOError(name, err)
	}
	var cs closers
	if c, ok := dr.(io.Closer); ok {
		cs = append(cs, c)
	}

	p := New(dr, append([]ParserOpt{WithPath(name)}, opts...)...)
	p.closer = cs
	return p, nil
}

// Decompress wraps r in a gzip reader when it starts with the gzip magic and
// returns a buffered view of r otherwise. The result may be an io.Closer.
func Decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(head) < len(gzipMagic) || head[0] != gzipMagic[0] || head[1] != gzipMagic[1] {
		return br, nil
	}
	return gzip.NewReader(br)
}

// ParseFile parses the single document stored at path.
func ParseFile(path string, opts ...ParserOpt) (node.Value, error) {
	p, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return parseOne(p)
}

// ParseString parses a single document held in memory.
func ParseString(src string, opts ...ParserOpt) (node.Value, error) {
	return parseOne(New(strings.NewReader(src), opts...))
}

func parseOne(p *Parser) (node.Value, error) {
	v, err := p.ParseDocument()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEOF(); err != nil {
		return nil, err
	}
	return v, nil
}
