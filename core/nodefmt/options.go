// Package nodefmt renders node trees: back to the text grammar, as a
// debugging dump, as plain Go values for JSON and YAML encoders, and as a
// canonical CBOR snapshot with a stable digest.
//
// Hash ids are resolved to field names through an intern.Table, so every
// function takes the same options.
package nodefmt

import "github.com/opal-lang/nodeio/core/intern"

// Option configures rendering.
type Option func(*config)

type config struct {
	names  *intern.Table
	indent string
}

// WithNames resolves hash ids through t instead of intern.Default().
func WithNames(t *intern.Table) Option {
	return func(c *config) {
		c.names = t
	}
}

// WithIndent makes WriteText put each element on its own line, nested by
// indent.
func WithIndent(indent string) Option {
	return func(c *config) {
		c.indent = indent
	}
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	if c.names == nil {
		c.names = intern.Default()
	}
	return c
}
