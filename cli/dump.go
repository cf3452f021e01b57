package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/core/node"
	"github.com/opal-lang/nodeio/core/nodefmt"
	"github.com/opal-lang/nodeio/runtime/lexer"
	"github.com/opal-lang/nodeio/runtime/parser"
)

var outputFormats = []string{"text", "json", "yaml", "cbor", "print"}

func (a *app) dumpCommand() *cobra.Command {
	var (
		format string
		input  string
		indent string
		asHash bool
	)
	cmd := &cobra.Command{
		Use:   "dump PATH",
		Short: "Parse a document and write it back out",
		Long: `Parse a document and write it back out.

Formats:
  text   the input grammar (use --indent to pretty-print)
  json   JSON, field names as object keys
  yaml   YAML, field names as mapping keys
  cbor   a canonical CBOR snapshot readable with --input cbor
  print  one line per top-level entry, nested containers by kind

PATH may be "-" for standard input. Gzip input is detected automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := intern.New()
			v, err := a.readDocument(args[0], input, asHash, names)
			if err != nil {
				return err
			}
			return a.write(format, indent, args[0], v, names)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, yaml, cbor or print")
	cmd.Flags().StringVar(&input, "input", "text", "Input format: text or cbor")
	cmd.Flags().StringVar(&indent, "indent", "", "Indent string for text output (default: single line)")
	cmd.Flags().BoolVar(&asHash, "hash", false, "Expect a hash document instead of a list")
	return cmd
}

func (a *app) digestCommand() *cobra.Command {
	var (
		input  string
		asHash bool
	)
	cmd := &cobra.Command{
		Use:   "digest PATH...",
		Short: "Print the BLAKE2b-256 digest of each document's canonical encoding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				names := intern.New()
				v, err := a.readDocument(path, input, asHash, names)
				if err != nil {
					return err
				}
				sum, err := nodefmt.Digest(v, nodefmt.WithNames(names))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				_, _ = fmt.Fprintf(a.stdout, "%s  %s\n", nodefmt.FormatDigest(sum), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "text", "Input format: text or cbor")
	cmd.Flags().BoolVar(&asHash, "hash", false, "Expect a hash document instead of a list")
	return cmd
}

// readDocument reads one list (or hash) document from path.
func (a *app) readDocument(path, input string, asHash bool, names *intern.Table) (node.Value, error) {
	switch input {
	case "text":
	case "cbor":
		return a.readSnapshot(path, names)
	default:
		return nil, &CLIError{
			Message: fmt.Sprintf("unknown input format %q", input),
			Hint:    "use --input text or --input cbor",
		}
	}

	p, err := a.open(path, names)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var v node.Value
	if asHash {
		v, err = p.ParseHash()
	} else {
		v, err = p.ParseList()
	}
	if err != nil {
		return nil, err
	}
	if err := p.ExpectEOF(); err != nil {
		return nil, err
	}
	a.report(p)
	return v, nil
}

func (a *app) readSnapshot(path string, names *intern.Table) (node.Value, error) {
	var r io.Reader = a.stdin
	if path != parser.StdinPath {
		f, err := os.Open(path)
		if err != nil {
			return nil, lexer.NewIOError(path, err)
		}
		defer f.Close()
		r = f
	}

	dr, err := parser.Decompress(r)
	if err != nil {
		return nil, lexer.NewIOError(path, err)
	}
	if c, ok := dr.(io.Closer); ok {
		defer c.Close()
	}
	data, err := io.ReadAll(dr)
	if err != nil {
		return nil, lexer.NewIOError(path, err)
	}
	v, err := nodefmt.UnmarshalSnapshot(data, nodefmt.WithNames(names))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (a *app) write(format, indent, path string, v node.Value, names *intern.Table) error {
	with := nodefmt.WithNames(names)
	switch format {
	case "text":
		return nodefmt.WriteText(a.stdout, v, with, nodefmt.WithIndent(indent))
	case "print":
		return nodefmt.Dump(a.stdout, path, v, with)
	case "cbor":
		data, err := nodefmt.MarshalSnapshot(v, with)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(data)
		return err
	case "json":
		native, err := nodefmt.ToNative(v, with)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(native)
	case "yaml":
		native, err := nodefmt.ToNative(v, with)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(native); err != nil {
			return err
		}
		return enc.Close()
	default:
		return &CLIError{
			Message: fmt.Sprintf("unknown output format %q", format),
			Hint:    fmt.Sprintf("use one of %v%s", outputFormats, suggestFormat(format)),
		}
	}
}

func suggestFormat(format string) string {
	ranks := fuzzy.RankFindFold(format, outputFormats)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return fmt.Sprintf(" (did you mean %q?)", ranks[0].Target)
}
