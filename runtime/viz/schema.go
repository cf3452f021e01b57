package viz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema describes one scene-log record after conversion to plain Go
// values. Kind-specific typing that JSON Schema cannot express (an index
// written as 3.0 instead of 3) is checked separately in Load.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["kind", "line"],
  "properties": {
    "kind":  {"enum": ["geom", "hide", "unhide"]},
    "line":  {"type": "string"},
    "index": {"type": "integer", "minimum": 0},
    "shape": {
      "type": "object",
      "required": ["kind", "x", "y", "z", "w", "h", "d", "color"],
      "properties": {
        "kind":  {"enum": ["box"]},
        "x":     {"type": "number"},
        "y":     {"type": "number"},
        "z":     {"type": "number"},
        "w":     {"type": "number", "minimum": 0},
        "h":     {"type": "number", "minimum": 0},
        "d":     {"type": "number", "minimum": 0},
        "color": {"type": "string", "minLength": 1}
      }
    }
  },
  "if":   {"properties": {"kind": {"const": "geom"}}},
  "then": {"required": ["shape"]},
  "else": {"required": ["index"]}
}`

const recordSchemaURL = "mem://nodeio/scene-record.json"

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// schema compiles recordSchema on first use.
func schema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
			compileErr = fmt.Errorf("add record schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(recordSchemaURL)
	})
	return compiledSchema, compileErr
}

// validateRecord checks a native record against the schema and reports the
// most specific failure.
func validateRecord(native any) error {
	s, err := schema()
	if err != nil {
		return err
	}
	if err := s.Validate(native); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(leafMessage(ve))
		}
		return err
	}
	return nil
}

// leafMessage flattens a validation error tree to its deepest causes.
func leafMessage(ve *jsonschema.ValidationError) string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, ve.Message)
	}
	msgs := make([]string, 0, len(ve.Causes))
	for _, c := range ve.Causes {
		msgs = append(msgs, leafMessage(c))
	}
	return strings.Join(msgs, "; ")
}

// suggest returns the closest candidate to target, or "" if none is close.
func suggest(target string, candidates []string) string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

// didYouMean formats a suggestion suffix for error messages.
func didYouMean(target string, candidates []string) string {
	if s := suggest(target, candidates); s != "" {
		return fmt.Sprintf(" (did you mean %q?)", s)
	}
	return ""
}
