// Package node implements the dynamic value model: a closed set of value
// kinds and the two containers built on it, Hash (integer id -> Value) and
// List (index -> Value).
//
// Hash and List are themselves Values, so either may hold the other at any
// depth. Containers are not safe for concurrent use.
//
// Accessors follow a strict contract: reading an id or index that does not
// exist, or reading with the wrong kind, is a programming error and panics
// with an *invariant.Violation. The one implicit conversion is that the Float
// getters widen an Int entry.
package node

import (
	"fmt"

	"github.com/opal-lang/nodeio/core/invariant"
)

// Kind is the discriminant of a Value.
type Kind int

const (
	KindUndef Kind = iota
	KindInt
	KindFloat
	KindStr
	KindHash
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindUndef:
		return "undef"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindHash:
		return "hash"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a node value. Concrete types:
//
//   - Undef
//   - Int    (64-bit signed)
//   - Float  (64-bit)
//   - Str    (immutable text)
//   - *Hash
//   - *List
type Value interface {
	Kind() Kind
	nodeValue() // sealed marker - only types in this package implement Value
}

// Undef is an entry that exists but holds no value.
type Undef struct{}

// Int is a 64-bit signed integer value.
type Int int64

// Float is a 64-bit floating point value.
type Float float64

// Str is an immutable string value.
type Str string

func (Undef) Kind() Kind { return KindUndef }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Str) Kind() Kind   { return KindStr }
func (*Hash) Kind() Kind { return KindHash }
func (*List) Kind() Kind { return KindList }

func (Undef) nodeValue() {}
func (Int) nodeValue()   {}
func (Float) nodeValue() {}
func (Str) nodeValue()   {}
func (*Hash) nodeValue() {}
func (*List) nodeValue() {}

// normalize maps a nil Value to Undef and rejects nil containers.
func normalize(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Undef{}
	case *Hash:
		invariant.NotNil(x, "hash value")
	case *List:
		invariant.NotNil(x, "list value")
	}
	return v
}

// expect asserts that v has the concrete type T.
// where/at describe the entry for the violation message.
func expect[T Value](v Value, where string, at int) T {
	t, ok := v.(T)
	if !ok {
		var zero T
		invariant.Precondition(false, "%s %d: want %s, got %s", where, at, zero.Kind(), v.Kind())
	}
	return t
}

// expectFloat reads a Float, widening an Int.
func expectFloat(v Value, where string, at int) float64 {
	switch x := v.(type) {
	case Float:
		return float64(x)
	case Int:
		return float64(x)
	}
	invariant.Precondition(false, "%s %d: want float, got %s", where, at, v.Kind())
	return 0
}
