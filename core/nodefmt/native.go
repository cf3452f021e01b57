package nodefmt

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/opal-lang/nodeio/core/intern"
	"github.com/opal-lang/nodeio/core/node"
)

var (
	// ErrUnknownField means a hash id has no interned name.
	ErrUnknownField = errors.New("unknown field id")
	// ErrCycle means a container is reachable from itself.
	ErrCycle = errors.New("container cycle")
	// ErrUnsupported means a value has no representation in the target format.
	ErrUnsupported = errors.New("unsupported value")
)

// ToNative converts v to map[string]any, []any, int64, float64, string or
// nil (for Undef). Hash ids become their interned names.
func ToNative(v node.Value, opts ...Option) (any, error) {
	w := &walker{names: newConfig(opts).names, open: make(map[node.Value]bool)}
	return w.native(v)
}

type walker struct {
	names *intern.Table
	open  map[node.Value]bool // containers on the current path
}

func (w *walker) push(v node.Value) error {
	if w.open[v] {
		return ErrCycle
	}
	w.open[v] = true
	return nil
}

func (w *walker) pop(v node.Value) {
	delete(w.open, v)
}

func (w *walker) name(id int) (string, error) {
	name, ok := w.names.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w %d", ErrUnknownField, id)
	}
	return name, nil
}

func (w *walker) native(v node.Value) (any, error) {
	switch v := v.(type) {
	case nil, node.Undef:
		return nil, nil
	case node.Int:
		return int64(v), nil
	case node.Float:
		return float64(v), nil
	case node.Str:
		return string(v), nil
	case *node.Hash:
		if err := w.push(v); err != nil {
			return nil, err
		}
		defer w.pop(v)

		out := make(map[string]any, v.Len())
		for id, child := range v.All() {
			name, err := w.name(id)
			if err != nil {
				return nil, err
			}
			nv, err := w.native(child)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			out[name] = nv
		}
		return out, nil
	case *node.List:
		if err := w.push(v); err != nil {
			return nil, err
		}
		defer w.pop(v)

		out := make([]any, 0, v.Len())
		for i, child := range v.All() {
			nv, err := w.native(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, nv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// FromNative is the inverse of ToNative. Map keys are interned. It accepts
// the shapes produced by the JSON, YAML and CBOR decoders: any signed or
// unsigned integer type, float32/float64, string, nil, []any and maps keyed
// by strings.
func FromNative(x any, opts ...Option) (node.Value, error) {
	names := newConfig(opts).names

	switch x := x.(type) {
	case nil:
		return node.Undef{}, nil
	case string:
		return node.Str(x), nil
	case bool:
		return nil, fmt.Errorf("%w: bool", ErrUnsupported)
	case float64:
		return node.Float(x), nil
	case float32:
		return node.Float(x), nil
	case int:
		return node.Int(x), nil
	case int8:
		return node.Int(x), nil
	case int16:
		return node.Int(x), nil
	case int32:
		return node.Int(x), nil
	case int64:
		return node.Int(x), nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint8:
		return node.Int(x), nil
	case uint16:
		return node.Int(x), nil
	case uint32:
		return node.Int(x), nil
	case uint64:
		return fromUnsigned(x)
	case []any:
		l := node.NewList()
		for i, e := range x {
			v, err := FromNative(e, opts...)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			l.Push(v)
		}
		return l, nil
	case map[string]any:
		// Sorted so new names are interned in a stable order.
		h := node.NewHash()
		for _, k := range slices.Sorted(maps.Keys(x)) {
			v, err := FromNative(x[k], opts...)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			h.Set(names.Intern(k), v)
		}
		return h, nil
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: map key of type %T", ErrUnsupported, k)
			}
			m[key] = e
		}
		return FromNative(m, opts...)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, x)
	}
}

func fromUnsigned(u uint64) (node.Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: integer %d overflows int64", ErrUnsupported, u)
	}
	return node.Int(int64(u)), nil
}
