// Package value defines the data model shared by the loaders, the theme
// resolver and the Sass serializer.
//
// A value is one of:
//
//	nil, bool, string, Number   scalars
//	[]any                       ordered sequence
//	*Map                        insertion-ordered mapping
//	*Deferred                   deferred computation over the root value
//	Function                    opaque, unresolvable function
//
// Loaders produce raw values (possibly containing *Deferred). The theme
// resolver evaluates deferred mapping values exactly once, producing resolved
// values. Nothing in this package performs I/O.
package value

import (
	"context"
	"fmt"
	"strconv"
)

// FunctionSentinel is the text emitted for function values that could not be
// resolved in context.
const FunctionSentinel = "[function]"

// Number is a numeric literal kept in its textual form so the serializer can
// emit exactly what the source declared.
type Number string

// String returns the literal text.
func (n Number) String() string { return string(n) }

// Int returns a Number for an integer.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Float returns a Number for a float using the shortest representation that
// round-trips.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Function is an opaque function value: a builtin, a callable with more than
// one parameter, or a deferred value the resolver never evaluated.
type Function struct {
	Name string
}

// Deferred is a value computed lazily from the root of the tree it lives in.
// Arity is 0 or 1; zero-arity deferreds ignore the root.
type Deferred struct {
	Name  string
	Arity int
	Fn    func(ctx context.Context, root any) (any, error)
}

// NewDeferred creates a single-argument deferred value.
func NewDeferred(name string, fn func(root any) (any, error)) *Deferred {
	d := &Deferred{Name: name, Arity: 1}
	if fn != nil {
		d.Fn = func(_ context.Context, root any) (any, error) { return fn(root) }
	}
	return d
}

// Call evaluates the deferred value against root.
func (d *Deferred) Call(root any) (any, error) {
	return d.CallContext(context.Background(), root)
}

// CallContext is like Call but stops the evaluation when ctx is done.
func (d *Deferred) CallContext(ctx context.Context, root any) (any, error) {
	if d.Fn == nil {
		return nil, fmt.Errorf("deferred value %q has no function", d.Name)
	}
	v, err := d.Fn(ctx, root)
	if err != nil {
		if d.Name != "" {
			return nil, fmt.Errorf("evaluating %s: %w", d.Name, err)
		}
		return nil, err
	}
	return v, nil
}

// IsFunction reports whether v is a function value of either kind.
func IsFunction(v any) bool {
	switch v.(type) {
	case *Deferred, Function:
		return true
	}
	return false
}

// Kind names the shape of v for error messages and logs.
func Kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case Number:
		return "number"
	case []any:
		return "list"
	case *Map:
		return "map"
	case *Deferred:
		return "deferred"
	case Function:
		return "function"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Clone returns a deep copy of v. Deferred and function values are shared.
func Clone(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Normalize converts plain Go values (maps, slices, ints, floats) into the
// value model. Map keys are sorted since Go maps carry no order. It is meant
// for values built in code, such as configuration defaults and tests.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, Number, *Deferred, Function:
		return t, nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10)), nil
	case float64:
		return Float(t), nil
	case *Map:
		return t, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := Normalize(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, nil
	case map[string]any:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			n, err := Normalize(t[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m.Set(k, n)
		}
		return m, nil
	case map[string]string:
		m := NewMap()
		for _, k := range sortedKeys(t) {
			m.Set(k, t[k])
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
