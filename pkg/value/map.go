package value

import (
	"slices"
	"strings"
)

// Map is a string-keyed mapping that remembers insertion order. The zero
// value is not usable; create maps with NewMap or MapOf.
type Map struct {
	keys    []string
	entries map[string]any
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{entries: make(map[string]any)}
}

// MapOf builds a map from alternating key/value arguments. It panics on an
// odd argument count or a non-string key, so it is only used with literals.
func MapOf(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("value.MapOf: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("value.MapOf: key is not a string")
		}
		m.Set(k, kv[i+1])
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (m *Map) Set(key string, v any) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

// Delete removes key, preserving the order of the remaining keys.
func (m *Map) Delete(key string) {
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Range calls fn for every entry in order until fn returns false.
func (m *Map) Range(fn func(key string, v any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.entries[k]) {
			return
		}
	}
}

// GetMap returns the nested map stored under key, if any.
func (m *Map) GetMap(key string) (*Map, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Map)
	return sub, ok
}

// GetString returns the string stored under key, if any.
func (m *Map) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	out := &Map{
		keys:    slices.Clone(m.keys),
		entries: make(map[string]any, len(m.entries)),
	}
	for k, v := range m.entries {
		out.entries[k] = Clone(v)
	}
	return out
}

// ToNative converts m into plain Go maps and slices. Function values are
// replaced by FunctionSentinel. Used for debugging output and tests.
func (m *Map) ToNative() map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		out[k] = ToNative(v)
		return true
	})
	return out
}

// ToNative converts v into plain Go values; see Map.ToNative.
func ToNative(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.ToNative()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToNative(item)
		}
		return out
	case Number:
		return string(t)
	case *Deferred, Function:
		return FunctionSentinel
	default:
		return v
	}
}

// GoString renders the keys for debugging, e.g. {a, b, c}.
func (m *Map) GoString() string {
	return "{" + strings.Join(m.Keys(), ", ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
