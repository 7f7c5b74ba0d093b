// Package oracle decides whether a Sass fragment is acceptable bare by asking
// a real compiler instead of re-implementing the Sass grammar.
//
// Fragments are embedded in tiny probe stylesheets (see ValueProbe and
// KeyProbe); a probe that compiles means the fragment can be emitted as-is,
// anything else means it has to be quoted.
package oracle

import "strings"

const (
	valueProbePrefix = "$foo: (key: "
	keyProbeSuffix   = ": 'foo');"
)

// Oracle reports whether a probe stylesheet compiles. Implementations never
// return errors; a failure of any kind is a rejection.
type Oracle interface {
	IsAcceptable(source string) bool
}

// ValueProbe embeds a value fragment in a map-value position.
func ValueProbe(fragment string) string {
	return valueProbePrefix + fragment + ");"
}

// KeyProbe embeds a key fragment in a map-key position.
func KeyProbe(key string) string {
	return "$foo: (" + key + keyProbeSuffix
}

// AcceptsValue reports whether fragment can be emitted unquoted as a value.
func AcceptsValue(o Oracle, fragment string) bool {
	return o.IsAcceptable(ValueProbe(fragment))
}

// AcceptsKey reports whether key can be emitted unquoted as a map key.
func AcceptsKey(o Oracle, key string) bool {
	return o.IsAcceptable(KeyProbe(key))
}

// probeKind labels a probe source for metrics.
func probeKind(source string) string {
	switch {
	case strings.HasPrefix(source, valueProbePrefix):
		return "value"
	case strings.HasSuffix(source, keyProbeSuffix):
		return "key"
	default:
		return "raw"
	}
}

// Func adapts a plain function to the Oracle interface.
type Func func(source string) bool

// IsAcceptable calls f.
func (f Func) IsAcceptable(source string) bool { return f(source) }

// Table is an Oracle backed by known verdicts. Unknown sources are rejected.
type Table map[string]bool

// IsAcceptable looks source up in the table.
func (t Table) IsAcceptable(source string) bool { return t[source] }

// AllowValues marks value fragments as acceptable and returns t.
func (t Table) AllowValues(fragments ...string) Table {
	for _, f := range fragments {
		t[ValueProbe(f)] = true
	}
	return t
}

// AllowKeys marks key fragments as acceptable and returns t.
func (t Table) AllowKeys(keys ...string) Table {
	for _, k := range keys {
		t[KeyProbe(k)] = true
	}
	return t
}
