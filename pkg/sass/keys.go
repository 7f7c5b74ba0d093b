// Package sass renders resolved values as Sass variable declarations.
//
// Lists become (a,b,c), maps become (key: value,other: value), and scalars
// are emitted bare whenever the compiler accepts them, double-quoted
// otherwise. Whether a fragment is acceptable is decided by an
// oracle.Oracle, never by a local reimplementation of the Sass grammar.
package sass

// OmitSentinel is the top-level value that suppresses a declaration.
const OmitSentinel = "#"

// IsValidKey reports whether key may appear as a variable name or map key.
// Keys starting with '$', '@' or ':' collide with Sass syntax and are
// dropped silently, as is the empty key.
func IsValidKey(key string) bool {
	if key == "" {
		return false
	}
	switch key[0] {
	case '$', '@', ':':
		return false
	}
	return true
}

// IsOmitted reports whether a top-level value is the omission sentinel.
func IsOmitted(v any) bool {
	s, ok := v.(string)
	return ok && s == OmitSentinel
}
