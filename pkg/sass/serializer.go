package sass

import (
	"fmt"
	"strings"

	"github.com/openfroyo/sassdata/pkg/oracle"
	"github.com/openfroyo/sassdata/pkg/value"
)

// Serializer converts resolved values into Sass expressions.
type Serializer struct {
	oracle oracle.Oracle
}

// NewSerializer creates a serializer that consults o for quoting decisions.
func NewSerializer(o oracle.Oracle) *Serializer {
	return &Serializer{oracle: o}
}

// Serialize renders v as a Sass expression.
func (s *Serializer) Serialize(v any) (string, error) {
	var b strings.Builder
	if err := s.write(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Serializer) write(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case *value.Deferred, value.Function:
		b.WriteString(Quote(value.FunctionSentinel))
		return nil
	case []any:
		return s.writeList(b, t)
	case *value.Map:
		return s.writeMap(b, t)
	case nil:
		b.WriteString(s.scalar("null"))
		return nil
	case bool:
		if t {
			b.WriteString(s.scalar("true"))
		} else {
			b.WriteString(s.scalar("false"))
		}
		return nil
	case value.Number:
		b.WriteString(s.scalar(string(t)))
		return nil
	case string:
		b.WriteString(s.scalar(t))
		return nil
	default:
		return fmt.Errorf("cannot serialize value of type %T", v)
	}
}

func (s *Serializer) writeList(b *strings.Builder, list []any) error {
	b.WriteByte('(')
	for i, item := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := s.write(b, item); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	b.WriteByte(')')
	return nil
}

func (s *Serializer) writeMap(b *strings.Builder, m *value.Map) error {
	b.WriteByte('(')
	first := true
	var err error
	m.Range(func(k string, v any) bool {
		if !IsValidKey(k) {
			return true
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(s.key(k))
		b.WriteString(": ")
		if werr := s.write(b, v); werr != nil {
			err = fmt.Errorf("%s: %w", k, werr)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	b.WriteByte(')')
	return nil
}

// scalar returns text bare when the compiler accepts it as a map value.
func (s *Serializer) scalar(text string) string {
	if oracle.AcceptsValue(s.oracle, text) {
		return text
	}
	return Quote(text)
}

// key returns k bare when the compiler accepts it as a map key.
func (s *Serializer) key(k string) string {
	if oracle.AcceptsKey(s.oracle, k) {
		return k
	}
	return Quote(k)
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `, "#{", `\#{`)

// Quote renders text as a double-quoted Sass string.
func Quote(text string) string {
	return `"` + quoteReplacer.Replace(text) + `"`
}
