package sass

import (
	"fmt"
	"strings"

	"github.com/openfroyo/sassdata/pkg/oracle"
	"github.com/openfroyo/sassdata/pkg/value"
)

// Emitter turns a context map into a declaration document.
type Emitter struct {
	serializer *Serializer
}

// NewEmitter creates an emitter backed by o.
func NewEmitter(o oracle.Oracle) *Emitter {
	return &Emitter{serializer: NewSerializer(o)}
}

// Serializer returns the serializer used for values.
func (e *Emitter) Serializer() *Serializer {
	return e.serializer
}

// Emit writes one "$key: value;" line per top-level entry of ctx, in
// insertion order. Invalid keys and omitted values produce no line. Lines
// are joined by "\n" without a trailing newline.
func (e *Emitter) Emit(ctx *value.Map) (string, error) {
	lines := make([]string, 0, ctx.Len())
	var err error
	ctx.Range(func(k string, v any) bool {
		if !IsValidKey(k) || IsOmitted(v) {
			return true
		}
		text, serr := e.serializer.Serialize(v)
		if serr != nil {
			err = fmt.Errorf("serializing $%s: %w", k, serr)
			return false
		}
		lines = append(lines, "$"+k+": "+text+";")
		return true
	})
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
