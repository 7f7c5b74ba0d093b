package loader

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/openfroyo/sassdata/pkg/value"
)

// cueDecoder evaluates CUE files. A cue.Context is not safe for concurrent
// use, so compilation and export share one lock.
type cueDecoder struct {
	mu  sync.Mutex
	ctx *cue.Context
}

func newCUEDecoder() *cueDecoder {
	return &cueDecoder{ctx: cuecontext.New()}
}

// decode compiles src and exports its regular fields in declaration order.
// Every exported value must be concrete.
func (d *cueDecoder) decode(path string, src []byte) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := d.ctx.CompileBytes(src, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}
	return fromCUE(v)
}

// cueError flattens CUE's error list into one error with positions.
func cueError(err error) error {
	return fmt.Errorf("%s", strings.TrimSpace(errors.Details(err, nil)))
}

func fromCUE(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		b, err := v.Bytes()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case cue.IntKind:
		i, err := v.Int(nil)
		if err != nil {
			return nil, err
		}
		return value.Number(i.String()), nil
	case cue.FloatKind:
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return value.Number(b), nil
	case cue.ListKind:
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		list := []any{}
		for i := 0; it.Next(); i++ {
			item, err := fromCUE(it.Value())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list = append(list, item)
		}
		return list, nil
	case cue.StructKind:
		it, err := v.Fields()
		if err != nil {
			return nil, err
		}
		m := value.NewMap()
		for it.Next() {
			key := it.Selector().Unquoted()
			item, err := fromCUE(it.Value())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, item)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s: value is not concrete", v.Path())
	}
}
