package loader

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/tailscale/hujson"
	"github.com/titanous/json5"

	"github.com/openfroyo/sassdata/pkg/value"
)

// decodeJSON parses JSON, tolerating comments and trailing commas.
func decodeJSON(src []byte) (any, error) {
	v, err := hujson.Parse(src)
	if err != nil {
		return nil, err
	}
	return fromHuJSON(v.Value)
}

// decodeJSON5 parses JSON5. Documents within the JSON-with-comments subset
// go through hujson; the rest of JSON5 (unquoted keys, single quotes, hex
// numbers) goes through the json5 decoder. Both keep source key order.
func decodeJSON5(src []byte) (any, error) {
	if v, err := hujson.Parse(src); err == nil {
		return fromHuJSON(v.Value)
	}

	var root json5Node
	if err := json5.Unmarshal(src, &root); err != nil {
		return nil, err
	}
	return root.val, nil
}

func fromHuJSON(v hujson.ValueTrimmed) (any, error) {
	switch t := v.(type) {
	case hujson.Literal:
		switch t.Kind() {
		case 'n':
			return nil, nil
		case 't', 'f':
			return t.Bool(), nil
		case '"':
			return t.String(), nil
		case '0':
			return value.Number(string(t)), nil
		default:
			return nil, fmt.Errorf("invalid literal %q", string(t))
		}
	case *hujson.Object:
		m := value.NewMap()
		for _, member := range t.Members {
			name, ok := member.Name.Value.(hujson.Literal)
			if !ok {
				return nil, fmt.Errorf("object name is not a string")
			}
			key := name.String()
			item, err := fromHuJSON(member.Value.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, item)
		}
		return m, nil
	case *hujson.Array:
		list := make([]any, len(t.Elements))
		for i, elem := range t.Elements {
			item, err := fromHuJSON(elem.Value)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %T", v)
	}
}

// json5Seq orders json5Node decodes. Object members are decoded one after
// another, so a member decoded earlier appeared earlier in the source.
var json5Seq atomic.Int64

// json5Node is a JSON5 value that remembers when it was decoded.
type json5Node struct {
	seq int64
	val any
}

func (n *json5Node) UnmarshalJSON(b []byte) error {
	n.seq = json5Seq.Add(1)

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty JSON5 value")
	}
	switch b[0] {
	case '{':
		var members map[string]json5Node
		if err := json5.Unmarshal(b, &members); err != nil {
			return err
		}
		keys := make([]string, 0, len(members))
		for k := range members {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(x, y string) int {
			return cmp.Compare(members[x].seq, members[y].seq)
		})
		m := value.NewMap()
		for _, k := range keys {
			m.Set(k, members[k].val)
		}
		n.val = m
	case '[':
		var items []json5Node
		if err := json5.Unmarshal(b, &items); err != nil {
			return err
		}
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = item.val
		}
		n.val = list
	default:
		dec := json5.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		v, err := fromJSON5Scalar(raw)
		if err != nil {
			return err
		}
		n.val = v
	}
	return nil
}

func fromJSON5Scalar(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string:
		return t, nil
	case json5.Number:
		// Hex literals and explicit signs are not valid Sass numbers.
		if i, err := t.Int64(); err == nil {
			return value.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("unsupported number %q", t.String())
		}
		return value.Number(strings.TrimPrefix(t.String(), "+")), nil
	case float64:
		// Infinity and NaN bypass Number.
		return nil, fmt.Errorf("unsupported number %v", t)
	default:
		return nil, fmt.Errorf("unexpected JSON5 value %T", v)
	}
}
