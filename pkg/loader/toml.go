package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2/unstable"

	"github.com/openfroyo/sassdata/pkg/value"
)

// decodeTOML walks the TOML expression stream so tables and keys keep
// document order.
func decodeTOML(src []byte) (any, error) {
	root := value.NewMap()
	current := root

	p := unstable.Parser{}
	p.Reset(src)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table:
			t, err := tomlTable(root, tomlKey(expr.Key()))
			if err != nil {
				return nil, err
			}
			current = t
		case unstable.ArrayTable:
			t, err := tomlArrayTable(root, tomlKey(expr.Key()))
			if err != nil {
				return nil, err
			}
			current = t
		case unstable.KeyValue:
			if err := tomlKeyValue(current, expr); err != nil {
				return nil, err
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return root, nil
}

func tomlKey(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// tomlDescend returns the table at key within m, creating it when missing.
// An array of tables resolves to its last element.
func tomlDescend(m *value.Map, key string, path []string) (*value.Map, error) {
	existing, ok := m.Get(key)
	if !ok {
		child := value.NewMap()
		m.Set(key, child)
		return child, nil
	}
	switch t := existing.(type) {
	case *value.Map:
		return t, nil
	case []any:
		if len(t) > 0 {
			if last, ok := t[len(t)-1].(*value.Map); ok {
				return last, nil
			}
		}
	}
	return nil, fmt.Errorf("key %s is already defined as a %s", strings.Join(path, "."), value.Kind(existing))
}

func tomlTable(root *value.Map, key []string) (*value.Map, error) {
	m := root
	for i, part := range key {
		next, err := tomlDescend(m, part, key[:i+1])
		if err != nil {
			return nil, err
		}
		m = next
	}
	return m, nil
}

func tomlArrayTable(root *value.Map, key []string) (*value.Map, error) {
	parent, err := tomlTable(root, key[:len(key)-1])
	if err != nil {
		return nil, err
	}
	last := key[len(key)-1]
	entry := value.NewMap()
	existing, ok := parent.Get(last)
	if !ok {
		parent.Set(last, []any{entry})
		return entry, nil
	}
	list, ok := existing.([]any)
	if !ok {
		return nil, fmt.Errorf("key %s is already defined as a %s", strings.Join(key, "."), value.Kind(existing))
	}
	parent.Set(last, append(list, entry))
	return entry, nil
}

func tomlKeyValue(table *value.Map, kv *unstable.Node) error {
	key := tomlKey(kv.Key())
	m := table
	for i, part := range key[:len(key)-1] {
		next, err := tomlDescend(m, part, key[:i+1])
		if err != nil {
			return err
		}
		m = next
	}

	last := key[len(key)-1]
	if m.Has(last) {
		return fmt.Errorf("duplicate key %s", strings.Join(key, "."))
	}
	v, err := tomlValue(kv.Value())
	if err != nil {
		return fmt.Errorf("%s: %w", strings.Join(key, "."), err)
	}
	m.Set(last, v)
	return nil
}

func tomlValue(n *unstable.Node) (any, error) {
	switch n.Kind {
	case unstable.String:
		return string(n.Data), nil
	case unstable.Bool:
		return string(n.Data) == "true", nil
	case unstable.Integer:
		text := strings.ReplaceAll(string(n.Data), "_", "")
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", n.Data, err)
		}
		return value.Int(i), nil
	case unstable.Float:
		text := strings.TrimPrefix(strings.ReplaceAll(string(n.Data), "_", ""), "+")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("unsupported number %q", n.Data)
		}
		return value.Number(text), nil
	case unstable.LocalDate, unstable.LocalTime, unstable.LocalDateTime, unstable.DateTime:
		return string(n.Data), nil
	case unstable.Array:
		list := []any{}
		it := n.Children()
		for i := 0; it.Next(); i++ {
			v, err := tomlValue(it.Node())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list = append(list, v)
		}
		return list, nil
	case unstable.InlineTable:
		m := value.NewMap()
		it := n.Children()
		for it.Next() {
			if err := tomlKeyValue(m, it.Node()); err != nil {
				return nil, err
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported TOML value %s", n.Kind)
	}
}
