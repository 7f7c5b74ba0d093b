package loader

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/sassdata/pkg/value"
)

// decodeYAML parses the first YAML document. An empty document is null.
func decodeYAML(src []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return fromYAML(&doc)
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.SequenceNode:
		list := make([]any, len(n.Content))
		for i, item := range n.Content {
			v, err := fromYAML(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	case yaml.MappingNode:
		m := value.NewMap()
		if err := yamlMapping(n, m); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unexpected YAML node kind %d", n.Line, n.Kind)
	}
}

// yamlMapping copies the pairs of n into m. Merge keys ("<<") contribute
// only keys the mapping does not set itself.
func yamlMapping(n *yaml.Node, m *value.Map) error {
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.Value == "<<" && k.ShortTag() == "!!merge" {
			merges = append(merges, v)
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		item, err := fromYAML(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k.Value, err)
		}
		m.Set(k.Value, item)
	}

	for _, merge := range merges {
		if merge.Kind == yaml.AliasNode {
			merge = merge.Alias
		}
		sources := []*yaml.Node{merge}
		if merge.Kind == yaml.SequenceNode {
			sources = merge.Content
		}
		for _, src := range sources {
			if src.Kind == yaml.AliasNode {
				src = src.Alias
			}
			if src.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
			}
			inherited := value.NewMap()
			if err := yamlMapping(src, inherited); err != nil {
				return err
			}
			inherited.Range(func(key string, v any) bool {
				if !m.Has(key) {
					m.Set(key, v)
				}
				return true
			})
		}
	}
	return nil
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return value.Int(i), nil
	case "!!float":
		text := strings.ReplaceAll(n.Value, "_", "")
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			// .inf and .nan have no Sass equivalent.
			return nil, fmt.Errorf("line %d: unsupported number %q", n.Line, n.Value)
		}
		if strings.ContainsAny(text, "eE") || strings.HasPrefix(text, "+") || strings.HasPrefix(text, ".") {
			return value.Float(f), nil
		}
		return value.Number(text), nil
	default:
		return n.Value, nil
	}
}
