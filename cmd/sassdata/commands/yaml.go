package commands

import (
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/sassdata/pkg/value"
)

// toYAML converts a value to a YAML node, keeping mapping key order.
func toYAML(v any) *yaml.Node {
	switch t := v.(type) {
	case nil:
		return scalar("!!null", "null")
	case bool:
		if t {
			return scalar("!!bool", "true")
		}
		return scalar("!!bool", "false")
	case value.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: t.String()}
	case string:
		return scalar("!!str", t)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range t {
			n.Content = append(n.Content, toYAML(e))
		}
		return n
	case *value.Map:
		n := &yaml.Node{Kind: yaml.MappingNode}
		t.Range(func(k string, e any) bool {
			n.Content = append(n.Content, scalar("!!str", k), toYAML(e))
			return true
		})
		return n
	default:
		return scalar("!!str", value.FunctionSentinel)
	}
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}
