// Package theme resolves theme trees and merges per-module overrides.
//
// A theme is a mapping that may carry two reserved entries: "modules", a
// mapping from module name to an override tree, and "SassGlobalVars",
// extra top-level variables added to every declaration document built
// while the theme is current.
package theme

import (
	"context"
	"fmt"

	"github.com/openfroyo/sassdata/pkg/value"
)

// Reserved theme and module keys.
const (
	ModulesKey    = "modules"
	GlobalVarsKey = "SassGlobalVars"
	ModuleNameKey = "@module"
)

// Resolve evaluates every deferred value reachable through mappings in node,
// passing root to each. Sequences are returned as-is and deferred results
// are not resolved again. node is not modified.
func Resolve(node, root any) (any, error) {
	return ResolveContext(context.Background(), node, root)
}

// ResolveContext is like Resolve but passes ctx to every deferred value.
func ResolveContext(ctx context.Context, node, root any) (any, error) {
	return resolve(ctx, node, root, "")
}

func resolve(ctx context.Context, node, root any, path string) (any, error) {
	switch t := node.(type) {
	case []any:
		return t, nil
	case *value.Map:
		out := value.NewMap()
		var err error
		t.Range(func(k string, v any) bool {
			var r any
			r, err = resolve(ctx, v, root, joinPath(path, k))
			if err != nil {
				return false
			}
			out.Set(k, r)
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	case *value.Deferred:
		v, err := t.CallContext(ctx, root)
		if err != nil {
			if path == "" {
				return nil, err
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return v, nil
	default:
		return node, nil
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// ResolveTheme resolves a theme tree against itself. The result must be a
// mapping.
func ResolveTheme(data any) (*value.Map, error) {
	return ResolveThemeContext(context.Background(), data)
}

// ResolveThemeContext is like ResolveTheme but passes ctx to every deferred
// value.
func ResolveThemeContext(ctx context.Context, data any) (*value.Map, error) {
	resolved, err := ResolveContext(ctx, data, data)
	if err != nil {
		return nil, fmt.Errorf("resolving theme: %w", err)
	}
	m, ok := resolved.(*value.Map)
	if !ok {
		return nil, fmt.Errorf("theme must be a mapping, got %s", value.Kind(resolved))
	}
	return m, nil
}

// Modules returns the theme's module override table, if any.
func Modules(t *value.Map) (*value.Map, bool) {
	return t.GetMap(ModulesKey)
}

// GlobalVars returns the theme's extra global variables, if any.
func GlobalVars(t *value.Map) (*value.Map, bool) {
	return t.GetMap(GlobalVarsKey)
}
