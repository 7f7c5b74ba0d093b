package theme

import (
	"context"
	"fmt"

	"github.com/openfroyo/sassdata/pkg/value"
)

// MergeModule prepares module data for emission against the current theme,
// which may be nil.
//
// Deferred data is called first with a copy of the current theme (an empty
// mapping when there is none). The module identity is the "@module" string
// property of the data, falling back to name. Sequences are wrapped as
// {name: sequence}. Finally the theme's override for the identity, if any, is
// deep-merged over the data, override winning.
//
// It returns the merged data and the identity used.
func MergeModule(name string, data any, current *value.Map) (any, string, error) {
	return MergeModuleContext(context.Background(), name, data, current)
}

// MergeModuleContext is like MergeModule but passes ctx to deferred data.
func MergeModuleContext(ctx context.Context, name string, data any, current *value.Map) (any, string, error) {
	if d, ok := data.(*value.Deferred); ok {
		arg := value.NewMap()
		if current != nil {
			arg = current.Clone()
		}
		v, err := d.CallContext(ctx, arg)
		if err != nil {
			return nil, "", fmt.Errorf("evaluating module %s: %w", name, err)
		}
		data = v
	}

	identity := ModuleName(name, data)

	if seq, ok := data.([]any); ok {
		data = value.MapOf(name, seq)
	}

	if current == nil {
		return data, identity, nil
	}
	modules, ok := Modules(current)
	if !ok {
		return data, identity, nil
	}
	override, ok := modules.Get(identity)
	if !ok {
		return data, identity, nil
	}
	return value.Merge(data, override), identity, nil
}

// ModuleName returns the "@module" property of data when it is a non-empty
// string, otherwise fallback.
func ModuleName(fallback string, data any) string {
	if m, ok := data.(*value.Map); ok {
		if name, ok := m.GetString(ModuleNameKey); ok && name != "" {
			return name
		}
	}
	return fallback
}
