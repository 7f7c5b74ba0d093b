package loader

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/openfroyo/sassdata/pkg/value"
)

// hclFunctions are callable from HCL expressions.
var hclFunctions = map[string]function.Function{
	"abs":       stdlib.AbsoluteFunc,
	"ceil":      stdlib.CeilFunc,
	"coalesce":  stdlib.CoalesceFunc,
	"concat":    stdlib.ConcatFunc,
	"floor":     stdlib.FloorFunc,
	"format":    stdlib.FormatFunc,
	"join":      stdlib.JoinFunc,
	"length":    stdlib.LengthFunc,
	"lower":     stdlib.LowerFunc,
	"max":       stdlib.MaxFunc,
	"merge":     stdlib.MergeFunc,
	"min":       stdlib.MinFunc,
	"replace":   stdlib.ReplaceFunc,
	"split":     stdlib.SplitFunc,
	"substr":    stdlib.SubstrFunc,
	"title":     stdlib.TitleFunc,
	"trimspace": stdlib.TrimSpaceFunc,
	"upper":     stdlib.UpperFunc,
}

type hclItem struct {
	offset int
	attr   *hclsyntax.Attribute
	block  *hclsyntax.Block
}

// decodeHCL reads an HCL file. Attributes become keys; a block becomes a
// mapping nested under its type and then each of its labels. Repeating an
// unlabelled block turns its key into a list.
func decodeHCL(path string, src []byte) (any, error) {
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected HCL body %T", file.Body)
	}
	evalCtx := &hcl.EvalContext{Functions: hclFunctions}
	return hclBody(body, evalCtx)
}

func hclBody(body *hclsyntax.Body, evalCtx *hcl.EvalContext) (*value.Map, error) {
	items := make([]hclItem, 0, len(body.Attributes)+len(body.Blocks))
	for _, attr := range body.Attributes {
		items = append(items, hclItem{offset: attr.SrcRange.Start.Byte, attr: attr})
	}
	for _, block := range body.Blocks {
		items = append(items, hclItem{offset: block.TypeRange.Start.Byte, block: block})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].offset < items[j].offset })

	m := value.NewMap()
	for _, item := range items {
		if item.attr != nil {
			v, err := hclExpr(item.attr.Expr, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", item.attr.Name, err)
			}
			m.Set(item.attr.Name, v)
			continue
		}
		if err := hclBlock(m, item.block, evalCtx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func hclBlock(m *value.Map, block *hclsyntax.Block, evalCtx *hcl.EvalContext) error {
	content, err := hclBody(block.Body, evalCtx)
	if err != nil {
		return fmt.Errorf("%s: %w", block.Type, err)
	}

	keys := append([]string{block.Type}, block.Labels...)
	parent := m
	for _, key := range keys[:len(keys)-1] {
		existing, ok := parent.Get(key)
		if !ok {
			child := value.NewMap()
			parent.Set(key, child)
			parent = child
			continue
		}
		child, ok := existing.(*value.Map)
		if !ok {
			return fmt.Errorf("%s is already defined as a %s", key, value.Kind(existing))
		}
		parent = child
	}

	last := keys[len(keys)-1]
	switch existing := hclGet(parent, last).(type) {
	case nil:
		parent.Set(last, content)
	case *value.Map:
		parent.Set(last, []any{existing, content})
	case []any:
		parent.Set(last, append(existing, content))
	default:
		return fmt.Errorf("%s is already defined as a %s", last, value.Kind(existing))
	}
	return nil
}

func hclGet(m *value.Map, key string) any {
	v, _ := m.Get(key)
	return v
}

// hclExpr walks object and tuple constructors structurally so object keys
// keep source order. Every other expression is evaluated.
func hclExpr(expr hclsyntax.Expression, evalCtx *hcl.EvalContext) (any, error) {
	switch e := expr.(type) {
	case *hclsyntax.ObjectConsExpr:
		m := value.NewMap()
		for _, item := range e.Items {
			kv, diags := item.KeyExpr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, diags
			}
			kv, err := convert.Convert(kv, cty.String)
			if err != nil || kv.IsNull() || !kv.IsKnown() {
				return nil, fmt.Errorf("%s: object key must be a string", item.KeyExpr.Range())
			}
			key := kv.AsString()
			v, err := hclExpr(item.ValueExpr, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, v)
		}
		return m, nil
	case *hclsyntax.TupleConsExpr:
		list := make([]any, len(e.Exprs))
		for i, item := range e.Exprs {
			v, err := hclExpr(item, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	default:
		v, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		return fromCty(v)
	}
}

// fromCty converts an evaluated cty value. Object and map keys come out
// sorted, which is the order cty iterates them in.
func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		return value.Number(v.AsBigFloat().Text('f', -1)), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			item, err := fromCty(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case ty.IsObjectType() || ty.IsMapType():
		m := value.NewMap()
		it := v.ElementIterator()
		for it.Next() {
			k, elem := it.Element()
			key := k.AsString()
			item, err := fromCty(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			m.Set(key, item)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
