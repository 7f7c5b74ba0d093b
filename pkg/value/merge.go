package value

// Merge deep-merges override onto base and returns the result; neither input
// is modified. When both sides hold a *Map for the same key the merge
// recurses, otherwise the override value wins. Sequences are replaced, never
// concatenated. Keys only present in base keep their position; keys only
// present in override are appended in override order.
func Merge(base, override any) any {
	bm, ok := base.(*Map)
	if !ok {
		return Clone(override)
	}
	om, ok := override.(*Map)
	if !ok {
		return Clone(override)
	}

	out := bm.Clone()
	om.Range(func(k string, ov any) bool {
		if bv, exists := out.Get(k); exists {
			out.Set(k, Merge(bv, ov))
		} else {
			out.Set(k, Clone(ov))
		}
		return true
	})
	return out
}
