// Package options implements the operations on the opaque options bags that
// targets carry: deep cloning, right-biased recursive merging and lookups by
// dotted path.
//
// A bag is a map[string]any whose values are the native shapes produced by a
// loader: string, int for whole numbers, float64 for the rest, bool, nested
// map[string]any and []any.
package options

import "strings"

// Clone returns a deep copy of the bag. A nil bag stays nil.
func Clone(bag map[string]any) map[string]any {
	if bag == nil {
		return nil
	}
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Merge returns a new bag with override applied on top of base. Nested
// objects merge key by key; arrays and scalars from override replace the
// base value. Neither input is modified.
func Merge(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return nil
	}
	out := Clone(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}
	for k, v := range override {
		baseObj, baseIsObj := out[k].(map[string]any)
		overObj, overIsObj := v.(map[string]any)
		if baseIsObj && overIsObj {
			out[k] = Merge(baseObj, overObj)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// MergeAll folds Merge over the bags from left to right.
func MergeAll(bags ...map[string]any) map[string]any {
	var out map[string]any
	for _, b := range bags {
		out = Merge(out, b)
	}
	return out
}

// Lookup resolves a dotted path such as "server.port" inside the bag.
func Lookup(bag map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = bag
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
