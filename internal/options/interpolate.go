package options

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Well-known interpolation tokens.
const (
	TokenWorkspaceRoot = "workspaceRoot"
	TokenProjectRoot   = "projectRoot"
	TokenProjectName   = "projectName"

	optionsPrefix = "options."
)

var errReferenceLoop = errors.New("options reference loop")

// tokenRegex matches `{name}` and `{options.a.b}` placeholders.
var tokenRegex = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\}`)

// Interpolator substitutes placeholders in option values. Unknown tokens are
// left untouched, and so are self-references that would loop.
type Interpolator struct {
	Vars    map[string]string
	Options map[string]any
}

// Bag returns a copy of the bag with every string value interpolated.
func (in *Interpolator) Bag(bag map[string]any) map[string]any {
	if bag == nil {
		return nil
	}
	v, _ := in.value(bag, nil)
	return v.(map[string]any)
}

// Strings interpolates each element of a string slice. Nil stays nil.
func (in *Interpolator) Strings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = in.String(v)
	}
	return out
}

// String interpolates a single string.
func (in *Interpolator) String(s string) string {
	v, err := in.str(s, nil)
	if err != nil {
		return s
	}
	return stringify(v)
}

// value walks v. Outside of a reference chain (empty stack) a string whose
// resolution loops is kept as written; inside one the loop is reported to
// the caller.
func (in *Interpolator) value(v any, stack []string) (any, error) {
	switch t := v.(type) {
	case string:
		out, err := in.str(t, stack)
		if err != nil {
			if len(stack) == 0 {
				return t, nil
			}
			return nil, err
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			r, err := in.value(e, stack)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := in.value(e, stack)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case []string:
		out := make([]string, len(t))
		for i, e := range t {
			r, err := in.value(e, stack)
			if err != nil {
				return nil, err
			}
			out[i] = stringify(r)
		}
		return out, nil
	default:
		return v, nil
	}
}

// str interpolates s. A string that is exactly one resolvable token takes
// the referenced value with its original type.
func (in *Interpolator) str(s string, stack []string) (any, error) {
	if !strings.Contains(s, "{") {
		return s, nil
	}
	if loc := tokenRegex.FindStringSubmatchIndex(s); loc != nil && loc[0] == 0 && loc[1] == len(s) {
		v, ok, err := in.lookup(s[loc[2]:loc[3]], stack)
		if err != nil {
			return nil, err
		}
		if !ok {
			return s, nil
		}
		return v, nil
	}
	var firstErr error
	out := tokenRegex.ReplaceAllStringFunc(s, func(tok string) string {
		v, ok, err := in.lookup(tok[1:len(tok)-1], stack)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !ok {
			return tok
		}
		return stringify(v)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (in *Interpolator) lookup(name string, stack []string) (any, bool, error) {
	if v, ok := in.Vars[name]; ok {
		return v, true, nil
	}
	path, ok := strings.CutPrefix(name, optionsPrefix)
	if !ok {
		return nil, false, nil
	}
	if slices.Contains(stack, path) {
		return nil, false, fmt.Errorf("%w: %s", errReferenceLoop, strings.Join(append(stack, path), " -> "))
	}
	raw, ok := Lookup(in.Options, path)
	if !ok {
		return nil, false, nil
	}
	v, err := in.value(raw, append(slices.Clone(stack), path))
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
