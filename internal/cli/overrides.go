package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// overridesFlag collects repeated --set key=value flags into a nested bag.
// Dotted keys create nested maps. Values that parse as JSON keep their JSON
// type; everything else is a string.
type overridesFlag map[string]any

func (o overridesFlag) String() string {
	if len(o) == 0 {
		return ""
	}
	b, _ := json.Marshal(map[string]any(o))
	return string(b)
}

func (o overridesFlag) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}

	path := strings.Split(key, ".")
	bag := map[string]any(o)
	for _, seg := range path[:len(path)-1] {
		if seg == "" {
			return fmt.Errorf("invalid key %q", key)
		}
		next, ok := bag[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			bag[seg] = next
		}
		bag = next
	}
	last := path[len(path)-1]
	if last == "" {
		return fmt.Errorf("invalid key %q", key)
	}
	bag[last] = parseValue(value)
	return nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// listFlag collects comma-separated and repeated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(raw string) error {
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}
