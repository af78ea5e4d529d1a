// Package envvars implements the env-vars executor. It reports the
// environment a task would run with: the process environment overlaid with
// the task's .env files, optionally filtered to a set of keys.
package envvars

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vk/taskgrid/internal/registry"
)

// Name is the executor name.
const Name = "env-vars"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, registry.ExecutorFunc(run))
}

func run(_ context.Context, options map[string]any, ec *registry.Context) <-chan registry.Output {
	ch := make(chan registry.Output, 1)
	defer close(ch)

	keys, err := keysOption(options["keys"])
	if err != nil {
		ch <- registry.Output{Err: err}
		return ch
	}
	ch <- registry.Output{Success: true, TerminalOutput: Render(Environment(os.Environ(), ec.Env), keys)}
	return ch
}

// Environment overlays env on the KEY=VALUE pairs of base.
func Environment(base []string, env map[string]string) map[string]string {
	all := make(map[string]string, len(base)+len(env))
	for _, e := range base {
		if k, v, ok := strings.Cut(e, "="); ok {
			all[k] = v
		}
	}
	for k, v := range env {
		all[k] = v
	}
	return all
}

// Render prints sorted KEY=VALUE lines. A non-empty keys list restricts the
// output; missing keys are left out.
func Render(env map[string]string, keys []string) string {
	if len(keys) == 0 {
		for k := range env {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		if v, ok := env[k]; ok {
			fmt.Fprintf(&b, "%s=%s\n", k, v)
		}
	}
	return b.String()
}

func keysOption(v any) ([]string, error) {
	switch k := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), k...), nil
	case []any:
		out := make([]string, len(k))
		for i, item := range k {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("keys[%d] must be a string, got %T", i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option 'keys' must be a list, got %T", v)
	}
}
