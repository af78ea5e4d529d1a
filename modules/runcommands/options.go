package runcommands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Options are the run-commands options after decoding.
type Options struct {
	Commands  []string
	Parallel  bool
	Cwd       string
	Env       map[string]string
	ReadyWhen string
	Args      string
}

var errNoCommand = errors.New("run-commands requires 'command' or 'commands'")

// parseOptions decodes the loosely typed option bag. 'commands' accepts
// strings or objects with a 'command' field.
func parseOptions(raw map[string]any) (*Options, error) {
	opts := &Options{Parallel: true}

	if v, ok := raw["command"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("option 'command' must be a string, got %T", v)
		}
		if s != "" {
			opts.Commands = append(opts.Commands, s)
		}
	}

	if v, ok := raw["commands"]; ok {
		list, ok := v.([]any)
		if !ok {
			if strs, isStrs := v.([]string); isStrs {
				for _, s := range strs {
					list = append(list, s)
				}
			} else {
				return nil, fmt.Errorf("option 'commands' must be a list, got %T", v)
			}
		}
		for i, item := range list {
			switch c := item.(type) {
			case string:
				opts.Commands = append(opts.Commands, c)
			case map[string]any:
				s, ok := c["command"].(string)
				if !ok {
					return nil, fmt.Errorf("commands[%d] has no 'command' string", i)
				}
				opts.Commands = append(opts.Commands, s)
			default:
				return nil, fmt.Errorf("commands[%d] has unsupported type %T", i, item)
			}
		}
	}
	if len(opts.Commands) == 0 {
		return nil, errNoCommand
	}

	if v, ok := raw["parallel"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("option 'parallel' must be a bool, got %T", v)
		}
		opts.Parallel = b
	}

	var err error
	if opts.Cwd, err = stringOption(raw, "cwd"); err != nil {
		return nil, err
	}
	if opts.ReadyWhen, err = stringOption(raw, "readyWhen"); err != nil {
		return nil, err
	}
	if opts.Args, err = argsOption(raw["args"]); err != nil {
		return nil, err
	}

	if v, ok := raw["env"]; ok {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("option 'env' must be a map, got %T", v)
		}
		opts.Env = make(map[string]string, len(m))
		for k, val := range m {
			opts.Env[k] = fmt.Sprint(val)
		}
	}

	return opts, nil
}

func stringOption(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option '%s' must be a string, got %T", key, v)
	}
	return s, nil
}

// argsOption accepts a string or a list of strings.
func argsOption(v any) (string, error) {
	switch a := v.(type) {
	case nil:
		return "", nil
	case string:
		return a, nil
	case []any:
		parts := make([]string, len(a))
		for i, p := range a {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, " "), nil
	case []string:
		return strings.Join(a, " "), nil
	default:
		return "", fmt.Errorf("option 'args' must be a string or a list, got %T", v)
	}
}

// environ layers the given maps over base, later maps winning.
func environ(base []string, layers ...map[string]string) []string {
	merged := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for _, layer := range layers {
		for k, v := range layer {
			merged[k] = v
		}
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
