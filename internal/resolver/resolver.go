// Package resolver computes the effective configuration of a project target:
// the workspace target default it inherits from, the project's own
// declaration on top, the selected named configuration, and finally token
// interpolation.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/options"
)

var (
	// ErrTargetNotFound is returned when the project does not declare the
	// target, or when no executor is known after merging.
	ErrTargetNotFound = errors.New("target not found")
	// ErrConfigurationNotFound is returned when a named configuration does
	// not exist on the merged target.
	ErrConfigurationNotFound = errors.New("configuration not found")
)

// DefaultCacheSize bounds the number of memoized resolutions.
const DefaultCacheSize = 1024

// EffectiveTarget is a fully merged and interpolated target. Values returned
// by the resolver are shared and must be treated as read-only.
type EffectiveTarget struct {
	Project *config.ProjectConfiguration
	Name    string
	// Configuration is the configuration that was applied; it is the
	// target's default when none was requested, and may be empty.
	Configuration string
	// Target is the merged declaration, before the configuration overlay.
	Target *config.TargetConfiguration
	// Options is the interpolated options bag with the configuration applied.
	Options map[string]any
	Inputs  []string
	Outputs []string
}

// Executor returns the executor the target runs with.
func (e *EffectiveTarget) Executor() string {
	return e.Target.EffectiveExecutor()
}

// Continuous reports whether the target never terminates on its own.
func (e *EffectiveTarget) Continuous() bool {
	return e.Target.IsContinuous()
}

// Resolver resolves project targets against a workspace. It is safe for
// concurrent use.
type Resolver struct {
	ws    *config.Workspace
	cache *lru.Cache[string, *EffectiveTarget]
}

// New creates a resolver for the workspace. cacheSize <= 0 selects
// DefaultCacheSize.
func New(ws *config.Workspace, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *EffectiveTarget](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating resolution cache: %w", err)
	}
	return &Resolver{ws: ws, cache: cache}, nil
}

// Workspace returns the workspace the resolver reads from.
func (r *Resolver) Workspace() *config.Workspace {
	return r.ws
}

// Resolve returns the effective configuration of target on project with the
// named configuration applied. An empty configuration selects the target's
// default configuration.
func (r *Resolver) Resolve(ctx context.Context, project, target, configuration string) (*EffectiveTarget, error) {
	key := project + ":" + target + ":" + configuration
	if hit, ok := r.cache.Get(key); ok {
		return hit, nil
	}

	logger := ctxlog.FromContext(ctx).With("project", project, "target", target)

	p, merged, err := r.merged(project, target)
	if err != nil {
		return nil, err
	}

	name := configuration
	if name == "" {
		name = merged.DefaultConfiguration
	}
	var overlay map[string]any
	if name != "" {
		bag, ok := merged.Configurations[name]
		if !ok {
			if configuration == "" {
				return nil, fmt.Errorf("%w: default configuration %q of %s:%s", ErrConfigurationNotFound, name, project, target)
			}
			return nil, fmt.Errorf("%w: %q on %s:%s", ErrConfigurationNotFound, name, project, target)
		}
		overlay = bag
	}

	in := &options.Interpolator{
		Vars: map[string]string{
			options.TokenWorkspaceRoot: r.ws.Root,
			options.TokenProjectRoot:   p.Root,
			options.TokenProjectName:   p.Name,
		},
	}
	effective := options.Merge(merged.Options, overlay)
	in.Options = effective

	result := &EffectiveTarget{
		Project:       p,
		Name:          target,
		Configuration: name,
		Target:        merged,
		Options:       in.Bag(effective),
		Inputs:        in.Strings(r.expandNamedInputs(merged.Inputs)),
		Outputs:       in.Strings(merged.Outputs),
	}
	if result.Options == nil {
		result.Options = map[string]any{}
	}

	logger.Debug("Target resolved.", "executor", result.Executor(), "configuration", name)
	r.cache.Add(key, result)
	return result, nil
}

// Merged returns the project's target merged with its workspace default,
// before any configuration is applied.
func (r *Resolver) Merged(project, target string) (*config.TargetConfiguration, error) {
	_, merged, err := r.merged(project, target)
	return merged, err
}

func (r *Resolver) merged(project, target string) (*config.ProjectConfiguration, *config.TargetConfiguration, error) {
	p, ok := r.ws.Project(project)
	if !ok {
		return nil, nil, fmt.Errorf("%w: project %q does not exist", ErrTargetNotFound, project)
	}
	declared, ok := p.Targets[target]
	if !ok || declared == nil {
		return nil, nil, fmt.Errorf("%w: project %q does not declare %q", ErrTargetNotFound, project, target)
	}

	merged := mergeTarget(r.findDefault(declared, target), declared)
	if merged.EffectiveExecutor() == "" {
		return nil, nil, fmt.Errorf("%w: %s:%s has no executor", ErrTargetNotFound, project, target)
	}
	return p, merged, nil
}

// findDefault picks the workspace default for a declared target. A default
// keyed by the target's executor wins over one keyed by the target name.
// Defaults that name a different executor or command are ignored.
func (r *Resolver) findDefault(declared *config.TargetConfiguration, target string) *config.TargetConfiguration {
	if executor := declared.EffectiveExecutor(); executor != "" {
		if def, ok := r.ws.TargetDefaults[executor]; ok && compatible(def, declared) {
			return def
		}
	}
	if def, ok := r.ws.TargetDefaults[target]; ok && compatible(def, declared) {
		return def
	}
	return nil
}

func compatible(def, declared *config.TargetConfiguration) bool {
	defExec, declExec := def.EffectiveExecutor(), declared.EffectiveExecutor()
	if defExec != "" && declExec != "" && defExec != declExec {
		return false
	}
	if def.Command != "" && declared.Command != "" && def.Command != declared.Command {
		return false
	}
	return true
}

// mergeTarget applies the project declaration on top of the default.
// Scalars overwrite, bags merge key by key, and list fields are replaced by
// the most specific source that sets them.
func mergeTarget(def, declared *config.TargetConfiguration) *config.TargetConfiguration {
	var out *config.TargetConfiguration
	if def == nil {
		out = declared.Clone()
	} else {
		out = def.Clone()
		if declared.Executor != "" {
			out.Executor = declared.Executor
		}
		if declared.Command != "" {
			out.Command = declared.Command
		}
		out.Options = options.Merge(def.Options, declared.Options)
		for name, bag := range declared.Configurations {
			if out.Configurations == nil {
				out.Configurations = make(map[string]map[string]any)
			}
			out.Configurations[name] = options.Merge(out.Configurations[name], bag)
		}
		if declared.DefaultConfiguration != "" {
			out.DefaultConfiguration = declared.DefaultConfiguration
		}
		if declared.DependsOn != nil {
			out.DependsOn = declared.Clone().DependsOn
		}
		if declared.Inputs != nil {
			out.Inputs = slices.Clone(declared.Inputs)
		}
		if declared.Outputs != nil {
			out.Outputs = slices.Clone(declared.Outputs)
		}
		if declared.Continuous != nil {
			out.Continuous = config.Bool(*declared.Continuous)
		}
		if declared.Cache != nil {
			out.Cache = config.Bool(*declared.Cache)
		}
	}

	if out.Command != "" {
		if out.Executor == "" {
			out.Executor = config.RunCommandsExecutor
		}
		out.Options = options.Merge(out.Options, map[string]any{"command": out.Command})
	}
	return out
}

// expandNamedInputs replaces references to workspace named inputs with the
// patterns they stand for. "^name" entries refer to the dependencies' inputs
// and are kept as written.
func (r *Resolver) expandNamedInputs(inputs []string) []string {
	if inputs == nil || len(r.ws.NamedInputs) == 0 {
		return inputs
	}
	out := make([]string, 0, len(inputs))
	seen := map[string]bool{}
	var expand func(entry string)
	expand = func(entry string) {
		if named, ok := r.ws.NamedInputs[entry]; ok && !strings.HasPrefix(entry, config.DependenciesMarker) {
			if seen[entry] {
				return
			}
			seen[entry] = true
			for _, e := range named {
				expand(e)
			}
			return
		}
		if !slices.Contains(out, entry) {
			out = append(out, entry)
		}
	}
	for _, in := range inputs {
		expand(in)
	}
	return out
}
