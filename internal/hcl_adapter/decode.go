package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/taskgrid/internal/config"
)

// translateTarget converts a decoded target block into the config model.
func translateTarget(b *targetBlock, evalCtx *hcl.EvalContext) (*config.TargetConfiguration, error) {
	t := &config.TargetConfiguration{
		Executor:             b.Executor,
		Command:              b.Command,
		DefaultConfiguration: b.DefaultConfiguration,
		Inputs:               b.Inputs,
		Outputs:              b.Outputs,
		Continuous:           b.Continuous,
		Cache:                b.Cache,
	}

	opts, err := evalNative(b.Options, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("target %q: options: %w", b.Name, err)
	}
	if opts != nil {
		m, ok := opts.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("target %q: options must be an object, got %T", b.Name, opts)
		}
		t.Options = m
	}

	confs, err := evalNative(b.Configurations, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("target %q: configurations: %w", b.Name, err)
	}
	if confs != nil {
		m, ok := confs.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("target %q: configurations must be an object, got %T", b.Name, confs)
		}
		t.Configurations = make(map[string]map[string]any, len(m))
		for name, bag := range m {
			if bag == nil {
				t.Configurations[name] = map[string]any{}
				continue
			}
			bm, ok := bag.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("target %q: configuration %q must be an object, got %T", b.Name, name, bag)
			}
			t.Configurations[name] = bm
		}
	}

	deps, err := evalNative(b.DependsOn, evalCtx)
	if err != nil {
		return nil, fmt.Errorf("target %q: depends_on: %w", b.Name, err)
	}
	if deps != nil {
		if t.DependsOn, err = translateDependsOn(deps); err != nil {
			return nil, fmt.Errorf("target %q: %w", b.Name, err)
		}
	}

	return t, nil
}

// translateDependsOn accepts a list mixing the string shorthand ("build",
// "^build") with objects of the form
// { target = "build", dependencies = true, projects = [...], params = "forward" }.
// A scalar projects value is "self", "dependencies" or "^", or one project name.
func translateDependsOn(raw any) ([]config.DependencyDeclaration, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("depends_on must be a list, got %T", raw)
	}

	out := make([]config.DependencyDeclaration, 0, len(list))
	for i, item := range list {
		switch v := item.(type) {
		case string:
			d, err := config.ParseDependsOn(v)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		case map[string]any:
			d, err := dependencyFromObject(v)
			if err != nil {
				return nil, fmt.Errorf("depends_on[%d]: %w", i, err)
			}
			out = append(out, d)
		default:
			return nil, fmt.Errorf("depends_on[%d]: expected a string or an object, got %T", i, item)
		}
	}
	return out, nil
}

// Keywords accepted as the scalar value of 'projects'. Any other string is a
// single project name.
const (
	projectsSelf         = "self"
	projectsDependencies = "dependencies"
)

func dependencyFromObject(m map[string]any) (config.DependencyDeclaration, error) {
	d := config.DependencyDeclaration{Params: config.ParamsIgnore}
	for key, val := range m {
		switch key {
		case "target":
			s, ok := val.(string)
			if !ok {
				return d, fmt.Errorf("'target' must be a string, got %T", val)
			}
			d.Target = s
		case "dependencies":
			b, ok := val.(bool)
			if !ok {
				return d, fmt.Errorf("'dependencies' must be a bool, got %T", val)
			}
			d.Dependencies = b
		case "projects":
			if s, ok := val.(string); ok {
				switch s {
				case projectsSelf:
					continue
				case projectsDependencies, config.DependenciesMarker:
					d.Dependencies = true
					continue
				}
			}
			names, err := stringList(val)
			if err != nil {
				return d, fmt.Errorf("'projects': %w", err)
			}
			d.Projects = names
		case "params":
			s, ok := val.(string)
			if !ok {
				return d, fmt.Errorf("'params' must be a string, got %T", val)
			}
			d.Params = config.ParamsMode(s)
		default:
			return d, fmt.Errorf("unknown attribute %q", key)
		}
	}
	return d, d.Validate()
}

func stringList(v any) ([]string, error) {
	switch l := v.(type) {
	case string:
		return []string{l}, nil
	case []any:
		out := make([]string, len(l))
		for i, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
}

// translateNamedInputs converts the named_inputs object.
func translateNamedInputs(raw any) (map[string][]string, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("named_inputs must be an object, got %T", raw)
	}
	out := make(map[string][]string, len(m))
	for name, v := range m {
		l, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("named_inputs.%s: %w", name, err)
		}
		out[name] = l
	}
	return out, nil
}

// translateProject converts a decoded project block. root is the project
// directory relative to the workspace root.
func translateProject(b *projectBlock, root string, evalCtx *hcl.EvalContext) (*config.ProjectConfiguration, error) {
	p := &config.ProjectConfiguration{
		Name:                 b.Name,
		Root:                 root,
		SourceRoot:           b.SourceRoot,
		ProjectType:          config.ProjectType(b.Type),
		Tags:                 b.Tags,
		ImplicitDependencies: b.ImplicitDependencies,
		Targets:              make(map[string]*config.TargetConfiguration, len(b.Targets)),
	}
	switch p.ProjectType {
	case "", config.ProjectTypeApplication, config.ProjectTypeLibrary:
	default:
		return nil, fmt.Errorf("project %q: unknown type %q", b.Name, b.Type)
	}

	for _, d := range b.Dependencies {
		typ := config.DependencyType(d.Type)
		switch typ {
		case "":
			typ = config.DependencyStatic
		case config.DependencyStatic, config.DependencyDynamic, config.DependencyImplicit:
		default:
			return nil, fmt.Errorf("project %q: dependency %q has unknown type %q", b.Name, d.Project, d.Type)
		}
		p.Dependencies = append(p.Dependencies, config.ProjectDependency{Target: d.Project, Type: typ})
	}

	for _, tb := range b.Targets {
		if _, dup := p.Targets[tb.Name]; dup {
			return nil, fmt.Errorf("project %q: target %q declared twice", b.Name, tb.Name)
		}
		t, err := translateTarget(tb, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", b.Name, err)
		}
		p.Targets[tb.Name] = t
	}
	return p, nil
}
