// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the in-memory shape of a workspace configuration.
//
// Absent and empty are different things in this model. A nil slice or a nil
// pointer means "not set at this level" and lets a less specific source (a
// workspace target default) fill it in, while an empty, non-nil slice means
// "explicitly nothing" and wins over the default.
package config

import (
	"context"
	"slices"

	"github.com/vk/taskgrid/internal/options"
)

// RunCommandsExecutor is the executor a target gets when it only declares a
// `command`.
const RunCommandsExecutor = "run-commands"

// Loader is the interface for a format-specific workspace loader.
type Loader interface {
	// Load reads the workspace rooted at root and translates it into the
	// format-agnostic model.
	Load(ctx context.Context, root string) (*Workspace, error)
}

// ProjectType classifies a project.
type ProjectType string

const (
	ProjectTypeApplication ProjectType = "application"
	ProjectTypeLibrary     ProjectType = "library"
)

// DependencyType is the kind of a project-to-project edge.
type DependencyType string

const (
	// DependencyStatic is declared in configuration.
	DependencyStatic DependencyType = "static"
	// DependencyDynamic is discovered at runtime (lazy imports and the like).
	DependencyDynamic DependencyType = "dynamic"
	// DependencyImplicit comes from implicitDependencies.
	DependencyImplicit DependencyType = "implicit"
)

// ProjectDependency is a declared dependency of a project on another one.
type ProjectDependency struct {
	Target string
	Type   DependencyType
}

// ProjectConfiguration describes a single project of the workspace.
type ProjectConfiguration struct {
	Name        string
	Root        string
	SourceRoot  string
	ProjectType ProjectType
	Tags        []string
	Targets     map[string]*TargetConfiguration

	// Dependencies are the explicit edges, in declaration order.
	Dependencies []ProjectDependency
	// ImplicitDependencies are project names or selectors: "*" for every
	// other project, "tag:<tag>" for every project carrying the tag and
	// "!name" to exclude a project selected by an earlier entry.
	ImplicitDependencies []string
}

// HasTarget reports whether the project declares the named target.
func (p *ProjectConfiguration) HasTarget(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Targets[name]
	return ok
}

// HasTag reports whether the project carries the tag.
func (p *ProjectConfiguration) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// TargetConfiguration is a named action on a project, or a workspace-wide
// default for such an action.
type TargetConfiguration struct {
	Executor string
	// Command is a shorthand for the run-commands executor with
	// options.command set.
	Command string

	Options              map[string]any
	Configurations       map[string]map[string]any
	DefaultConfiguration string

	DependsOn []DependencyDeclaration
	Inputs    []string
	Outputs   []string

	Continuous *bool
	Cache      *bool
}

// EffectiveExecutor returns the executor the target runs with, taking the
// command shorthand into account.
func (t *TargetConfiguration) EffectiveExecutor() string {
	if t == nil {
		return ""
	}
	if t.Executor != "" {
		return t.Executor
	}
	if t.Command != "" {
		return RunCommandsExecutor
	}
	return ""
}

// IsContinuous reports whether the target is a long-running process.
func (t *TargetConfiguration) IsContinuous() bool {
	return t != nil && t.Continuous != nil && *t.Continuous
}

// IsCacheable reports whether the target's results may be cached.
func (t *TargetConfiguration) IsCacheable() bool {
	return t != nil && t.Cache != nil && *t.Cache
}

// HasConfiguration reports whether the named configuration is declared.
func (t *TargetConfiguration) HasConfiguration(name string) bool {
	if t == nil || name == "" {
		return false
	}
	_, ok := t.Configurations[name]
	return ok
}

// Clone returns a deep copy of the target configuration. Nil slices stay nil.
func (t *TargetConfiguration) Clone() *TargetConfiguration {
	if t == nil {
		return nil
	}
	out := *t
	out.Options = options.Clone(t.Options)
	if t.Configurations != nil {
		out.Configurations = make(map[string]map[string]any, len(t.Configurations))
		for name, bag := range t.Configurations {
			out.Configurations[name] = options.Clone(bag)
		}
	}
	if t.DependsOn != nil {
		out.DependsOn = make([]DependencyDeclaration, len(t.DependsOn))
		for i, d := range t.DependsOn {
			out.DependsOn[i] = d.clone()
		}
	}
	out.Inputs = cloneStrings(t.Inputs)
	out.Outputs = cloneStrings(t.Outputs)
	if t.Continuous != nil {
		v := *t.Continuous
		out.Continuous = &v
	}
	if t.Cache != nil {
		v := *t.Cache
		out.Cache = &v
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Bool returns a pointer to b, for filling the optional flags in code.
func Bool(b bool) *bool {
	return &b
}
