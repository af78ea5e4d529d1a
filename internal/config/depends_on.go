// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the dependsOn declaration and its string shorthand.
//
// A declaration names a target and the projects it must run on before the
// declaring task: the same project (the default), every direct dependency of
// the project (the "^" prefix or the "dependencies" selector), or an explicit
// list of project names.
package config

import (
	"fmt"
	"strings"
)

// DependenciesMarker is the shorthand prefix selecting the direct
// dependencies of a project.
const DependenciesMarker = "^"

// ProjectsSelector tells which projects a declaration applies to.
type ProjectsSelector int

const (
	SelectSelf ProjectsSelector = iota
	SelectDependencies
	SelectExplicit
)

func (s ProjectsSelector) String() string {
	switch s {
	case SelectDependencies:
		return "dependencies"
	case SelectExplicit:
		return "explicit"
	default:
		return "self"
	}
}

// ParamsMode controls whether the declaring task passes its overrides on.
type ParamsMode string

const (
	ParamsIgnore  ParamsMode = "ignore"
	ParamsForward ParamsMode = "forward"
)

// DependencyDeclaration is one entry of a target's dependsOn list.
type DependencyDeclaration struct {
	Target string
	// Dependencies selects the direct dependencies of the project.
	Dependencies bool
	// Projects is an explicit list of project names.
	Projects []string
	Params   ParamsMode
}

// Selector returns which projects the declaration applies to.
func (d DependencyDeclaration) Selector() ProjectsSelector {
	switch {
	case d.Dependencies:
		return SelectDependencies
	case len(d.Projects) > 0:
		return SelectExplicit
	default:
		return SelectSelf
	}
}

// ForwardsParams reports whether overrides flow to the dependency tasks.
func (d DependencyDeclaration) ForwardsParams() bool {
	return d.Params == ParamsForward
}

// String renders the declaration in its shorthand form when one exists.
func (d DependencyDeclaration) String() string {
	switch d.Selector() {
	case SelectDependencies:
		return DependenciesMarker + d.Target
	case SelectExplicit:
		return fmt.Sprintf("%s(%s)", d.Target, strings.Join(d.Projects, ","))
	default:
		return d.Target
	}
}

func (d DependencyDeclaration) clone() DependencyDeclaration {
	d.Projects = cloneStrings(d.Projects)
	return d
}

// ParseDependsOn parses the string shorthand: "build" runs build on the same
// project, "^build" runs build on every direct dependency.
func ParseDependsOn(raw string) (DependencyDeclaration, error) {
	raw = strings.TrimSpace(raw)
	target, deps := strings.CutPrefix(raw, DependenciesMarker)
	if target == "" {
		return DependencyDeclaration{}, fmt.Errorf("invalid dependsOn entry %q: target name is empty", raw)
	}
	return DependencyDeclaration{Target: target, Dependencies: deps, Params: ParamsIgnore}, nil
}

// Validate checks a declaration built from a structured form.
func (d DependencyDeclaration) Validate() error {
	if d.Target == "" {
		return fmt.Errorf("invalid dependsOn entry: target name is empty")
	}
	if d.Dependencies && len(d.Projects) > 0 {
		return fmt.Errorf("invalid dependsOn entry for %q: 'dependencies' and an explicit project list are mutually exclusive", d.Target)
	}
	switch d.Params {
	case "", ParamsIgnore, ParamsForward:
	default:
		return fmt.Errorf("invalid dependsOn entry for %q: params must be 'forward' or 'ignore', got %q", d.Target, d.Params)
	}
	return nil
}
