// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Workspace, the root container for everything loaded
// from a repository: projects in declaration order plus the workspace-wide
// defaults that every project target inherits from.
package config

import (
	"errors"
	"fmt"
)

// ErrDuplicateProject is returned when two projects share a name.
var ErrDuplicateProject = errors.New("duplicate project name")

// Workspace is the unified, format-agnostic representation of a workspace.
type Workspace struct {
	Root string
	// Parallel is the default concurrency limit. Zero means "not set".
	Parallel    int
	NamedInputs map[string][]string
	// TargetDefaults is keyed by executor name or by target name.
	TargetDefaults map[string]*TargetConfiguration
	Projects       []*ProjectConfiguration

	index map[string]*ProjectConfiguration
}

// Validate checks the workspace for structural errors and indexes the
// projects by name. It must be called once after the workspace is assembled
// and before it is shared between goroutines.
func (w *Workspace) Validate() error {
	index := make(map[string]*ProjectConfiguration, len(w.Projects))
	for _, p := range w.Projects {
		if p == nil {
			return errors.New("workspace contains a nil project")
		}
		if p.Name == "" {
			return fmt.Errorf("project at %q has no name", p.Root)
		}
		if prev, ok := index[p.Name]; ok {
			return fmt.Errorf("%w: %q is declared at %q and %q", ErrDuplicateProject, p.Name, prev.Root, p.Root)
		}
		index[p.Name] = p

		for name, t := range p.Targets {
			if err := validateTarget(t); err != nil {
				return fmt.Errorf("project %q target %q: %w", p.Name, name, err)
			}
		}
	}
	for name, t := range w.TargetDefaults {
		if err := validateTarget(t); err != nil {
			return fmt.Errorf("target default %q: %w", name, err)
		}
	}
	w.index = index
	return nil
}

// Project returns the project with the given name.
func (w *Workspace) Project(name string) (*ProjectConfiguration, bool) {
	if w.index != nil {
		p, ok := w.index[name]
		return p, ok
	}
	for _, p := range w.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ProjectNames returns the project names in declaration order.
func (w *Workspace) ProjectNames() []string {
	names := make([]string, 0, len(w.Projects))
	for _, p := range w.Projects {
		names = append(names, p.Name)
	}
	return names
}

func validateTarget(t *TargetConfiguration) error {
	if t == nil {
		return errors.New("target configuration is nil")
	}
	for _, d := range t.DependsOn {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
