// Package config defines the format-agnostic configuration model for a
// workspace: the workspace-wide target defaults, the projects and the targets
// each project declares.
//
// The `config.Workspace` is the single source of truth for the
// `projectgraph`, `resolver` and `taskgraph` packages. Concrete loaders, such
// as the HCL one, are provided in separate packages and only need to satisfy
// the Loader interface.
package config
