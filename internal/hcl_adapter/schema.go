package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// WorkspaceFileName and ProjectFileName are the files the loader looks for.
const (
	WorkspaceFileName = "workspace.hcl"
	ProjectFileName   = "project.hcl"
)

// workspaceFile is the decoded shape of workspace.hcl.
type workspaceFile struct {
	Parallel       *int           `hcl:"parallel,optional"`
	Projects       []string       `hcl:"projects,optional"`
	NamedInputs    hcl.Expression `hcl:"named_inputs,optional"`
	TargetDefaults []*targetBlock `hcl:"target_default,block"`
}

// projectFile is the decoded shape of project.hcl. A file holds exactly one
// project block. Unknown attributes and blocks are decode errors.
type projectFile struct {
	Projects []*projectBlock `hcl:"project,block"`
}

type projectBlock struct {
	Name                 string             `hcl:"name,label"`
	Type                 string             `hcl:"type,optional"`
	SourceRoot           string             `hcl:"source_root,optional"`
	Tags                 []string           `hcl:"tags,optional"`
	ImplicitDependencies []string           `hcl:"implicit_dependencies,optional"`
	Dependencies         []*dependencyBlock `hcl:"dependency,block"`
	Targets              []*targetBlock     `hcl:"target,block"`
}

type dependencyBlock struct {
	Project string `hcl:"project,label"`
	Type    string `hcl:"type,optional"`
}

type targetBlock struct {
	Name                 string         `hcl:"name,label"`
	Executor             string         `hcl:"executor,optional"`
	Command              string         `hcl:"command,optional"`
	Options              hcl.Expression `hcl:"options,optional"`
	Configurations       hcl.Expression `hcl:"configurations,optional"`
	DefaultConfiguration string         `hcl:"default_configuration,optional"`
	DependsOn            hcl.Expression `hcl:"depends_on,optional"`
	Inputs               []string       `hcl:"inputs,optional"`
	Outputs              []string       `hcl:"outputs,optional"`
	Continuous           *bool          `hcl:"continuous,optional"`
	Cache                *bool          `hcl:"cache,optional"`
}
