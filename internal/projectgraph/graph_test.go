package projectgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/config"
)

func project(name string, deps ...string) *config.ProjectConfiguration {
	p := &config.ProjectConfiguration{Name: name, Root: "libs/" + name}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, config.ProjectDependency{Target: d, Type: config.DependencyStatic})
	}
	return p
}

func buildGraph(t *testing.T, projects ...*config.ProjectConfiguration) *Graph {
	t.Helper()
	ws := &config.Workspace{Root: "/ws", Projects: projects}
	require.NoError(t, ws.Validate())
	g, err := Build(context.Background(), ws)
	require.NoError(t, err)
	return g
}

func TestBuild_TypedEdgesInDeclarationOrder(t *testing.T) {
	// --- Arrange ---
	app := project("app", "b", "a")
	app.Dependencies = append(app.Dependencies, config.ProjectDependency{Target: "lazy", Type: config.DependencyDynamic})
	app.ImplicitDependencies = []string{"e2e-utils"}

	// --- Act ---
	g := buildGraph(t, app, project("a"), project("b"), project("lazy"), project("e2e-utils"))

	// --- Assert ---
	assert.Equal(t, []Edge{
		{Source: "app", Target: "b", Type: config.DependencyStatic},
		{Source: "app", Target: "a", Type: config.DependencyStatic},
		{Source: "app", Target: "lazy", Type: config.DependencyDynamic},
		{Source: "app", Target: "e2e-utils", Type: config.DependencyImplicit},
	}, g.Dependencies("app"))
	assert.Equal(t, []string{"b", "a", "e2e-utils"}, g.TaskDependencies("app"))
	assert.Equal(t, []string{"lazy"}, g.DependencyNames("app", config.DependencyDynamic))
	assert.Equal(t, []string{"app"}, g.Dependents("a"))
	assert.Empty(t, g.Cycles())
}

func TestBuild_ImplicitSelectors(t *testing.T) {
	tools := project("tools")
	tools.ImplicitDependencies = []string{"*", "!legacy"}

	tagged := project("ui")
	tagged.Tags = []string{"scope:shared"}
	other := project("utils")
	other.Tags = []string{"scope:shared"}
	consumer := project("web")
	consumer.ImplicitDependencies = []string{"tag:scope:shared"}

	g := buildGraph(t, tools, project("legacy"), tagged, other, consumer)

	assert.Equal(t, []string{"ui", "utils", "web"}, g.DependencyNames("tools"))
	assert.Equal(t, []string{"ui", "utils"}, g.DependencyNames("web", config.DependencyImplicit))
}

func TestBuild_UnknownDependency(t *testing.T) {
	ws := &config.Workspace{Projects: []*config.ProjectConfiguration{project("app", "ghost")}}
	require.NoError(t, ws.Validate())

	_, err := Build(context.Background(), ws)
	require.ErrorIs(t, err, ErrUnknownProject)
	assert.Contains(t, err.Error(), "ghost")

	implicit := project("app")
	implicit.ImplicitDependencies = []string{"phantom"}
	ws = &config.Workspace{Projects: []*config.ProjectConfiguration{implicit}}
	require.NoError(t, ws.Validate())
	_, err = Build(context.Background(), ws)
	require.ErrorIs(t, err, ErrUnknownProject)
}

func TestBuild_CyclesAreToleratedAndReported(t *testing.T) {
	// --- Arrange ---
	// a -> b -> c -> a is a cycle; d only hangs off it.
	g := buildGraph(t,
		project("a", "b"),
		project("b", "c"),
		project("c", "a"),
		project("d", "a"),
	)

	// --- Assert ---
	require.Len(t, g.Cycles(), 1)
	assert.Equal(t, []string{"a", "b", "c"}, g.Cycles()[0])
	// Traversal still works on cyclic input.
	assert.Equal(t, []string{"a"}, g.TaskDependencies("d"))
	assert.Equal(t, []string{"b"}, g.TaskDependencies("a"))
}

func TestProjectsWithTarget(t *testing.T) {
	a := project("a")
	a.Targets = map[string]*config.TargetConfiguration{"build": {Executor: "noop"}}
	b := project("b")
	c := project("c")
	c.Targets = map[string]*config.TargetConfiguration{"build": {Executor: "noop"}}

	g := buildGraph(t, a, b, c)

	names := func(ps []*config.ProjectConfiguration) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}
	assert.Equal(t, []string{"a", "c"}, names(g.ProjectsWithTarget("build")))
	assert.Equal(t, []string{"c"}, names(g.ProjectsWithTarget("build", "c", "b")))
	assert.Empty(t, g.ProjectsWithTarget("lint"))
}
