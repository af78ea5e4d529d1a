package projectgraph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	graphlib "github.com/dominikbraun/graph"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
)

// ErrUnknownProject is returned when a dependency names a project that is
// not part of the workspace.
var ErrUnknownProject = errors.New("unknown project")

const (
	allProjectsSelector = "*"
	tagSelectorPrefix   = "tag:"
	excludePrefix       = "!"
	edgeTypeAttribute   = "type"
)

// Edge is a typed dependency of Source on Target.
type Edge struct {
	Source string
	Target string
	Type   config.DependencyType
}

// Graph is the immutable project graph. It is safe for concurrent reads.
type Graph struct {
	workspace  *config.Workspace
	projects   []*config.ProjectConfiguration
	byName     map[string]*config.ProjectConfiguration
	deps       map[string][]Edge
	dependents map[string][]string
	cycles     [][]string
}

// Build creates the project graph for the workspace. The workspace must have
// been validated.
func Build(ctx context.Context, ws *config.Workspace) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building project graph.", "projects", len(ws.Projects))

	g := &Graph{
		workspace:  ws,
		projects:   ws.Projects,
		byName:     make(map[string]*config.ProjectConfiguration, len(ws.Projects)),
		deps:       make(map[string][]Edge, len(ws.Projects)),
		dependents: make(map[string][]string, len(ws.Projects)),
	}
	for _, p := range ws.Projects {
		g.byName[p.Name] = p
	}

	// The adjacency mirror lets graphlib compute the strongly connected
	// components; ordering stays with our own slices.
	mirror := graphlib.New(graphlib.StringHash, graphlib.Directed())
	for _, p := range ws.Projects {
		if err := mirror.AddVertex(p.Name); err != nil {
			return nil, fmt.Errorf("adding project %q: %w", p.Name, err)
		}
	}

	for _, p := range ws.Projects {
		for _, d := range p.Dependencies {
			typ := d.Type
			if typ == "" {
				typ = config.DependencyStatic
			}
			if err := g.addEdge(mirror, p.Name, d.Target, typ); err != nil {
				return nil, err
			}
		}
		implicit, err := g.expandImplicit(p)
		if err != nil {
			return nil, err
		}
		for _, target := range implicit {
			if err := g.addEdge(mirror, p.Name, target, config.DependencyImplicit); err != nil {
				return nil, err
			}
		}
	}

	sccs, err := graphlib.StronglyConnectedComponents(mirror)
	if err != nil {
		return nil, fmt.Errorf("computing project cycles: %w", err)
	}
	for _, scc := range sccs {
		if len(scc) > 1 || g.hasSelfEdge(scc[0]) {
			slices.SortFunc(scc, func(a, b string) int { return g.indexOf(a) - g.indexOf(b) })
			g.cycles = append(g.cycles, scc)
		}
	}
	slices.SortFunc(g.cycles, func(a, b []string) int { return g.indexOf(a[0]) - g.indexOf(b[0]) })
	for _, c := range g.cycles {
		logger.Warn("Project dependency cycle detected.", "projects", strings.Join(c, " -> "))
	}

	logger.Debug("Project graph built.", "projects", len(g.projects), "cycles", len(g.cycles))
	return g, nil
}

func (g *Graph) addEdge(mirror graphlib.Graph[string, string], source, target string, typ config.DependencyType) error {
	if _, ok := g.byName[target]; !ok {
		return fmt.Errorf("%w: project %q depends on %q", ErrUnknownProject, source, target)
	}
	for _, e := range g.deps[source] {
		// The first declaration of an edge wins; static beats a later implicit one.
		if e.Target == target {
			return nil
		}
	}
	g.deps[source] = append(g.deps[source], Edge{Source: source, Target: target, Type: typ})
	g.dependents[target] = append(g.dependents[target], source)

	err := mirror.AddEdge(source, target, graphlib.EdgeAttribute(edgeTypeAttribute, string(typ)))
	if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
		return fmt.Errorf("adding dependency %s -> %s: %w", source, target, err)
	}
	return nil
}

// expandImplicit turns the implicitDependencies selectors into project names,
// preserving workspace order for wildcard and tag selectors.
func (g *Graph) expandImplicit(p *config.ProjectConfiguration) ([]string, error) {
	var selected []string
	add := func(name string) {
		if name != p.Name && !slices.Contains(selected, name) {
			selected = append(selected, name)
		}
	}

	for _, sel := range p.ImplicitDependencies {
		switch {
		case sel == allProjectsSelector:
			for _, other := range g.projects {
				add(other.Name)
			}
		case strings.HasPrefix(sel, excludePrefix):
			name := strings.TrimPrefix(sel, excludePrefix)
			selected = slices.DeleteFunc(selected, func(s string) bool { return s == name })
		case strings.HasPrefix(sel, tagSelectorPrefix):
			tag := strings.TrimPrefix(sel, tagSelectorPrefix)
			for _, other := range g.projects {
				if other.HasTag(tag) {
					add(other.Name)
				}
			}
		default:
			if _, ok := g.byName[sel]; !ok {
				return nil, fmt.Errorf("%w: project %q has implicit dependency on %q", ErrUnknownProject, p.Name, sel)
			}
			add(sel)
		}
	}
	return selected, nil
}

func (g *Graph) hasSelfEdge(name string) bool {
	for _, e := range g.deps[name] {
		if e.Target == name {
			return true
		}
	}
	return false
}

func (g *Graph) indexOf(name string) int {
	return slices.IndexFunc(g.projects, func(p *config.ProjectConfiguration) bool { return p.Name == name })
}

// Workspace returns the workspace the graph was built from.
func (g *Graph) Workspace() *config.Workspace {
	return g.workspace
}

// Project returns the named project.
func (g *Graph) Project(name string) (*config.ProjectConfiguration, bool) {
	p, ok := g.byName[name]
	return p, ok
}

// Projects returns every project in workspace order.
func (g *Graph) Projects() []*config.ProjectConfiguration {
	return g.projects
}

// Dependencies returns the outgoing edges of a project in declaration order.
func (g *Graph) Dependencies(name string) []Edge {
	return g.deps[name]
}

// DependencyNames returns the projects the named project depends on through
// edges of the given types, in edge order. With no types every edge counts.
func (g *Graph) DependencyNames(name string, types ...config.DependencyType) []string {
	var out []string
	for _, e := range g.deps[name] {
		if len(types) == 0 || slices.Contains(types, e.Type) {
			out = append(out, e.Target)
		}
	}
	return out
}

// TaskDependencies returns the projects reached by a "^" dependsOn entry:
// the static and implicit dependencies, in edge order.
func (g *Graph) TaskDependencies(name string) []string {
	return g.DependencyNames(name, config.DependencyStatic, config.DependencyImplicit)
}

// Dependents returns the projects that depend on the named one.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// Cycles returns every group of projects that depend on each other, each
// group ordered by workspace order.
func (g *Graph) Cycles() [][]string {
	return g.cycles
}

// ProjectsWithTarget returns, in workspace order, the projects declaring the
// target. A non-empty filter restricts the result to the named projects.
func (g *Graph) ProjectsWithTarget(target string, filter ...string) []*config.ProjectConfiguration {
	var out []*config.ProjectConfiguration
	for _, p := range g.projects {
		if len(filter) > 0 && !slices.Contains(filter, p.Name) {
			continue
		}
		if p.HasTarget(target) {
			out = append(out, p)
		}
	}
	return out
}
