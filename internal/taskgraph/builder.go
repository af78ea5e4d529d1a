package taskgraph

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/projectgraph"
	"github.com/vk/taskgrid/internal/resolver"
)

// Request asks for one target on one project.
type Request struct {
	Project       string
	Target        string
	Configuration string
}

func (r Request) String() string {
	if r.Configuration == "" {
		return r.Project + ":" + r.Target
	}
	return r.Project + ":" + r.Target + ":" + r.Configuration
}

// Builder expands requests into a task graph.
type Builder struct {
	projects *projectgraph.Graph
	resolver *resolver.Resolver
}

// NewBuilder creates a builder over a project graph and a resolver reading
// the same workspace.
func NewBuilder(projects *projectgraph.Graph, r *resolver.Resolver) *Builder {
	return &Builder{projects: projects, resolver: r}
}

// build holds the state of a single Build call.
type build struct {
	*Builder
	graph     *TaskGraph
	effective map[string]*resolver.EffectiveTarget
	queue     []string
}

// Build resolves every request, expands the dependsOn declarations
// breadth-first and returns the resulting graph. Overrides are attached to
// the requested tasks and forwarded to dependencies declared with
// params "forward".
func (b *Builder) Build(ctx context.Context, requests []Request, overrides map[string]any) (*TaskGraph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building task graph.", "requests", len(requests))

	st := &build{
		Builder:   b,
		graph:     New(),
		effective: make(map[string]*resolver.EffectiveTarget),
	}

	for _, req := range requests {
		t, _, err := st.intern(ctx, req.Project, req.Target, req.Configuration, overrides)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", req, err)
		}
		st.graph.AddRoot(t.ID)
	}

	for len(st.queue) > 0 {
		id := st.queue[0]
		st.queue = st.queue[1:]
		if err := st.expand(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := st.graph.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Task graph built.", "tasks", len(st.graph.Tasks), "roots", len(st.graph.Roots))
	return st.graph, nil
}

// intern resolves the target and returns the task for it, creating and
// queueing it on first sight.
func (st *build) intern(ctx context.Context, project, target, configuration string, overrides map[string]any) (*Task, bool, error) {
	eff, err := st.resolver.Resolve(ctx, project, target, configuration)
	if err != nil {
		return nil, false, err
	}

	t := NewTask(project, target, eff.Configuration)
	if existing, ok := st.graph.Tasks[t.ID]; ok {
		return existing, false, nil
	}

	t.ProjectRoot = eff.Project.Root
	t.Executor = eff.Executor()
	t.Options = eff.Options
	t.Overrides = overrides
	t.Inputs = eff.Inputs
	t.Outputs = eff.Outputs
	t.Continuous = eff.Continuous()
	t.Cache = eff.Target.IsCacheable()

	st.graph.AddTask(t)
	st.effective[t.ID] = eff
	st.queue = append(st.queue, t.ID)
	ctxlog.FromContext(ctx).Debug("Task discovered.", "task_id", t.ID, "continuous", t.Continuous)
	return t, true, nil
}

func (st *build) expand(ctx context.Context, id string) error {
	logger := ctxlog.FromContext(ctx).With("task_id", id)
	task := st.graph.Tasks[id]
	eff := st.effective[id]

	for _, decl := range eff.Target.DependsOn {
		projects, err := st.dependencyProjects(ctx, task, decl)
		if err != nil {
			return err
		}

		var forwarded map[string]any
		if decl.ForwardsParams() {
			forwarded = task.Overrides
		}

		for _, project := range projects {
			configuration := st.dependencyConfiguration(project, decl.Target, task.Configuration)
			dep, _, err := st.intern(ctx, project, decl.Target, configuration, forwarded)
			if err != nil {
				return fmt.Errorf("resolving dependency %q of %s: %w", decl.String(), id, err)
			}
			if err := st.graph.AddDependency(id, dep.ID); err != nil {
				return err
			}
			logger.Debug("Dependency added.", "dependency", dep.ID)
		}
	}
	return nil
}

// dependencyProjects returns the projects a declaration applies to, in
// deterministic order.
func (st *build) dependencyProjects(ctx context.Context, task *Task, decl config.DependencyDeclaration) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	switch decl.Selector() {
	case config.SelectDependencies:
		var out []string
		for _, name := range st.projects.TaskDependencies(task.Project) {
			p, _ := st.projects.Project(name)
			if !p.HasTarget(decl.Target) {
				logger.Debug("Dependency project lacks target, skipping.", "task_id", task.ID, "project", name, "target", decl.Target)
				continue
			}
			out = append(out, name)
		}
		return out, nil

	case config.SelectExplicit:
		for _, name := range decl.Projects {
			p, ok := st.projects.Project(name)
			if !ok || !p.HasTarget(decl.Target) {
				return nil, fmt.Errorf("%w: %s depends on %s:%s", ErrMissingDependencyTarget, task.ID, name, decl.Target)
			}
		}
		return decl.Projects, nil

	default:
		p, _ := st.projects.Project(task.Project)
		if !p.HasTarget(decl.Target) {
			// Workspace defaults often list optional targets like "prebuild".
			logger.Debug("Project lacks dependency target, skipping.", "task_id", task.ID, "target", decl.Target)
			return nil, nil
		}
		return []string{task.Project}, nil
	}
}

// dependencyConfiguration picks the configuration of a dependency task: the
// dependent's configuration when the dependency declares one by that name,
// otherwise the dependency's own default.
func (st *build) dependencyConfiguration(project, target, parent string) string {
	if parent == "" {
		return ""
	}
	merged, err := st.resolver.Merged(project, target)
	if err != nil || !merged.HasConfiguration(parent) {
		return ""
	}
	return parent
}

// ForTarget returns one request per project declaring the target, in
// workspace order. A non-empty projects list restricts the selection.
func ForTarget(g *projectgraph.Graph, target, configuration string, projects ...string) []Request {
	var out []Request
	for _, p := range g.ProjectsWithTarget(target, projects...) {
		out = append(out, Request{Project: p.Name, Target: target, Configuration: configuration})
	}
	return out
}
