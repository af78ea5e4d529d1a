package taskgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/taskgrid/internal/options"
	"github.com/vk/taskgrid/internal/taskid"
)

var (
	// ErrCyclicTaskDependency is returned when dependsOn declarations form a
	// cycle between tasks.
	ErrCyclicTaskDependency = errors.New("cyclic task dependency")
	// ErrMissingDependencyTarget is returned when an explicit dependency
	// names a project that does not declare the target.
	ErrMissingDependencyTarget = errors.New("missing dependency target")
)

// CycleError carries the task ids forming a cycle; the first id is repeated
// at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCyclicTaskDependency, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicTaskDependency
}

// Task is one concrete invocation of a project target. Tasks are immutable
// once added to a graph.
type Task struct {
	ID            string `json:"id" yaml:"id"`
	Project       string `json:"project" yaml:"project"`
	ProjectRoot   string `json:"projectRoot" yaml:"projectRoot"`
	Target        string `json:"target" yaml:"target"`
	Configuration string `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	Executor      string `json:"executor" yaml:"executor"`

	// Options is the effective options bag of the target.
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	// Overrides are layered on top of Options when the task runs.
	Overrides map[string]any `json:"overrides,omitempty" yaml:"overrides,omitempty"`

	Inputs     []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs    []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Continuous bool     `json:"continuous,omitempty" yaml:"continuous,omitempty"`
	Cache      bool     `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// NewTask creates a task with its identifier derived from the triple.
func NewTask(project, target, configuration string) *Task {
	return &Task{
		ID:            taskid.New(project, target, configuration).String(),
		Project:       project,
		Target:        target,
		Configuration: configuration,
	}
}

// RunOptions returns the options the executor receives: the effective
// options with the overrides merged on top.
func (t *Task) RunOptions() map[string]any {
	merged := options.Merge(t.Options, t.Overrides)
	if merged == nil {
		merged = map[string]any{}
	}
	return merged
}

// TaskGraph is a DAG of tasks. Edges point from a task to the tasks it
// depends on.
type TaskGraph struct {
	Tasks        map[string]*Task    `json:"tasks" yaml:"tasks"`
	Dependencies map[string][]string `json:"dependencies" yaml:"dependencies"`
	// Roots are the requested task ids, in request order.
	Roots []string `json:"roots" yaml:"roots"`

	dependents map[string][]string
	order      []string
}

// New creates an empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		Tasks:        make(map[string]*Task),
		Dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
}

// AddTask interns a task. It returns the task already registered under the
// same id, if any, and whether t was added.
func (g *TaskGraph) AddTask(t *Task) (*Task, bool) {
	if existing, ok := g.Tasks[t.ID]; ok {
		return existing, false
	}
	g.Tasks[t.ID] = t
	g.Dependencies[t.ID] = []string{}
	g.order = append(g.order, t.ID)
	return t, true
}

// AddDependency records that task `from` depends on task `to`. Duplicate
// edges are ignored.
func (g *TaskGraph) AddDependency(from, to string) error {
	if _, ok := g.Tasks[from]; !ok {
		return fmt.Errorf("dependency source task %q not found", from)
	}
	if _, ok := g.Tasks[to]; !ok {
		return fmt.Errorf("dependency target task %q not found", to)
	}
	if slices.Contains(g.Dependencies[from], to) {
		return nil
	}
	g.Dependencies[from] = append(g.Dependencies[from], to)
	g.dependents[to] = append(g.dependents[to], from)
	return nil
}

// AddRoot marks a task as requested.
func (g *TaskGraph) AddRoot(id string) {
	if !slices.Contains(g.Roots, id) {
		g.Roots = append(g.Roots, id)
	}
}

// IsRoot reports whether the task was requested.
func (g *TaskGraph) IsRoot(id string) bool {
	return slices.Contains(g.Roots, id)
}

// Dependents returns the tasks that depend on id, in edge order.
func (g *TaskGraph) Dependents(id string) []string {
	return g.dependents[id]
}

// Order returns the task ids in the order they were discovered.
func (g *TaskGraph) Order() []string {
	return g.order
}

// Leaves returns the tasks without dependencies, in discovery order.
func (g *TaskGraph) Leaves() []string {
	var out []string
	for _, id := range g.order {
		if len(g.Dependencies[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// TopologicalOrder returns the task ids with every dependency before its
// dependents, ties broken by discovery order. The graph must be acyclic.
func (g *TaskGraph) TopologicalOrder() []string {
	pending := make(map[string]int, len(g.order))
	for _, id := range g.order {
		pending[id] = len(g.Dependencies[id])
	}
	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		progressed := false
		for _, id := range g.order {
			if done[id] || pending[id] > 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, d := range g.dependents[id] {
				pending[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			break
		}
	}
	return out
}

// Validate checks that every edge points at a known task and that the graph
// has no cycle. It walks the graph iteratively, so deep chains cannot
// exhaust the stack.
func (g *TaskGraph) Validate() error {
	for from, deps := range g.Dependencies {
		if _, ok := g.Tasks[from]; !ok {
			return fmt.Errorf("dependencies recorded for unknown task %q", from)
		}
		for _, to := range deps {
			if _, ok := g.Tasks[to]; !ok {
				return fmt.Errorf("task %q depends on unknown task %q", from, to)
			}
		}
	}

	const (
		unvisited = iota
		inProgress
		visited
	)
	type frame struct {
		id   string
		next int
	}
	state := make(map[string]int, len(g.Tasks))

	for _, start := range g.order {
		if state[start] != unvisited {
			continue
		}
		stack := []frame{{id: start}}
		state[start] = inProgress
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.Dependencies[top.id]
			if top.next == len(deps) {
				state[top.id] = visited
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++
			switch state[dep] {
			case inProgress:
				path := []string{}
				for i := range stack {
					if stack[i].id == dep || len(path) > 0 {
						path = append(path, stack[i].id)
					}
				}
				return &CycleError{Path: append(path, dep)}
			case unvisited:
				state[dep] = inProgress
				stack = append(stack, frame{id: dep})
			}
		}
	}
	return nil
}
