package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/taskgraph"
)

// ErrUnknownExecutor is returned when no executor is registered under a name.
var ErrUnknownExecutor = errors.New("unknown executor")

// Output is a message from a running executor. The first value sent marks the
// task as started; the last value before the channel closes is its result.
type Output struct {
	Success        bool
	TerminalOutput string
	Err            error
}

// Context carries what an executor knows about the task it runs.
type Context struct {
	WorkspaceRoot string
	ProjectName   string
	ProjectRoot   string
	TargetName    string
	Configuration string
	TaskID        string
	Continuous    bool
	// Env holds the variables read from .env files. Executors layer it over
	// the process environment.
	Env    map[string]string
	Logger *slog.Logger
}

// ProjectDir returns the absolute project directory.
func (c *Context) ProjectDir() string {
	return ProjectDir(c.WorkspaceRoot, c.ProjectRoot)
}

// ProjectDir joins a project root onto the workspace root unless it is
// already absolute.
func ProjectDir(workspaceRoot, projectRoot string) string {
	if filepath.IsAbs(projectRoot) {
		return projectRoot
	}
	return filepath.Join(workspaceRoot, projectRoot)
}

// Executor runs one task with its fully resolved options. Implementations
// close the returned channel when the task is over.
type Executor interface {
	Run(ctx context.Context, options map[string]any, ec *Context) <-chan Output
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, options map[string]any, ec *Context) <-chan Output

// Run calls f.
func (f ExecutorFunc) Run(ctx context.Context, options map[string]any, ec *Context) <-chan Output {
	return f(ctx, options, ec)
}

// Module is the interface that all executor modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the executors available to a single application instance.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register adds an executor. Registering the same name twice is a programmer
// error and panics.
func (r *Registry) Register(name string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; exists {
		panic(fmt.Sprintf("executor with name '%s' already registered", name))
	}
	slog.Debug("Registering executor.", "name", name)
	r.executors[name] = exec
}

// RegisterModules lets every module register its executors.
func (r *Registry) RegisterModules(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Lookup returns the executor registered under name.
func (r *Registry) Lookup(name string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, name)
	}
	return exec, nil
}

// Names returns the registered executor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every task in the graph names a registered executor.
func (r *Registry) Validate(ctx context.Context, g *taskgraph.TaskGraph) error {
	var errs []string
	for _, id := range g.Order() {
		task := g.Tasks[id]
		if _, err := r.Lookup(task.Executor); err != nil {
			errs = append(errs, fmt.Sprintf("task '%s': executor '%s' is not registered", id, task.Executor))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrUnknownExecutor, strings.Join(errs, "\n- "))
	}
	ctxlog.FromContext(ctx).Debug("Registry validation passed.", "tasks", len(g.Tasks))
	return nil
}
