// Package localexecutor runs tasks in-process by dispatching them to the
// executors held in the registry. It is the bridge between the scheduler,
// which only knows about tasks and results, and the executor modules.
package localexecutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskgraph"
)

// ErrNoResult is returned when an executor closes its channel without
// reporting anything.
var ErrNoResult = errors.New("executor finished without a result")

// Runner implements scheduler.Runner for local execution.
type Runner struct {
	registry      *registry.Registry
	workspaceRoot string
}

var _ scheduler.Runner = (*Runner)(nil)

// New creates a runner resolving executors from reg.
func New(reg *registry.Registry, workspaceRoot string) *Runner {
	return &Runner{registry: reg, workspaceRoot: workspaceRoot}
}

// Run looks up the task's executor and drains its output channel. The first
// value marks the task as started, the last one is the result.
func (r *Runner) Run(ctx context.Context, task *taskgraph.Task, started func()) scheduler.Result {
	logger := ctxlog.FromContext(ctx).With("task_id", task.ID, "executor", task.Executor)

	exec, err := r.registry.Lookup(task.Executor)
	if err != nil {
		return scheduler.Result{Err: err}
	}

	env, err := LoadEnv(r.workspaceRoot, task.ProjectRoot, task.Target, task.Configuration)
	if err != nil {
		return scheduler.Result{Err: fmt.Errorf("loading env files: %w", err)}
	}

	ec := &registry.Context{
		WorkspaceRoot: r.workspaceRoot,
		ProjectName:   task.Project,
		ProjectRoot:   task.ProjectRoot,
		TargetName:    task.Target,
		Configuration: task.Configuration,
		TaskID:        task.ID,
		Continuous:    task.Continuous,
		Env:           env,
		Logger:        logger,
	}

	logger.Debug("Handing task to executor.")
	var (
		last registry.Output
		got  bool
	)
	for out := range exec.Run(ctxlog.WithLogger(ctx, logger), task.RunOptions(), ec) {
		if !got {
			started()
			got = true
		}
		last = out
	}
	if !got {
		return scheduler.Result{Err: ErrNoResult}
	}
	return scheduler.Result{Success: last.Success, TerminalOutput: last.TerminalOutput, Err: last.Err}
}
