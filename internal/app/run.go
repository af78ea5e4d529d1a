package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/report"
	"github.com/vk/taskgrid/internal/taskgraph"
)

// ErrRunFailed is returned when at least one task failed or a requested
// task did not succeed.
var ErrRunFailed = errors.New("run failed")

// Run loads the workspace, plans the task graph and either prints it or
// executes it. Continuous requested tasks keep running until ctx is
// cancelled; continuous dependencies are stopped once the requested tasks
// are done.
func (a *App) Run(ctx context.Context) error {
	level := a.config.LogLevel
	if err := a.config.ApplyEnvDefaults(); err != nil {
		return err
	}
	if a.config.LogLevel != level {
		// Level came from the environment.
		a.logger = newLogger(a.config.LogLevel, a.config.LogFormat, a.outW)
	}

	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "log_level", a.config.LogLevel)

	ws, err := a.loader.Load(ctx, a.config.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("failed to load workspace: %w", err)
	}
	a.logger.Debug("Workspace loaded.", "projects", len(ws.Projects))

	sess, err := a.sessions.NewSession(ctx, ws, a.registry)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)
	a.setStore(sess.Store())
	a.logger.Info("Session created.", "run_id", sess.ID())

	var requests []taskgraph.Request
	if a.config.Target != "" {
		requests = sess.Requests(a.config.Target, a.config.Configuration, a.config.Projects...)
		if len(requests) == 0 {
			a.logger.Warn("No project declares the target, nothing to run.", "target", a.config.Target)
			return nil
		}
	} else if requests, err = a.config.TaskRequests(); err != nil {
		return err
	}

	g, err := sess.Plan(ctx, requests, a.config.Overrides)
	if err != nil {
		return fmt.Errorf("failed to build task graph: %w", err)
	}
	a.logger.Debug("Task graph built.", "tasks", len(g.Tasks), "roots", len(g.Roots))

	if a.config.GraphFormat != "" {
		format, err := report.ParseFormat(a.config.GraphFormat)
		if err != nil {
			return err
		}
		return report.WriteGraph(a.outW, g, format)
	}

	a.startHealthcheckServer(a.config.HealthcheckPort)
	defer func() {
		if err := a.closeHealthcheckServer(); err != nil {
			a.logger.Error("Health check server shutdown failed", "error", err)
		}
	}()

	parallel := a.parallel(ws.Parallel)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("🚀 Starting run.", "tasks", len(g.Tasks), "parallel", parallel)
	run, err := sess.Execute(runCtx, g, parallel)
	if err != nil {
		return err
	}

	summary := run.Wait()
	if summary.Success && continuousRoots(g) {
		a.logger.Info("Continuous tasks are running. Interrupt to stop.")
		<-ctx.Done()
	}
	cancel()
	summary = run.Summary()
	a.logger.Info("🏁 Run finished.", "success", summary.Success)

	printer := &report.Printer{W: a.outW, Color: a.config.Color}
	if err := printer.WriteSummary(summary); err != nil {
		return err
	}
	if !summary.Success {
		return ErrRunFailed
	}
	return nil
}

// parallel picks the concurrency limit: the flag or environment, then
// workspace.hcl, then the default.
func (a *App) parallel(workspace int) int {
	switch {
	case a.config.Parallel > 0:
		return a.config.Parallel
	case workspace > 0:
		return workspace
	default:
		return DefaultParallel
	}
}

func continuousRoots(g *taskgraph.TaskGraph) bool {
	for _, id := range g.Roots {
		if g.Tasks[id].Continuous {
			return true
		}
	}
	return false
}
