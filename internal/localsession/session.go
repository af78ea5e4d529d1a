// Package localsession provides a concrete implementation of the
// session.Session and session.SessionFactory interfaces for local,
// in-process execution.
package localsession

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/inmemorystore"
	"github.com/vk/taskgrid/internal/localexecutor"
	"github.com/vk/taskgrid/internal/projectgraph"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/resolver"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/session"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// CacheSize bounds the resolver cache. Zero selects the default.
	CacheSize int
}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession builds the project graph and the resolver for ws and wires
// them to a local runner.
func (f *SessionFactory) NewSession(ctx context.Context, ws *config.Workspace, reg *registry.Registry) (session.Session, error) {
	id := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run_id", id)
	logger.Debug("Creating local session.", "root", ws.Root)

	if err := ws.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	pg, err := projectgraph.Build(ctx, ws)
	if err != nil {
		return nil, fmt.Errorf("building project graph: %w", err)
	}

	size := f.CacheSize
	if size <= 0 {
		size = resolver.DefaultCacheSize
	}
	res, err := resolver.New(ws, size)
	if err != nil {
		return nil, err
	}

	return &Session{
		id:       id,
		projects: pg,
		builder:  taskgraph.NewBuilder(pg, res),
		registry: reg,
		runner:   localexecutor.New(reg, ws.Root),
		store:    inmemorystore.New(),
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	id       string
	projects *projectgraph.Graph
	builder  *taskgraph.Builder
	registry *registry.Registry
	runner   scheduler.Runner
	store    taskstore.Store
}

var _ session.Session = (*Session)(nil)

// ID returns the run id.
func (s *Session) ID() string { return s.id }

// Store returns the task store mirrored by Execute.
func (s *Session) Store() taskstore.Store { return s.store }

// Requests implements session.Session.
func (s *Session) Requests(target, configuration string, projects ...string) []taskgraph.Request {
	return taskgraph.ForTarget(s.projects, target, configuration, projects...)
}

// Plan implements session.Session.
func (s *Session) Plan(ctx context.Context, requests []taskgraph.Request, overrides map[string]any) (*taskgraph.TaskGraph, error) {
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("run_id", s.id))
	return s.builder.Build(ctx, requests, overrides)
}

// Execute validates that every executor the graph needs is registered and
// starts the scheduler.
func (s *Session) Execute(ctx context.Context, g *taskgraph.TaskGraph, parallel int) (*scheduler.Run, error) {
	ctx = ctxlog.WithLogger(ctx, ctxlog.FromContext(ctx).With("run_id", s.id))
	if err := s.registry.Validate(ctx, g); err != nil {
		return nil, err
	}
	return scheduler.Start(ctx, g, s.runner, scheduler.Options{Parallel: parallel, Store: s.store}), nil
}

// Close implements session.Session. Local sessions hold nothing to release.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Local session closed.", "run_id", s.id)
	return nil
}
