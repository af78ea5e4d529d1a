// Package session defines the interfaces for creating and managing an
// execution session: planning task graphs for a workspace and running them.
// It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
)

// SessionFactory creates an execution Session. Different implementations can
// support various backends, such as local or distributed execution.
type SessionFactory interface {
	NewSession(ctx context.Context, ws *config.Workspace, reg *registry.Registry) (Session, error)
}

// Session represents a single workspace run and manages its lifecycle.
type Session interface {
	// ID identifies the run in logs.
	ID() string
	// Requests turns a target and an optional project filter into one
	// request per project declaring the target.
	Requests(target, configuration string, projects ...string) []taskgraph.Request
	// Plan builds the task graph for the requests without running anything.
	Plan(ctx context.Context, requests []taskgraph.Request, overrides map[string]any) (*taskgraph.TaskGraph, error)
	// Execute starts running a planned graph.
	Execute(ctx context.Context, g *taskgraph.TaskGraph, parallel int) (*scheduler.Run, error)
	// Store exposes the live task states.
	Store() taskstore.Store
	// Close releases any resources held by the session.
	Close(ctx context.Context) error
}
