// Package noop implements an executor that succeeds immediately. Workspaces
// use it for aggregate targets that only exist to group dependencies.
package noop

import (
	"context"

	"github.com/vk/taskgrid/internal/registry"
)

// Name is the executor name.
const Name = "noop"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(Name, registry.ExecutorFunc(func(context.Context, map[string]any, *registry.Context) <-chan registry.Output {
		ch := make(chan registry.Output, 1)
		ch <- registry.Output{Success: true}
		close(ch)
		return ch
	}))
}
