package testutil

import "github.com/vk/taskgrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single executor.
type SimpleModule struct {
	Name     string
	Executor registry.Executor
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Name != "" && m.Executor != nil {
		r.Register(m.Name, m.Executor)
	}
}
