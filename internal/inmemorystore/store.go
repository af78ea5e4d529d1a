// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the taskstore.Store interface.
//
// # Concurrency Model
//
// The store uses sync.Map because the workload fits it well:
//   - **Stable Keys:** every task id is known before the run starts
//   - **Independent Values:** each task's state changes on its own
//   - **Concurrent Reads + Writes:** reporting reads while the scheduler writes
//
// For runs whose state must survive the process, a different implementation
// would be needed.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/taskgrid/internal/taskstore"
)

// Store is an in-memory implementation of taskstore.Store.
//
// The store maintains three independent sync.Maps:
//   - states: task id to taskstore.Status
//   - outputs: task id to terminal output
//   - errors: task id to the failure or skip cause
type Store struct {
	states  sync.Map // Key: task id, Value: taskstore.Status
	outputs sync.Map // Key: task id, Value: string
	errors  sync.Map // Key: task id, Value: error
}

// New creates a new, empty in-memory task state store.
func New() taskstore.Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific task.
func (s *Store) SetStatus(ctx context.Context, id string, status taskstore.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the execution status of a specific task.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, id string) (taskstore.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return taskstore.StatusPending, nil
	}
	return status.(taskstore.Status), nil
}

// SetOutput records the terminal output of a task.
func (s *Store) SetOutput(ctx context.Context, id string, output string) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded terminal output of a task.
func (s *Store) GetOutput(ctx context.Context, id string) (string, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return "", nil
	}
	return output.(string), nil
}

// SetError records the failure error of a task.
func (s *Store) SetError(ctx context.Context, id string, taskErr error) error {
	if taskErr == nil {
		s.errors.Delete(id)
		return nil
	}
	s.errors.Store(id, taskErr)
	return nil
}

// GetError retrieves the recorded error of a task.
func (s *Store) GetError(ctx context.Context, id string) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// Snapshot copies every task that has a recorded status.
func (s *Store) Snapshot(ctx context.Context) (map[string]taskstore.Entry, error) {
	out := make(map[string]taskstore.Entry)
	s.states.Range(func(key, value any) bool {
		id := key.(string)
		entry := taskstore.Entry{Status: value.(taskstore.Status)}
		if output, ok := s.outputs.Load(id); ok {
			entry.Output = output.(string)
		}
		if err, ok := s.errors.Load(id); ok {
			entry.Error = err.(error).Error()
		}
		out[id] = entry
		return true
	})
	return out, nil
}
