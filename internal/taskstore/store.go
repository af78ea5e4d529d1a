// Package taskstore defines the interface for storing and retrieving the
// dynamic, mutable execution state of tasks during a run.
//
// # Why Task Store Exists
//
// The task store isolates **mutable execution state** (status, terminal
// output, errors) from the **immutable task graph** built by the taskgraph
// package. The scheduler owns every state transition; the store is a mirror
// of those transitions that other collaborators can read while the run is in
// flight, such as the status endpoint of the app or the final report.
//
// # Lifecycle and Usage
//
// The task store is:
//  1. **Created** once per run (ephemeral, not persistent across runs)
//  2. **Initialized** with every task in Pending status before dispatch starts
//  3. **Mutated** by the scheduler coordinator as tasks change state
//  4. **Queried** concurrently by reporting collaborators
//  5. **Discarded** when the run ends
//
// # State Transitions
//
// Tasks follow this lifecycle:
//
//	Pending → Ready → Running → Succeeded | Failed | Cancelled
//	Pending → Skipped
package taskstore

import (
	"context"
	"fmt"
)

// Status is the execution state of a task.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
	// StatusCancelled is the state of a continuous task stopped by
	// cancellation after it started.
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusReady:     "ready",
	StatusRunning:   "running",
	StatusSucceeded: "succeeded",
	StatusFailed:    "failed",
	StatusSkipped:   "skipped",
	StatusCancelled: "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// Entry is a point-in-time view of one task.
type Entry struct {
	Status Status `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Store is the interface for managing the mutable execution state of tasks.
//
// This interface does NOT manage the task graph structure. That
// responsibility belongs to taskgraph.TaskGraph.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes: the
// scheduler writes while reporting collaborators read.
//
// # Typical Implementation
//
// See internal/inmemorystore for the reference in-memory implementation
// using sync.Map.
type Store interface {
	// SetStatus updates the execution status of a task.
	SetStatus(ctx context.Context, id string, status Status) error

	// GetStatus retrieves the current execution status of a task.
	//
	// Returns StatusPending if no status has been set for this task yet.
	GetStatus(ctx context.Context, id string) (Status, error)

	// SetOutput records the terminal output of a task.
	SetOutput(ctx context.Context, id string, output string) error

	// GetOutput retrieves the recorded terminal output, or "" if none.
	GetOutput(ctx context.Context, id string) (string, error)

	// SetError records why a task failed or was skipped.
	SetError(ctx context.Context, id string, taskErr error) error

	// GetError retrieves the recorded error, or nil if none.
	GetError(ctx context.Context, id string) (error, error)

	// Snapshot returns a copy of every recorded task state.
	Snapshot(ctx context.Context) (map[string]Entry, error)
}
