package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
)

var (
	// ErrSkipped marks tasks that never ran.
	ErrSkipped = errors.New("skipped")
	// ErrTaskFailed is attached to unsuccessful results that carry no error.
	ErrTaskFailed = errors.New("task failed")
	// ErrExecutorPanic wraps a panic recovered from a runner.
	ErrExecutorPanic = errors.New("executor panicked")
)

// Runner executes a single task. Implementations call started once the task
// is up; for continuous tasks that is the signal that satisfies dependents.
// Run returns when the task reached a terminal state.
type Runner interface {
	Run(ctx context.Context, task *taskgraph.Task, started func()) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task *taskgraph.Task, started func()) Result

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, task *taskgraph.Task, started func()) Result {
	return f(ctx, task, started)
}

// Result is the outcome of one task. Runners fill Success, TerminalOutput
// and Err; the scheduler fills the rest.
type Result struct {
	TaskID         string           `json:"taskId" yaml:"taskId"`
	Status         taskstore.Status `json:"status" yaml:"status"`
	Success        bool             `json:"success" yaml:"success"`
	TerminalOutput string           `json:"terminalOutput,omitempty" yaml:"terminalOutput,omitempty"`
	Err            error            `json:"-" yaml:"-"`
	StartedAt      time.Time        `json:"startedAt,omitzero" yaml:"startedAt,omitempty"`
	EndedAt        time.Time        `json:"endedAt,omitzero" yaml:"endedAt,omitempty"`
}

// SkippedError explains why a task never ran: a failed dependency, or the
// run being cancelled.
type SkippedError struct {
	// Cause is the failed task the skip originates from, if any.
	Cause string
	Err   error
}

func (e *SkippedError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("skipped because %s did not succeed", e.Cause)
	}
	if e.Err != nil {
		return fmt.Sprintf("skipped: %v", e.Err)
	}
	return ErrSkipped.Error()
}

// Unwrap exposes both ErrSkipped and the underlying reason.
func (e *SkippedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSkipped}
	}
	return []error{ErrSkipped, e.Err}
}

// Summary is the outcome of a run.
type Summary struct {
	// Success is true when no task failed and every requested task
	// succeeded, or is a continuous task that started.
	Success bool `json:"success" yaml:"success"`
	// Results has one entry per task, including skipped ones.
	Results map[string]*Result `json:"results" yaml:"results"`
	// StartOrder lists task ids in the order they were dispatched.
	StartOrder []string `json:"startOrder" yaml:"startOrder"`

	order []string
}

// WithStatus returns the ids of the tasks in the given state, in graph
// discovery order.
func (s *Summary) WithStatus(status taskstore.Status) []string {
	var out []string
	for _, id := range s.order {
		if r, ok := s.Results[id]; ok && r.Status == status {
			out = append(out, id)
		}
	}
	return out
}

// Failed returns the failed task ids.
func (s *Summary) Failed() []string {
	return s.WithStatus(taskstore.StatusFailed)
}

// Skipped returns the skipped task ids.
func (s *Summary) Skipped() []string {
	return s.WithStatus(taskstore.StatusSkipped)
}
