package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/inmemorystore"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
)

// Options configures a run.
type Options struct {
	// Parallel bounds the number of tasks holding a slot. Values below one
	// mean one.
	Parallel int
	// Store mirrors every transition. Nil selects an in-memory store.
	Store taskstore.Store
}

type eventKind int

const (
	eventStarted eventKind = iota
	eventFinished
)

type event struct {
	id     string
	kind   eventKind
	result Result
}

// Run is a scheduling run in progress.
type Run struct {
	graph    *taskgraph.TaskGraph
	runner   Runner
	store    taskstore.Store
	parallel int
	logger   *slog.Logger

	events chan event
	waitCh chan struct{}
	doneCh chan struct{}

	waitSummary  *Summary
	finalSummary *Summary

	// Everything below is owned by the coordinator goroutine.
	status     map[string]taskstore.Status
	started    map[string]bool
	holdsSlot  map[string]bool
	settled    map[string]bool
	ready      map[string]bool
	results    map[string]*Result
	index      map[string]int
	startOrder []string
	occupied   int
	inFlight   int
	unsettled  int
	cancelled  bool
	released   bool
}

// Execute runs the graph and returns once every non-continuous task is
// terminal and every continuous task has started. Continuous tasks keep
// running until ctx is cancelled.
func Execute(ctx context.Context, g *taskgraph.TaskGraph, runner Runner, opts Options) *Summary {
	return Start(ctx, g, runner, opts).Wait()
}

// Start begins running the graph in the background.
func Start(ctx context.Context, g *taskgraph.TaskGraph, runner Runner, opts Options) *Run {
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	store := opts.Store
	if store == nil {
		store = inmemorystore.New()
	}

	r := &Run{
		graph:     g,
		runner:    runner,
		store:     store,
		parallel:  parallel,
		logger:    ctxlog.FromContext(ctx),
		events:    make(chan event),
		waitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		status:    make(map[string]taskstore.Status, len(g.Tasks)),
		started:   make(map[string]bool),
		holdsSlot: make(map[string]bool),
		settled:   make(map[string]bool, len(g.Tasks)),
		ready:     make(map[string]bool),
		results:   make(map[string]*Result, len(g.Tasks)),
		index:     make(map[string]int, len(g.Tasks)),
		unsettled: len(g.Order()),
	}
	for i, id := range g.Order() {
		r.index[id] = i
	}

	go r.coordinate(ctx)
	return r
}

// Wait blocks until every non-continuous task is terminal and every
// continuous task has started, and returns the summary at that moment.
func (r *Run) Wait() *Summary {
	<-r.waitCh
	return r.waitSummary
}

// Done is closed once every task, continuous ones included, has stopped.
func (r *Run) Done() <-chan struct{} {
	return r.doneCh
}

// Summary blocks until Done and returns the final summary.
func (r *Run) Summary() *Summary {
	<-r.doneCh
	return r.finalSummary
}

// Store returns the store mirroring the run's state.
func (r *Run) Store() taskstore.Store {
	return r.store
}

func (r *Run) coordinate(ctx context.Context) {
	defer close(r.doneCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Debug("Scheduler started.", "tasks", len(r.graph.Tasks), "parallel", r.parallel)
	for _, id := range r.graph.Order() {
		r.setStatus(ctx, id, taskstore.StatusPending)
	}
	for _, id := range r.graph.Order() {
		r.evaluate(ctx, id)
	}

	for {
		if !r.cancelled && ctx.Err() != nil {
			r.cancel(ctx)
		}
		if !r.cancelled {
			r.dispatch(runCtx)
		}
		r.maybeRelease()
		if r.inFlight == 0 {
			break
		}

		var cancelCh <-chan struct{}
		if !r.cancelled {
			cancelCh = ctx.Done()
		}
		select {
		case ev := <-r.events:
			r.handle(runCtx, ev)
		case <-cancelCh:
			r.cancel(ctx)
		}
	}

	r.finalSummary = r.summary()
	r.unsettled = 0
	r.maybeRelease()
	r.logger.Debug("Scheduler finished.", "success", r.finalSummary.Success)
}

// dispatch launches ready tasks while slots are free.
func (r *Run) dispatch(ctx context.Context) {
	for r.occupied < r.parallel {
		id := r.pickReady()
		if id == "" {
			return
		}
		r.launch(ctx, id)
	}
}

// pickReady returns the ready task with the most pending dependents, ties
// broken by discovery order.
func (r *Run) pickReady() string {
	best, bestScore := "", -1
	for id := range r.ready {
		score := 0
		for _, d := range r.graph.Dependents(id) {
			if r.status[d] == taskstore.StatusPending {
				score++
			}
		}
		if score > bestScore || (score == bestScore && r.index[id] < r.index[best]) {
			best, bestScore = id, score
		}
	}
	return best
}

func (r *Run) launch(ctx context.Context, id string) {
	task := r.graph.Tasks[id]
	delete(r.ready, id)
	r.setStatus(ctx, id, taskstore.StatusRunning)
	r.results[id] = &Result{TaskID: id, Status: taskstore.StatusRunning, StartedAt: time.Now()}
	r.startOrder = append(r.startOrder, id)
	r.holdsSlot[id] = true
	r.occupied++
	r.inFlight++

	r.logger.Info("Starting task.", "task_id", id, "executor", task.Executor, "continuous", task.Continuous)

	go func() {
		var once sync.Once
		notify := func() {
			once.Do(func() { r.events <- event{id: id, kind: eventStarted} })
		}
		res := r.invoke(ctx, task, notify)
		// Late calls to started must not reach a finished coordinator.
		once.Do(func() {})
		r.events <- event{id: id, kind: eventFinished, result: res}
	}()
}

func (r *Run) invoke(ctx context.Context, task *taskgraph.Task, started func()) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Success: false, Err: fmt.Errorf("%w: %v", ErrExecutorPanic, p)}
		}
	}()
	return r.runner.Run(ctx, task, started)
}

func (r *Run) handle(ctx context.Context, ev event) {
	task := r.graph.Tasks[ev.id]

	switch ev.kind {
	case eventStarted:
		if !task.Continuous || r.started[ev.id] {
			return
		}
		r.started[ev.id] = true
		r.releaseSlot(ev.id)
		r.settle(ev.id)
		r.logger.Info("Continuous task started.", "task_id", ev.id)
		for _, d := range r.graph.Dependents(ev.id) {
			r.evaluate(ctx, d)
		}

	case eventFinished:
		if !r.cancelled && ctx.Err() != nil {
			r.cancel(ctx)
		}
		r.inFlight--
		r.releaseSlot(ev.id)

		res := r.results[ev.id]
		res.Success = ev.result.Success
		res.TerminalOutput = ev.result.TerminalOutput
		res.Err = ev.result.Err
		res.EndedAt = time.Now()

		switch {
		case res.Success:
			res.Status = taskstore.StatusSucceeded
			res.Err = nil
		case ctx.Err() != nil:
			res.Status = taskstore.StatusCancelled
		default:
			res.Status = taskstore.StatusFailed
		}
		if !res.Success && res.Err == nil {
			res.Err = ErrTaskFailed
		}

		r.setStatus(ctx, ev.id, res.Status)
		if res.TerminalOutput != "" {
			r.storeErr(r.store.SetOutput(ctx, ev.id, res.TerminalOutput))
		}
		if res.Err != nil {
			r.storeErr(r.store.SetError(ctx, ev.id, res.Err))
		}
		r.settle(ev.id)

		logger := r.logger.With("task_id", ev.id, "status", res.Status.String(), "duration", res.EndedAt.Sub(res.StartedAt))
		if res.Status == taskstore.StatusFailed {
			logger.Error("Task failed.", "error", res.Err)
		} else {
			logger.Info("Task finished.")
		}

		if res.Status != taskstore.StatusSucceeded && !r.started[ev.id] {
			r.skipDependents(ctx, ev.id, ev.id)
			return
		}
		for _, d := range r.graph.Dependents(ev.id) {
			r.evaluate(ctx, d)
		}
	}
}

// evaluate moves a pending task to ready when its dependencies allow it, or
// skips it when one of them can no longer be satisfied.
func (r *Run) evaluate(ctx context.Context, id string) {
	if r.status[id] != taskstore.StatusPending {
		return
	}
	satisfied := true
	for _, dep := range r.graph.Dependencies[id] {
		switch {
		case r.satisfies(dep):
		case r.status[dep].IsTerminal():
			cause := dep
			if res, ok := r.results[dep]; ok {
				if skipped, ok := res.Err.(*SkippedError); ok && skipped.Cause != "" {
					cause = skipped.Cause
				}
			}
			r.skip(ctx, id, &SkippedError{Cause: cause})
			return
		default:
			satisfied = false
		}
	}
	if satisfied {
		r.setStatus(ctx, id, taskstore.StatusReady)
		r.ready[id] = true
	}
}

// satisfies reports whether dep no longer holds back its dependents.
func (r *Run) satisfies(dep string) bool {
	if r.status[dep] == taskstore.StatusSucceeded {
		return true
	}
	return r.graph.Tasks[dep].Continuous && r.started[dep]
}

func (r *Run) skipDependents(ctx context.Context, id, cause string) {
	for _, d := range r.graph.Dependents(id) {
		r.skip(ctx, d, &SkippedError{Cause: cause})
	}
}

// skip marks a task and, transitively, its dependents as skipped. It uses an
// explicit worklist so long chains do not grow the stack.
func (r *Run) skip(ctx context.Context, id string, reason *SkippedError) {
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		st := r.status[cur]
		if st != taskstore.StatusPending && st != taskstore.StatusReady {
			continue
		}
		delete(r.ready, cur)
		r.setStatus(ctx, cur, taskstore.StatusSkipped)
		r.results[cur] = &Result{TaskID: cur, Status: taskstore.StatusSkipped, Err: reason}
		r.storeErr(r.store.SetError(ctx, cur, reason))
		r.settle(cur)
		r.logger.Warn("Skipping task.", "task_id", cur, "reason", reason.Error())
		queue = append(queue, r.graph.Dependents(cur)...)
	}
}

// cancel stops dispatching and skips every task that has not started.
func (r *Run) cancel(ctx context.Context) {
	r.cancelled = true
	r.logger.Warn("Run cancelled, skipping tasks that have not started.", "error", ctx.Err())
	for _, id := range r.graph.Order() {
		st := r.status[id]
		if st == taskstore.StatusPending || st == taskstore.StatusReady {
			r.skip(ctx, id, &SkippedError{Err: ctx.Err()})
		}
	}
}

func (r *Run) releaseSlot(id string) {
	if r.holdsSlot[id] {
		r.holdsSlot[id] = false
		r.occupied--
	}
}

// settle records that a task no longer holds Wait back.
func (r *Run) settle(id string) {
	if !r.settled[id] {
		r.settled[id] = true
		r.unsettled--
	}
}

func (r *Run) maybeRelease() {
	if r.released || r.unsettled > 0 {
		return
	}
	r.released = true
	r.waitSummary = r.summary()
	close(r.waitCh)
}

func (r *Run) setStatus(ctx context.Context, id string, status taskstore.Status) {
	r.status[id] = status
	r.storeErr(r.store.SetStatus(ctx, id, status))
}

func (r *Run) storeErr(err error) {
	if err != nil {
		r.logger.Warn("Failed to mirror task state.", "error", err)
	}
}

func (r *Run) summary() *Summary {
	s := &Summary{
		Success:    true,
		Results:    make(map[string]*Result, len(r.graph.Tasks)),
		StartOrder: append([]string(nil), r.startOrder...),
		order:      r.graph.Order(),
	}
	for _, id := range r.graph.Order() {
		res, ok := r.results[id]
		if !ok {
			res = &Result{TaskID: id, Status: r.status[id]}
		}
		cp := *res
		s.Results[id] = &cp
		if cp.Status == taskstore.StatusFailed {
			s.Success = false
		}
	}
	for _, id := range r.graph.Roots {
		st := s.Results[id].Status
		if st == taskstore.StatusSucceeded {
			continue
		}
		if r.graph.Tasks[id].Continuous && r.started[id] {
			continue
		}
		s.Success = false
	}
	return s
}
