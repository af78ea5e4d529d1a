// Package scheduler runs a task graph with bounded parallelism.
//
// # How It Works
//
// A single coordinator goroutine owns the state of every task and is the
// only place where transitions happen:
//
//	pending → ready → running → succeeded | failed | cancelled
//	pending → skipped
//
// Workers run tasks on their own goroutines and report back over a channel;
// the coordinator blocks on that channel (or on cancellation) and never
// polls. Among ready tasks it prefers the one with the most pending
// dependents, then the one discovered first by the graph builder.
//
// # Continuous Tasks
//
// A continuous task (serve, watch) satisfies its dependents as soon as it
// reports that it started, and gives its slot back at that moment. Wait
// returns once every other task is terminal and every continuous task has
// started; continuous tasks keep running until the context passed to Start
// is cancelled.
package scheduler
