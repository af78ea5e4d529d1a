// Package registry maps executor names, as written in target configurations,
// to the Go code that runs them.
//
// Modules register their executors once at startup. Before a run starts, the
// registry is validated against the task graph so that a typo in an executor
// name fails fast instead of halfway through the run.
package registry
