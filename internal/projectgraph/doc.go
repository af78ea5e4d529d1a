// Package projectgraph builds the typed project dependency graph of a
// workspace.
//
// Nodes are projects; edges point from a dependent project to the project it
// depends on and carry a config.DependencyType. Unlike the task graph, the
// project graph may contain cycles: they are reported by Cycles and logged,
// never treated as an error, and every traversal offered here terminates on
// cyclic input.
package projectgraph
