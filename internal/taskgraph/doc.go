// Package taskgraph defines the task graph and the builder that expands
// requested project targets into it.
//
// A Task is one concrete (project, target, configuration) invocation. Tasks
// are interned by their identifier: every path that reaches the same triple
// shares one node and only contributes edges. The builder expands dependsOn
// declarations breadth-first, then verifies that the result is acyclic.
package taskgraph
