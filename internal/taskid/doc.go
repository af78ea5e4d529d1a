// internal/taskid/doc.go

/*
Package taskid provides a structured, type-safe representation for task
identifiers, based on the canonical format `project:target[:configuration]`.

The identifier is deterministic: the same project, target and configuration
always produce the same string, which is what lets the task graph builder
intern tasks discovered through different dependency paths.

This package enforces the identifier schema and centralizes all
formatting and parsing logic.
*/
package taskid
