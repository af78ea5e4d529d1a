// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load the
// workspace, plan the task graph, run it and report. It is decoupled from
// any specific entrypoint like a CLI or server.
package app
