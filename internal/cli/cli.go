package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/taskgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("taskgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
taskgrid - Run monorepo targets as a dependency-ordered task graph.

Usage:
  taskgrid [options] PROJECT:TARGET[:CONFIGURATION]...
  taskgrid [options] --target TARGET [--projects a,b]

Arguments:
  PROJECT:TARGET[:CONFIGURATION]
    Task to run, together with everything it depends on.

Options:
`)
		flagSet.PrintDefaults()
	}

	var (
		overrides = overridesFlag{}
		projects  listFlag
	)
	workspace := flagSet.String("workspace", ".", "Workspace root directory.")
	flagSet.StringVar(workspace, "w", ".", "Workspace root directory (shorthand).")
	target := flagSet.String("target", "", "Run this target on every project declaring it.")
	flagSet.StringVar(target, "t", "", "Run this target on every project declaring it (shorthand).")
	flagSet.Var(&projects, "projects", "Comma-separated projects to restrict --target to.")
	configuration := flagSet.String("configuration", "", "Configuration for tasks that do not name one.")
	flagSet.StringVar(configuration, "c", "", "Configuration (shorthand).")
	flagSet.Var(overrides, "set", "Option override key=value, repeatable. Dotted keys nest.")
	parallel := flagSet.Int("parallel", 0, "Maximum number of concurrent tasks. 0 uses TASKGRID_PARALLEL, workspace.hcl or 3.")
	graph := flagSet.String("graph", "", "Print the task graph as 'yaml' or 'json' instead of running it.")
	healthPort := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormat := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevel := flagSet.String("log-level", "", "Logging level: 'debug', 'info', 'warn', 'error'. Defaults to TASKGRID_LOG_LEVEL or 'info'.")
	useColor := flagSet.Bool("color", false, "Colorize the run summary.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 && *target == "" {
		slog.Debug("Nothing to run, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	format := strings.ToLower(*logFormat)
	if format != "text" && format != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	var ov map[string]any
	if len(overrides) > 0 {
		ov = overrides
	}
	var requests []string
	if flagSet.NArg() > 0 {
		requests = flagSet.Args()
	}

	cfg, err := app.NewConfig(app.Config{
		WorkspaceRoot:   *workspace,
		Requests:        requests,
		Target:          *target,
		Projects:        projects,
		Configuration:   *configuration,
		Overrides:       ov,
		Parallel:        *parallel,
		GraphFormat:     strings.ToLower(*graph),
		LogFormat:       format,
		LogLevel:        strings.ToLower(*logLevel),
		HealthcheckPort: *healthPort,
		Color:           *useColor,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}
