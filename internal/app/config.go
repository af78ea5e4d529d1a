package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/vk/taskgrid/internal/report"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskid"
)

// Environment variables consulted when the matching flag is not set.
const (
	EnvParallel = "TASKGRID_PARALLEL"
	EnvLogLevel = "TASKGRID_LOG_LEVEL"
)

// DefaultParallel applies when neither flags, the environment nor
// workspace.hcl set a limit.
const DefaultParallel = 3

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkspaceRoot string

	// Requests are task ids ("project:target[:configuration]").
	Requests []string
	// Target with optional Projects selects every project declaring it.
	Target   string
	Projects []string
	// Configuration applies to requests that do not name one.
	Configuration string
	Overrides     map[string]any

	// Parallel zero means "not set".
	Parallel int
	// GraphFormat, when set, prints the planned graph instead of running it.
	GraphFormat string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Color           bool
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkspaceRoot == "" {
		return nil, errors.New("WorkspaceRoot is a required configuration field and cannot be empty")
	}
	if len(cfg.Requests) == 0 && cfg.Target == "" {
		return nil, errors.New("nothing to run: pass task ids or --target")
	}
	if len(cfg.Requests) > 0 && cfg.Target != "" {
		return nil, errors.New("task ids and --target are mutually exclusive")
	}
	if len(cfg.Projects) > 0 && cfg.Target == "" {
		return nil, errors.New("--projects requires --target")
	}
	if cfg.Parallel < 0 {
		return nil, fmt.Errorf("parallel must not be negative, got %d", cfg.Parallel)
	}
	if cfg.GraphFormat != "" {
		if _, err := report.ParseFormat(cfg.GraphFormat); err != nil {
			return nil, err
		}
	}
	if cfg.LogLevel != "" {
		if _, err := parseLevel(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	for _, r := range cfg.Requests {
		if _, err := taskid.Parse(r); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ApplyEnvDefaults fills unset fields from the process environment, then
// from the workspace .env file.
func (c *Config) ApplyEnvDefaults() error {
	fileEnv := map[string]string{}
	path := filepath.Join(c.WorkspaceRoot, ".env")
	if _, err := os.Stat(path); err == nil {
		if fileEnv, err = godotenv.Read(path); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	}

	if c.Parallel == 0 {
		if v := lookup(EnvParallel); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("%s must be a positive integer, got %q", EnvParallel, v)
			}
			c.Parallel = n
		}
	}
	if c.LogLevel == "" {
		if v := lookup(EnvLogLevel); v != "" {
			if _, err := parseLevel(v); err != nil {
				return fmt.Errorf("%s: %w", EnvLogLevel, err)
			}
			c.LogLevel = v
		}
	}
	return nil
}

// TaskRequests parses the positional task ids.
func (c *Config) TaskRequests() ([]taskgraph.Request, error) {
	out := make([]taskgraph.Request, 0, len(c.Requests))
	for _, raw := range c.Requests {
		id, err := taskid.Parse(raw)
		if err != nil {
			return nil, err
		}
		conf := id.Configuration
		if conf == "" {
			conf = c.Configuration
		}
		out = append(out, taskgraph.Request{Project: id.Project, Target: id.Target, Configuration: conf})
	}
	return out, nil
}
