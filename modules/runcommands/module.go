// Package runcommands implements the run-commands executor: it runs one or
// more shell commands for a task, sequentially or in parallel.
//
// A task whose output must reach a certain state before dependents may start
// sets readyWhen; the executor reports the task as started once that text
// appears in its output. Otherwise the task counts as started as soon as the
// first command is launched.
package runcommands

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/registry"
	"golang.org/x/sync/errgroup"
)

// waitDelay bounds how long a killed command may keep its output pipes open
// through orphaned children.
const waitDelay = 2 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(config.RunCommandsExecutor, &Executor{})
}

// Executor runs shell commands.
type Executor struct{}

var _ registry.Executor = (*Executor)(nil)

// Run starts the commands and reports on the returned channel.
func (e *Executor) Run(ctx context.Context, raw map[string]any, ec *registry.Context) <-chan registry.Output {
	out := make(chan registry.Output, 2)

	go func() {
		defer close(out)
		logger := ctxlog.FromContext(ctx)

		opts, err := parseOptions(raw)
		if err != nil {
			out <- registry.Output{Err: err}
			return
		}

		var once sync.Once
		markStarted := func() {
			once.Do(func() { out <- registry.Output{Success: true} })
		}

		buf := &outputBuffer{readyWhen: opts.ReadyWhen}
		if opts.ReadyWhen != "" {
			buf.onReady = markStarted
		}

		dir := ec.ProjectDir()
		if opts.Cwd != "" {
			dir = registry.ProjectDir(ec.WorkspaceRoot, opts.Cwd)
		}
		env := environ(os.Environ(), ec.Env, opts.Env)

		commands := make([]string, len(opts.Commands))
		for i, c := range opts.Commands {
			commands[i] = withArgs(c, opts.Args)
		}

		runOne := func(ctx context.Context, command string) error {
			logger.Debug("Running command.", "command", command, "cwd", dir)
			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = dir
			cmd.Env = env
			cmd.Stdout = buf
			cmd.Stderr = buf
			cmd.WaitDelay = waitDelay
			if err := cmd.Start(); err != nil {
				return fmt.Errorf("starting %q: %w", command, err)
			}
			if opts.ReadyWhen == "" {
				markStarted()
			}
			if err := cmd.Wait(); err != nil {
				return fmt.Errorf("command %q: %w", command, err)
			}
			return nil
		}

		if opts.Parallel && len(commands) > 1 {
			g, gctx := errgroup.WithContext(ctx)
			for _, c := range commands {
				g.Go(func() error { return runOne(gctx, c) })
			}
			err = g.Wait()
		} else {
			for _, c := range commands {
				if err = runOne(ctx, c); err != nil {
					break
				}
			}
		}

		output := buf.String()
		if err != nil {
			logger.Debug("Commands failed.", "error", err)
			out <- registry.Output{Success: false, TerminalOutput: output, Err: err}
			return
		}
		out <- registry.Output{Success: true, TerminalOutput: output}
	}()

	return out
}

func withArgs(command, args string) string {
	if args == "" {
		return command
	}
	return command + " " + args
}

// outputBuffer collects command output and fires onReady once the readyWhen
// text shows up.
type outputBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	readyWhen string
	onReady   func()
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	n, err := b.buf.Write(p)
	var fire func()
	if b.onReady != nil && strings.Contains(b.buf.String(), b.readyWhen) {
		fire, b.onReady = b.onReady, nil
	}
	b.mu.Unlock()
	if fire != nil {
		fire()
	}
	return n, err
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
