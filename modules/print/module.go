// Package print implements the print executor. It writes the task's options
// as sorted key/value lines, which is handy for checking what a target
// resolved to.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/registry"
)

// Name is the executor name.
const Name = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means stdout.
	Out io.Writer
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.Register(Name, registry.ExecutorFunc(func(ctx context.Context, options map[string]any, ec *registry.Context) <-chan registry.Output {
		ch := make(chan registry.Output, 1)
		text := Format(ec.TaskID, options)
		ctxlog.FromContext(ctx).Info("Printing options.", "count", len(options))
		_, err := io.WriteString(out, text)
		ch <- registry.Output{Success: err == nil, TerminalOutput: text, Err: err}
		close(ch)
		return ch
	}))
}

// Format renders options as "key = value" lines under a task header.
func Format(taskID string, options map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", taskID)
	if len(options) == 0 {
		b.WriteString("      (null)\n")
		return b.String()
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "      %s = %#v\n", k, options[k])
	}
	return b.String()
}
