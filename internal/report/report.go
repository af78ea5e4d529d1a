// Package report renders planned task graphs and run summaries for humans
// and machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/vk/taskgrid/internal/scheduler"
	"github.com/vk/taskgrid/internal/taskgraph"
	"github.com/vk/taskgrid/internal/taskstore"
	"gopkg.in/yaml.v3"
)

// Format selects the graph encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown graph format %q, expected yaml or json", s)
	}
}

// WriteGraph encodes the task graph as {tasks, dependencies, roots}.
func WriteGraph(w io.Writer, g *taskgraph.TaskGraph, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
}

// Printer writes run summaries.
type Printer struct {
	W io.Writer
	// Color enables ANSI colors.
	Color bool
}

func (p *Printer) paint(c color.Color, s string) string {
	if !p.Color {
		return s
	}
	return c.Sprint(s)
}

// statusColor picks the color of a status label.
func statusColor(st taskstore.Status) color.Color {
	switch st {
	case taskstore.StatusSucceeded:
		return color.FgGreen
	case taskstore.StatusFailed:
		return color.FgRed
	case taskstore.StatusSkipped, taskstore.StatusCancelled:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

// WriteSummary prints one line per task in start order, followed by skipped
// tasks, and a closing line explaining failures.
func (p *Printer) WriteSummary(s *scheduler.Summary) error {
	var b strings.Builder

	listed := make(map[string]bool, len(s.Results))
	line := func(id string) {
		res := s.Results[id]
		listed[id] = true
		fmt.Fprintf(&b, "%-10s %s", p.paint(statusColor(res.Status), res.Status.String()), id)
		if !res.StartedAt.IsZero() && !res.EndedAt.IsZero() {
			fmt.Fprintf(&b, " (%s)", res.EndedAt.Sub(res.StartedAt).Round(time.Millisecond))
		}
		b.WriteString("\n")
	}
	for _, id := range s.StartOrder {
		line(id)
	}
	for _, id := range s.Skipped() {
		if !listed[id] {
			line(id)
		}
	}

	for _, id := range s.Failed() {
		res := s.Results[id]
		if res.TerminalOutput != "" {
			fmt.Fprintf(&b, "\n%s output:\n%s", p.paint(color.FgRed, id), indent(res.TerminalOutput))
		}
		if res.Err != nil {
			fmt.Fprintf(&b, "%s error: %v\n", p.paint(color.FgRed, id), res.Err)
		}
	}

	b.WriteString("\n")
	b.WriteString(Explain(s, p.paint(color.FgRed, "✖"), p.paint(color.FgGreen, "✔")))
	b.WriteString("\n")

	_, err := io.WriteString(p.W, b.String())
	return err
}

// Explain returns the one-line outcome of a run, for example
// "lib:build failed; app:build, web:build were skipped because of lib:build".
func Explain(s *scheduler.Summary, failMark, okMark string) string {
	failed := s.Failed()
	if len(failed) == 0 {
		if s.Success {
			return fmt.Sprintf("%s Successfully ran %d task(s)", okMark, len(s.StartOrder))
		}
		skipped := s.Skipped()
		return fmt.Sprintf("%s Run did not complete; %s %s skipped", failMark, strings.Join(skipped, ", "), wereOrWas(len(skipped)))
	}

	var parts []string
	for _, f := range failed {
		part := f + " failed"
		if dependents := skippedBecauseOf(s, f); len(dependents) > 0 {
			part += fmt.Sprintf("; %s %s skipped because of %s", strings.Join(dependents, ", "), wereOrWas(len(dependents)), f)
		}
		parts = append(parts, part)
	}
	return failMark + " " + strings.Join(parts, "; ")
}

func skippedBecauseOf(s *scheduler.Summary, cause string) []string {
	var out []string
	for _, id := range s.Skipped() {
		var se *scheduler.SkippedError
		if errors.As(s.Results[id].Err, &se) && se.Cause == cause {
			out = append(out, id)
		}
	}
	return out
}

func wereOrWas(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
