package runcommands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/registry"
)

func drain(ch <-chan registry.Output) []registry.Output {
	var outs []registry.Output
	for o := range ch {
		outs = append(outs, o)
	}
	return outs
}

func newContext(t *testing.T) *registry.Context {
	t.Helper()
	return &registry.Context{WorkspaceRoot: t.TempDir(), ProjectName: "lib", TargetName: "build", TaskID: "lib:build"}
}

func TestExecutor_Success(t *testing.T) {
	// --- Arrange ---
	ec := newContext(t)
	ec.Env = map[string]string{"GREETING": "hello"}

	// --- Act ---
	outs := drain((&Executor{}).Run(context.Background(), map[string]any{
		"command": "echo $GREETING $TARGET_ENV",
		"env":     map[string]any{"TARGET_ENV": "world"},
	}, ec))

	// --- Assert ---
	require.Len(t, outs, 2)
	assert.True(t, outs[0].Success, "first value marks the task as started")
	last := outs[len(outs)-1]
	assert.True(t, last.Success)
	assert.NoError(t, last.Err)
	assert.Equal(t, "hello world\n", last.TerminalOutput)
}

func TestExecutor_Failure(t *testing.T) {
	outs := drain((&Executor{}).Run(context.Background(), map[string]any{"command": "echo oops; exit 3"}, newContext(t)))

	last := outs[len(outs)-1]
	assert.False(t, last.Success)
	assert.ErrorContains(t, last.Err, "exit status 3")
	assert.Equal(t, "oops\n", last.TerminalOutput)
}

func TestExecutor_SequentialCommandsStopAtFirstFailure(t *testing.T) {
	outs := drain((&Executor{}).Run(context.Background(), map[string]any{
		"commands": []any{"echo a", map[string]any{"command": "false"}, "echo c"},
		"parallel": false,
	}, newContext(t)))

	last := outs[len(outs)-1]
	assert.False(t, last.Success)
	assert.Equal(t, "a\n", last.TerminalOutput)
}

func TestExecutor_ArgsAreAppended(t *testing.T) {
	outs := drain((&Executor{}).Run(context.Background(), map[string]any{
		"command": "echo",
		"args":    []any{"--prod", "--verbose"},
	}, newContext(t)))

	assert.Equal(t, "--prod --verbose\n", outs[len(outs)-1].TerminalOutput)
}

func TestExecutor_InvalidOptions(t *testing.T) {
	outs := drain((&Executor{}).Run(context.Background(), map[string]any{}, newContext(t)))

	require.Len(t, outs, 1)
	assert.ErrorIs(t, outs[0].Err, errNoCommand)
}

func TestExecutor_ReadyWhen(t *testing.T) {
	// --- Arrange ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ec := newContext(t)
	ec.Continuous = true

	// --- Act ---
	ch := (&Executor{}).Run(ctx, map[string]any{
		"command":   "echo booting; echo listening on 4200; exec sleep 30",
		"readyWhen": "listening on",
	}, ec)

	// --- Assert ---
	select {
	case first := <-ch:
		assert.True(t, first.Success)
	case <-time.After(10 * time.Second):
		t.Fatal("task never became ready")
	}

	cancel()
	outs := drain(ch)
	require.Len(t, outs, 1)
	assert.False(t, outs[0].Success)
	assert.Contains(t, outs[0].TerminalOutput, "listening on 4200")
}

func TestParseOptions(t *testing.T) {
	testCases := []struct {
		name    string
		raw     map[string]any
		want    *Options
		wantErr string
	}{
		{
			name: "single command",
			raw:  map[string]any{"command": "make"},
			want: &Options{Commands: []string{"make"}, Parallel: true},
		},
		{
			name: "commands and settings",
			raw: map[string]any{
				"commands":  []string{"a", "b"},
				"parallel":  false,
				"cwd":       "apps/web",
				"readyWhen": "ready",
				"args":      "--x",
				"env":       map[string]any{"N": 1},
			},
			want: &Options{
				Commands:  []string{"a", "b"},
				Cwd:       "apps/web",
				ReadyWhen: "ready",
				Args:      "--x",
				Env:       map[string]string{"N": "1"},
			},
		},
		{name: "command wrong type", raw: map[string]any{"command": 1}, wantErr: "must be a string"},
		{name: "parallel wrong type", raw: map[string]any{"command": "x", "parallel": "yes"}, wantErr: "must be a bool"},
		{name: "bad commands entry", raw: map[string]any{"commands": []any{1}}, wantErr: "unsupported type"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseOptions(tc.raw)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEnviron(t *testing.T) {
	got := environ([]string{"A=1", "B=1"}, map[string]string{"B": "2"}, map[string]string{"C": "3"})

	assert.Equal(t, []string{"A=1", "B=2", "C=3"}, got)
}
