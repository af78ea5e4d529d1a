package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// hasLogLine reports whether a single log line contains every fragment.
func hasLogLine(logs string, fragments ...string) bool {
	for _, line := range strings.Split(logs, "\n") {
		all := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// AssertTaskStatus checks the log output for the final status of a task.
func AssertTaskStatus(t *testing.T, result *HarnessResult, taskID, status string) {
	t.Helper()
	require.True(t,
		hasLogLine(result.LogOutput, "task_id="+taskID+" ", "status="+status),
		"expected task '%s' to finish with status '%s'", taskID, status,
	)
}

// AssertTaskRan checks that a task finished successfully.
func AssertTaskRan(t *testing.T, result *HarnessResult, taskID string) {
	t.Helper()
	AssertTaskStatus(t, result, taskID, "succeeded")
}

// AssertTaskNotStarted checks that a task was never dispatched.
func AssertTaskNotStarted(t *testing.T, result *HarnessResult, taskID string) {
	t.Helper()
	require.False(t,
		hasLogLine(result.LogOutput, `msg="Starting task."`, "task_id="+taskID+" "),
		"expected task '%s' not to start", taskID,
	)
}

// AssertRanBefore checks that first finished before second started.
func AssertRanBefore(t *testing.T, m *SleeperModule, first, second string) {
	t.Helper()
	a, ok := m.Record(first)
	require.True(t, ok, "task '%s' did not run", first)
	b, ok := m.Record(second)
	require.True(t, ok, "task '%s' did not run", second)
	require.False(t, b.Start.Before(a.End), "expected '%s' to finish before '%s' started", first, second)
}
