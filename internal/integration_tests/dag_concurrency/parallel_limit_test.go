package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

// Test for: Independent tasks never exceed the parallel limit.
func TestDagConcurrency_ParallelLimit(t *testing.T) {
	testCases := []struct {
		name     string
		parallel int
	}{
		{name: "serial", parallel: 1},
		{name: "two", parallel: 2},
		{name: "more slots than tasks", parallel: 8},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			files := map[string]string{}
			for _, p := range []string{"p1", "p2", "p3", "p4", "p5"} {
				files[p+"/project.hcl"] = sleeperProject(p)
			}
			sleeper := testutil.NewSleeperModule(30 * time.Millisecond)
			cfg := app.Config{Target: "build", Parallel: tc.parallel}

			// --- Act ---
			result := testutil.RunIntegrationTest(t, files, cfg, sleeper)

			// --- Assert ---
			require.NoError(t, result.Err)
			assert.LessOrEqual(t, sleeper.Peak(), min(tc.parallel, 5))
		})
	}
}

// Test for: The workspace file sets the limit when no flag does.
func TestDagConcurrency_WorkspaceParallel(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"workspace.hcl": "parallel = 1\n",
		"a/project.hcl": sleeperProject("a"),
		"b/project.hcl": sleeperProject("b"),
		"c/project.hcl": sleeperProject("c"),
	}
	sleeper := testutil.NewSleeperModule(20 * time.Millisecond)
	t.Setenv(app.EnvParallel, "")

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, app.Config{Target: "build"}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, 1, sleeper.Peak())
}
