package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

// Test for: A target depending on another target of the same project runs
// after it.
func TestCoreExecution_SameProjectDependency(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"lib/project.hcl": `
project "lib" {
  target "lint" {
    executor = "sleeper"
  }
  target "build" {
    executor   = "sleeper"
    depends_on = ["lint"]
  }
}
`,
	}
	sleeper := testutil.NewSleeperModule(20 * time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, app.Config{Requests: []string{"lib:build"}}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertRanBefore(t, sleeper, "lib:lint", "lib:build")
}

// Test for: "^build" runs the builds of the whole upstream chain first.
func TestCoreExecution_UpstreamChain(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"workspace.hcl": `
target_default "build" {
  executor   = "sleeper"
  depends_on = ["^build"]
}
`,
		"packages/util/project.hcl": `
project "util" {
  target "build" {}
}
`,
		"packages/lib/project.hcl": `
project "lib" {
  dependency "util" {}
  target "build" {}
}
`,
		"apps/app/project.hcl": `
project "app" {
  dependency "lib" {}
  target "build" {}
}
`,
	}
	sleeper := testutil.NewSleeperModule(10 * time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, app.Config{Requests: []string{"app:build"}, Parallel: 3}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertRanBefore(t, sleeper, "util:build", "lib:build")
	testutil.AssertRanBefore(t, sleeper, "lib:build", "app:build")
}

// Test for: The requested configuration flows to dependencies that declare
// it.
func TestCoreExecution_ConfigurationPropagates(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"lib/project.hcl": `
project "lib" {
  target "build" {
    executor       = "sleeper"
    configurations = { production = { sleep_ms = 1 } }
  }
}
`,
		"docs/project.hcl": `
project "docs" {
  target "build" {
    executor = "sleeper"
  }
}
`,
		"app/project.hcl": `
project "app" {
  dependency "lib" {}
  dependency "docs" {}
  target "build" {
    executor       = "sleeper"
    depends_on     = ["^build"]
    configurations = { production = {} }
  }
}
`,
	}
	sleeper := testutil.NewSleeperModule(time.Millisecond)

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, app.Config{Requests: []string{"app:build:production"}}, sleeper)

	// --- Assert ---
	require.NoError(t, result.Err)
	testutil.AssertTaskRan(t, result, "app:build:production")
	testutil.AssertTaskRan(t, result, "lib:build:production")
	testutil.AssertTaskRan(t, result, "docs:build")
}
