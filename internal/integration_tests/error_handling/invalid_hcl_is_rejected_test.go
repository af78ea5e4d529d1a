package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/testutil"
)

// Test for: Invalid configuration files are rejected while loading.
func TestErrorHandling_InvalidHCL_IsRejected(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "syntax error",
			files: map[string]string{
				"lib/project.hcl": `project "lib" { target "build" {`,
			},
		},
		{
			name: "two projects in one file",
			files: map[string]string{
				"lib/project.hcl": `
project "a" {}
project "b" {}
`,
			},
		},
		{
			name: "duplicate project names",
			files: map[string]string{
				"a/project.hcl": `project "lib" {}`,
				"b/project.hcl": `project "lib" {}`,
			},
		},
		{
			name: "invalid dependsOn entry",
			files: map[string]string{
				"lib/project.hcl": `
project "lib" {
  target "build" {
    command    = "true"
    depends_on = [{ target = "x", dependencies = true, projects = ["y"] }]
  }
}
`,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			result := testutil.RunIntegrationTest(t, tc.files, app.Config{Target: "build"})

			// --- Assert ---
			require.Error(t, result.Err)
			assert.ErrorContains(t, result.Err, "failed to load workspace")
		})
	}
}
