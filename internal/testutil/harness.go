package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/hcl_adapter"
	"github.com/vk/taskgrid/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteWorkspace writes files, keyed by path relative to the root, into a
// fresh temporary workspace and returns its root.
func WriteWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg, modules...)
}

// RunIntegrationTestWithContext writes the workspace files, loads them with
// the HCL loader and runs the app with the given modules.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	root := WriteWorkspace(t, files)
	cfg.WorkspaceRoot = root

	testApp, logs := app.SetupAppTest(t, &cfg, hcl_adapter.NewLoader(), modules...)
	err := testApp.Run(ctx)

	return &HarnessResult{
		Root:      root,
		LogOutput: logs.String(),
		Err:       err,
		App:       testApp,
	}
}
