package localexecutor

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/vk/taskgrid/internal/registry"
)

// envFiles lists the .env files read for a task, lowest precedence first.
func envFiles(dir, target, configuration string) []string {
	names := []string{".env", ".env.local"}
	if target != "" {
		names = append(names, ".env."+target)
		if configuration != "" {
			names = append(names, ".env."+target+"."+configuration)
		}
	}
	files := make([]string, len(names))
	for i, n := range names {
		files[i] = filepath.Join(dir, n)
	}
	return files
}

// LoadEnv reads the .env files of the workspace root and then the project
// root. Later files override earlier ones; missing files are ignored.
func LoadEnv(workspaceRoot, projectRoot, target, configuration string) (map[string]string, error) {
	candidates := envFiles(workspaceRoot, target, configuration)
	if projectRoot != "" {
		candidates = append(candidates, envFiles(registry.ProjectDir(workspaceRoot, projectRoot), target, configuration)...)
	}

	var existing []string
	seen := make(map[string]bool, len(candidates))
	for _, f := range candidates {
		if seen[f] {
			continue
		}
		seen[f] = true
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		existing = append(existing, f)
	}
	if len(existing) == 0 {
		return map[string]string{}, nil
	}
	return godotenv.Read(existing...)
}
