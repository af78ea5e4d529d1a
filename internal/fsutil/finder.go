// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// DefaultSkipDirs are directory names never descended into.
var DefaultSkipDirs = []string{".git", "node_modules", "dist", "vendor"}

// FindFilesByName recursively searches rootPath for files called name and
// returns their full paths in lexical walk order. Directories whose name is
// in skipDirs are not entered.
func FindFilesByName(rootPath, name string, skipDirs ...string) ([]string, error) {
	if name == "" {
		panic("name must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && slices.Contains(skipDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// GlobFiles expands each pattern relative to rootPath and returns the files
// called name found directly in the matched directories. Duplicates are
// dropped; order follows the patterns.
func GlobFiles(rootPath, name string, patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(rootPath, pattern))
		if err != nil {
			return nil, err
		}
		for _, dir := range matches {
			candidate := filepath.Join(dir, name)
			if seen[candidate] {
				continue
			}
			if ok, err := isFile(candidate); err != nil {
				return nil, err
			} else if ok {
				seen[candidate] = true
				files = append(files, candidate)
			}
		}
	}
	return files, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
