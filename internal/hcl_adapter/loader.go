// Package hcl_adapter loads a workspace described in HCL into the
// format-agnostic config model.
//
// The workspace root holds an optional workspace.hcl with workspace-wide
// settings and target defaults. Every directory holding a project.hcl is a
// project; its root is that directory relative to the workspace root.
package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Concurrency bounds parallel project file parsing. Zero means one
	// goroutine per CPU.
	Concurrency int
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads workspace.hcl and every project.hcl under root.
func (l *Loader) Load(ctx context.Context, root string) (*config.Workspace, error) {
	logger := ctxlog.FromContext(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %s: %w", root, err)
	}
	logger.Debug("HCL loader started.", "root", absRoot)

	evalCtx := newEvalContext(absRoot)

	ws := &config.Workspace{Root: absRoot}
	wf, err := l.loadWorkspaceFile(absRoot, evalCtx)
	if err != nil {
		return nil, err
	}
	if wf != nil {
		if err := applyWorkspaceFile(ws, wf, evalCtx); err != nil {
			return nil, err
		}
	}

	var files []string
	if wf != nil && len(wf.Projects) > 0 {
		files, err = fsutil.GlobFiles(absRoot, ProjectFileName, wf.Projects)
	} else {
		files, err = fsutil.FindFilesByName(absRoot, ProjectFileName, fsutil.DefaultSkipDirs...)
	}
	if err != nil {
		return nil, fmt.Errorf("discovering project files: %w", err)
	}
	logger.Debug("Discovered project files.", "count", len(files))

	projects := make([]*config.ProjectConfiguration, len(files))
	g, gctx := errgroup.WithContext(ctx)
	limit := l.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := loadProjectFile(absRoot, file, evalCtx)
			if err != nil {
				return err
			}
			projects[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ws.Projects = projects

	if err := ws.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "projects", len(ws.Projects), "target_defaults", len(ws.TargetDefaults))
	return ws, nil
}

// newEvalContext exposes the process environment as env.NAME and the
// workspace root as workspace_root.
func newEvalContext(root string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && hclIdentifier(k) {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":            cty.ObjectVal(env),
			"workspace_root": cty.StringVal(root),
		},
	}
}

func hclIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (l *Loader) loadWorkspaceFile(root string, evalCtx *hcl.EvalContext) (*workspaceFile, error) {
	path := filepath.Join(root, WorkspaceFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	hclFile, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	var wf workspaceFile
	if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &wf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return &wf, nil
}

func applyWorkspaceFile(ws *config.Workspace, wf *workspaceFile, evalCtx *hcl.EvalContext) error {
	if wf.Parallel != nil {
		if *wf.Parallel < 1 {
			return fmt.Errorf("%s: parallel must be at least 1, got %d", WorkspaceFileName, *wf.Parallel)
		}
		ws.Parallel = *wf.Parallel
	}

	raw, err := evalNative(wf.NamedInputs, evalCtx)
	if err != nil {
		return fmt.Errorf("%s: named_inputs: %w", WorkspaceFileName, err)
	}
	if ws.NamedInputs, err = translateNamedInputs(raw); err != nil {
		return fmt.Errorf("%s: %w", WorkspaceFileName, err)
	}

	if len(wf.TargetDefaults) > 0 {
		ws.TargetDefaults = make(map[string]*config.TargetConfiguration, len(wf.TargetDefaults))
	}
	for _, tb := range wf.TargetDefaults {
		if _, dup := ws.TargetDefaults[tb.Name]; dup {
			return fmt.Errorf("%s: target_default %q declared twice", WorkspaceFileName, tb.Name)
		}
		t, err := translateTarget(tb, evalCtx)
		if err != nil {
			return fmt.Errorf("%s: target_default: %w", WorkspaceFileName, err)
		}
		ws.TargetDefaults[tb.Name] = t
	}
	return nil
}

// loadProjectFile parses one project.hcl. Each call uses its own parser so
// files can be loaded concurrently.
func loadProjectFile(root, path string, evalCtx *hcl.EvalContext) (*config.ProjectConfiguration, error) {
	hclFile, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var pf projectFile
	if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &pf); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	if len(pf.Projects) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one project block, found %d", path, len(pf.Projects))
	}

	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	p, err := translateProject(pf.Projects[0], filepath.ToSlash(rel), evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
