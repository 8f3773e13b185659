package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses a single .hcl file, or every .hcl file directly inside a
// directory in name order, and merges them into one model.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	files, root, err := l.resolveFiles(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := config.NewModel()
	model.Workspace.Root = root
	parser := hclparse.NewParser()
	workspaceSeen := false

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var parsed fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &parsed)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if parsed.Workspace != nil {
			if workspaceSeen {
				return nil, fmt.Errorf("in HCL file %s: only one workspace block is allowed", file)
			}
			workspaceSeen = true
			if err := l.translateWorkspace(parsed.Workspace, filepath.Dir(file), &model.Workspace); err != nil {
				return nil, fmt.Errorf("in HCL file %s: %w", file, err)
			}
		}

		for _, m := range parsed.Managers {
			mgr, diags := l.translateManager(ctx, m)
			if diags.HasErrors() {
				return nil, fmt.Errorf("in HCL file %s: %w", file, diags)
			}
			if _, dup := model.Managers[mgr.Name]; dup {
				return nil, fmt.Errorf("in HCL file %s: package manager %q is declared more than once", file, mgr.Name)
			}
			model.Managers[mgr.Name] = mgr
		}

		for _, p := range parsed.Packages {
			pkg, diags := l.translatePackage(ctx, p)
			if diags.HasErrors() {
				return nil, fmt.Errorf("in HCL file %s: %w", file, diags)
			}
			model.Packages = append(model.Packages, pkg)
		}
	}

	logger.Debug("HCL loading complete.", "managers", len(model.Managers), "packages", len(model.Packages))
	return model, nil
}

// resolveFiles returns the files to load and the default workspace root.
func (l *Loader) resolveFiles(path string) ([]string, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ".hcl" {
			return nil, "", fmt.Errorf("not an HCL file: %s", path)
		}
		return []string{path}, filepath.Dir(path), nil
	}

	files, err := fsutil.FilesWithExtension(path, ".hcl")
	if err != nil {
		return nil, "", fmt.Errorf("failed to list HCL files in %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no .hcl files found in %s", path)
	}
	return files, path, nil
}
