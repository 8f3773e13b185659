package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/fsutil"
)

// ConfigError is a problem with the workspace configuration, found before any
// command ran.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadModel reads and validates the workspace configuration at path. A
// directory is searched for the well-known file names first, then for any
// .hcl files.
func LoadModel(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	target, err := resolveConfigPath(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	ext := ".hcl"
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		ext = strings.ToLower(filepath.Ext(target))
	}
	loader, ok := coreLoaders()[ext]
	if !ok {
		return nil, &ConfigError{Path: target, Err: fmt.Errorf("unsupported configuration format %q", ext)}
	}
	logger.Debug("Loading workspace configuration.", "path", target, "format", ext)

	model, err := loader.Load(ctx, target)
	if err != nil {
		return nil, &ConfigError{Path: target, Err: err}
	}
	if err := config.Validate(model); err != nil {
		return nil, &ConfigError{Path: target, Err: err}
	}
	logger.Info("Workspace configuration loaded.", "path", target, "managers", len(model.Managers), "packages", len(model.Packages))
	return model, nil
}

func resolveConfigPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	found, err := fsutil.FirstExisting(path, configFileNames...)
	if err != nil {
		return "", err
	}
	if found != "" {
		return found, nil
	}
	hclFiles, err := fsutil.FilesWithExtension(path, ".hcl")
	if err != nil {
		return "", err
	}
	if len(hclFiles) == 0 {
		return "", fmt.Errorf("no configuration found; expected one of %s or *.hcl", strings.Join(configFileNames, ", "))
	}
	return path, nil
}
