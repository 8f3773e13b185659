// Package assets turns a manager's asset templates into the release artifacts
// of one package.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/template"
)

// AssetPathError reports an artifact that publish should have produced but
// that does not exist.
type AssetPathError struct {
	Name string
	Path string
	Err  error
}

func (e *AssetPathError) Error() string {
	return fmt.Sprintf("asset %q not found at %s: %v", e.Name, e.Path, e.Err)
}

func (e *AssetPathError) Unwrap() error { return e.Err }

func (e *AssetPathError) Kind() string { return "asset_path" }

// Resolve expands every template against ctx. Relative paths resolve against
// root. With verify set, each path must exist; missing ones are returned as
// *AssetPathError alongside the unverified asset. Templates that fail to
// expand are reported and left out.
func Resolve(templates []config.AssetTemplate, ctx *template.Context, root string, verify bool) ([]config.Asset, []error) {
	var (
		out  []config.Asset
		errs []error
	)

	for _, t := range templates {
		path, err := template.Expand(t.Path, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset path %q: %w", t.Path, err))
			continue
		}
		name, err := template.Expand(t.Name, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("asset name %q: %w", t.Name, err))
			continue
		}

		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		path = filepath.Clean(path)
		if name == "" {
			name = filepath.Base(path)
		}

		asset := config.Asset{Path: path, Name: name}
		if verify {
			if _, err := os.Stat(path); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					err = fmt.Errorf("stat: %w", err)
				}
				errs = append(errs, &AssetPathError{Name: name, Path: path, Err: err})
			} else {
				asset.Verified = true
			}
		}
		out = append(out, asset)
	}
	return out, errs
}
