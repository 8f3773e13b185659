package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestFilesWithExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.hcl"))
	touch(t, filepath.Join(dir, "a.hcl"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "nested", "c.hcl"))

	files, err := FilesWithExtension(dir, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.hcl"), filepath.Join(dir, "b.hcl")}, files)
}

func TestFilesWithExtension_MissingDir(t *testing.T) {
	_, err := FilesWithExtension(filepath.Join(t.TempDir(), "nope"), ".hcl")
	assert.Error(t, err)
}

func TestFirstExisting(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "pubgrid.yaml"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "pubgrid.hcl"), 0o755))

	path, err := FirstExisting(dir, "pubgrid.hcl", "pubgrid.yaml", "pubgrid.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pubgrid.yaml"), path)

	path, err = FirstExisting(dir, "missing.toml")
	require.NoError(t, err)
	assert.Empty(t, path)
}
