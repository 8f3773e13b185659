package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonDoc = `{
  "workspace": { "defaultStepTimeout": "10m" },
  "pkgManagers": {
    "rust": {
      "supportsVersionCheck": true,
      "getPublishedVersion": "cargo search ${ pkgFile.name } --limit 1",
      "prepublish": [
        "cargo install cargo-audit --version \"^0.14\"",
        { "command": "cargo generate-lockfile", "dryRunCommand": true, "runFromRoot": true, "pipe": true },
        { "command": "echo '# Cargo Audit'", "dryRunCommand": "echo dry", "pipe": true, "timeout": 30 }
      ],
      "publish": [
        { "command": "sleep 15s", "pipe": true },
        { "command": "cargo publish", "dryRunCommand": "cargo publish --dry-run" }
      ],
      "postpublish": { "command": "git tag ${ pkg.name }-v${ pkgFile.version }", "dryRunCommand": false, "runFromRoot": true },
      "assets": [ { "path": "${ pkg.path }/target/package/${ pkgFile.name }-${ pkgFile.version }.crate", "name": "${ pkgFile.name }-${ pkgFile.version }.crate" } ]
    }
  },
  "packages": {
    "zeta-sys": { "path": "./zeta-sys", "manager": "rust", "version": "0.1.0" },
    "alpha": { "path": "./", "manager": "rust", "version": "0.2.0", "dependencies": ["zeta-sys"], "publish": [] }
  }
}`

const yamlDoc = `
pkgManagers:
  rust:
    publish:
      - command: cargo publish
        dryRunCommand: true
packages:
  zeta-sys:
    path: ./zeta-sys
    manager: rust
    version: 0.1.0
  alpha:
    manager: rust
    version: 0.2.0
    dependencies: [zeta-sys]
`

const tomlDoc = `
[pkgManagers.rust]
supportsVersionCheck = false
publish = ["cargo publish", { command = "echo done", pipe = true }]

[[pkgManagers.rust.assets]]
path = "out/${ pkgFile.name }.crate"
name = "${ pkgFile.name }.crate"

[packages.zeta-sys]
path = "./zeta-sys"
manager = "rust"
version = "0.1.0"

[packages.alpha]
manager = "rust"
version = "0.2.0"
dependencies = ["zeta-sys"]
`

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func packageNames(m *Model) []string {
	names := make([]string, 0, len(m.Packages))
	for _, p := range m.Packages {
		names = append(names, p.Name)
	}
	return names
}

func TestDocumentLoader_JSON(t *testing.T) {
	t.Parallel()
	path := writeDoc(t, "pubgrid.json", jsonDoc)

	model, err := NewDocumentLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, Validate(model))

	assert.Equal(t, []string{"zeta-sys", "alpha"}, packageNames(model), "declaration order must survive decoding")
	assert.Equal(t, filepath.Dir(path), model.Workspace.Root)
	assert.Equal(t, 10*time.Minute, model.Workspace.DefaultStepTimeout)

	rust := model.Managers["rust"]
	require.NotNil(t, rust)
	assert.True(t, rust.SupportsVersionCheck)
	assert.Equal(t, "cargo search ${ pkgFile.name } --limit 1", rust.PublishedVersionCommand)

	pre := rust.Stages[StagePrepublish]
	require.Len(t, pre, 3)
	assert.Equal(t, Step{Command: `cargo install cargo-audit --version "^0.14"`}, pre[0])
	assert.Equal(t, Step{Command: "cargo generate-lockfile", DryRun: DryRunSkip, RunFromRoot: true, Pipe: true}, pre[1])
	assert.Equal(t, Step{Command: "echo '# Cargo Audit'", DryRun: DryRunOverride, DryRunCommand: "echo dry", Pipe: true, Timeout: 30 * time.Second}, pre[2])

	post := rust.Stages[StagePostpublish]
	require.Len(t, post, 1)
	assert.Equal(t, DryRunReal, post[0].DryRun)
	assert.True(t, post[0].RunFromRoot)

	require.Len(t, rust.Assets, 1)

	alpha, ok := model.Package("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"zeta-sys"}, alpha.Dependencies)
	steps, overridden := alpha.Overrides[StagePublish]
	assert.True(t, overridden)
	assert.Empty(t, steps)
	assert.Empty(t, alpha.StepsFor(StagePublish, rust))
	assert.Len(t, alpha.StepsFor(StagePrepublish, rust), 3)
}

func TestDocumentLoader_YAML(t *testing.T) {
	t.Parallel()
	path := writeDoc(t, "pubgrid.yaml", yamlDoc)

	model, err := NewDocumentLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, Validate(model))

	assert.Equal(t, []string{"zeta-sys", "alpha"}, packageNames(model))
	alpha, _ := model.Package("alpha")
	assert.Equal(t, ".", alpha.Path)
	assert.Equal(t, DryRunSkip, model.Managers["rust"].Stages[StagePublish][0].DryRun)
}

func TestDocumentLoader_TOML(t *testing.T) {
	t.Parallel()
	path := writeDoc(t, "pubgrid.toml", tomlDoc)

	model, err := NewDocumentLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, Validate(model))

	assert.Equal(t, []string{"zeta-sys", "alpha"}, packageNames(model))
	publish := model.Managers["rust"].Stages[StagePublish]
	require.Len(t, publish, 2)
	assert.Equal(t, "cargo publish", publish[0].Command)
	assert.True(t, publish[1].Pipe)
	assert.Equal(t, "${ pkgFile.name }.crate", model.Managers["rust"].Assets[0].Name)
}

func TestDocumentLoader_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unsupported extension", "pubgrid.ini", "x=1", "unsupported configuration format"},
		{"bad step type", "pubgrid.json", `{"pkgManagers":{"m":{"publish":[42]}},"packages":{}}`, "expected a command string"},
		{"bad dry run", "pubgrid.json", `{"pkgManagers":{"m":{"publish":[{"command":"x","dryRunCommand":3}]}},"packages":{}}`, "dryRunCommand"},
		{"unknown step field", "pubgrid.yaml", "pkgManagers:\n  m:\n    publish:\n      - command: x\n        shell: bash\n", "unknown field"},
		{"bad yaml", "pubgrid.yaml", "packages: [", "failed to decode"},
		{"duplicate json package", "pubgrid.json", `{"pkgManagers":{},"packages":{"a":{},"b":{},"a":{}}}`, `package "a" is declared more than once`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDoc(t, tc.file, tc.content)
			_, err := NewDocumentLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_Problems(t *testing.T) {
	t.Parallel()

	model := NewModel()
	model.Managers["rust"] = &PackageManager{
		Name:                 "rust",
		SupportsVersionCheck: true,
		Stages: map[Stage][]Step{
			StagePublish: {{Command: "cargo publish ${ upper(pkg.name) }"}, {Command: " "}},
		},
		Assets: []AssetTemplate{{Name: "x"}},
	}
	model.Packages = []*Package{
		{Name: "a", Manager: "rust", Dependencies: []string{"ghost"}},
		{Name: "a", Manager: "npm"},
	}

	err := Validate(model)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	joined := verr.Error()
	assert.Contains(t, joined, "supports version check but has no published version command")
	assert.Contains(t, joined, "only property references")
	assert.Contains(t, joined, "command is required")
	assert.Contains(t, joined, "path is required")
	assert.Contains(t, joined, `package "a" is declared more than once`)
	assert.Contains(t, joined, `unknown package manager "npm"`)
	assert.Contains(t, joined, `depends on unknown package "ghost"`)
}

func TestDryRunFromValue(t *testing.T) {
	t.Parallel()

	mode, cmd, err := DryRunFromValue(true)
	require.NoError(t, err)
	assert.Equal(t, DryRunSkip, mode)
	assert.Empty(t, cmd)

	mode, _, err = DryRunFromValue(false)
	require.NoError(t, err)
	assert.Equal(t, DryRunReal, mode)

	mode, cmd, err = DryRunFromValue("npm publish --dry-run")
	require.NoError(t, err)
	assert.Equal(t, DryRunOverride, mode)
	assert.Equal(t, "npm publish --dry-run", cmd)

	_, _, err = DryRunFromValue("")
	assert.Error(t, err)
}
