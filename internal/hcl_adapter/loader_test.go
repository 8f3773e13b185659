package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pubgrid/internal/config"
)

const rustConfig = `
workspace {
  default_step_timeout = "20m"
}

package_manager "rust" {
  supports_version_check    = true
  published_version_command = "cargo search ${ pkgFile.name } --limit 1 | sed -nE 's/^[^\"]*\"//; s/\".*//1p' -"

  prepublish {
    step {
      command         = "cargo generate-lockfile"
      dry_run_command = true
      run_from_root   = true
    }
    step {
      command = "echo '<details>'"
      pipe    = true
    }
    step {
      command         = "cargo audit ${process.env.AUDIT_FLAGS}"
      dry_run_command = "echo audit for ${ pkg.name }"
      pipe            = true
      timeout         = "90s"
    }
  }

  publish {
    step {
      command = "sleep 15s"
    }
    step {
      command         = "cargo publish --no-verify"
      dry_run_command = "cargo publish --no-verify --dry-run"
    }
  }

  postpublish {
    step {
      command       = "git tag ${ pkg.name }-v${ pkgFile.versionMajor }.${ pkgFile.versionMinor }"
      run_from_root = true
      dry_run_command = false
    }
  }

  asset {
    path = "${ pkg.path }/target/package/${ pkgFile.name }-${ pkgFile.version }.crate"
    name = "${ pkgFile.name }-${ pkgFile.version }.crate"
  }
}

package "tauri-hotkey-sys" {
  path    = "./tauri-hotkey-sys"
  manager = "rust"
  version = "0.1.2"
}

package "tauri-hotkey" {
  path         = "./"
  manager      = "rust"
  version      = "0.1.2"
  dependencies = ["tauri-hotkey-sys"]

  publish {
    step {
      command = "echo literal $${HOME}"
    }
  }
}
`

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_TranslatesManagersAndPackages(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeHCL(t, dir, "pubgrid.hcl", rustConfig)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, config.Validate(model))

	assert.Equal(t, dir, model.Workspace.Root)
	assert.Equal(t, 20*time.Minute, model.Workspace.DefaultStepTimeout)

	rust := model.Managers["rust"]
	require.NotNil(t, rust)
	assert.True(t, rust.SupportsVersionCheck)
	assert.Equal(t, `cargo search ${ pkgFile.name } --limit 1 | sed -nE 's/^[^"]*"//; s/".*//1p' -`, rust.PublishedVersionCommand)

	pre := rust.Stages[config.StagePrepublish]
	require.Len(t, pre, 3)
	assert.Equal(t, config.Step{Command: "cargo generate-lockfile", DryRun: config.DryRunSkip, RunFromRoot: true}, pre[0])
	assert.Equal(t, config.Step{Command: "echo '<details>'", Pipe: true}, pre[1])
	assert.Equal(t, config.Step{
		Command:       "cargo audit ${ process.env.AUDIT_FLAGS }",
		DryRun:        config.DryRunOverride,
		DryRunCommand: "echo audit for ${ pkg.name }",
		Pipe:          true,
		Timeout:       90 * time.Second,
	}, pre[2])

	publish := rust.Stages[config.StagePublish]
	require.Len(t, publish, 2)
	assert.Equal(t, config.DryRunReal, publish[0].DryRun)
	assert.Equal(t, "cargo publish --no-verify --dry-run", publish[1].DryRunCommand)

	post := rust.Stages[config.StagePostpublish]
	require.Len(t, post, 1)
	assert.Equal(t, config.DryRunReal, post[0].DryRun)
	assert.Equal(t, "git tag ${ pkg.name }-v${ pkgFile.versionMajor }.${ pkgFile.versionMinor }", post[0].Command)

	require.Len(t, rust.Assets, 1)
	assert.Equal(t, "${ pkg.path }/target/package/${ pkgFile.name }-${ pkgFile.version }.crate", rust.Assets[0].Path)

	require.Len(t, model.Packages, 2)
	assert.Equal(t, "tauri-hotkey-sys", model.Packages[0].Name)
	assert.Nil(t, model.Packages[0].Overrides)

	hotkey := model.Packages[1]
	assert.Equal(t, "./", hotkey.Path)
	assert.Equal(t, []string{"tauri-hotkey-sys"}, hotkey.Dependencies)
	require.Contains(t, hotkey.Overrides, config.StagePublish)
	assert.Equal(t, "echo literal $${HOME}", hotkey.Overrides[config.StagePublish][0].Command)
	assert.Len(t, hotkey.StepsFor(config.StagePrepublish, rust), 3)
}

func TestLoader_Directory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeHCL(t, dir, "b_packages.hcl", `
package "b" {
  manager = "npm"
}
package "a" {
  manager = "npm"
  dependencies = ["b"]
}`)
	writeHCL(t, dir, "a_managers.hcl", `
package_manager "npm" {
  publish {
    step { command = "npm publish" }
  }
}`)

	model, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NoError(t, config.Validate(model))
	assert.Equal(t, dir, model.Workspace.Root)
	require.Len(t, model.Packages, 2)
	assert.Equal(t, "b", model.Packages[0].Name)
	assert.Equal(t, "a", model.Packages[1].Name)
	assert.Equal(t, ".", model.Packages[0].Path)
}

func TestLoader_RejectsUnsupportedTemplates(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"function call": `package_manager "m" {
  publish {
    step { command = "echo ${ upper(pkg.name) }" }
  }
}`,
		"directive": `package_manager "m" {
  publish {
    step { command = "echo %{ if true }yes%{ endif }" }
  }
}`,
		"duplicate stage": `package_manager "m" {
  publish {
    step { command = "a" }
  }
  publish {
    step { command = "b" }
  }
}`,
		"bad timeout": `package_manager "m" {
  publish {
    step {
      command = "a"
      timeout = "soon"
    }
  }
}`,
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeHCL(t, t.TempDir(), "pubgrid.hcl", src)
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
	require.Error(t, err)

	_, err = NewLoader().Load(context.Background(), t.TempDir())
	require.ErrorContains(t, err, "no .hcl files")
}
