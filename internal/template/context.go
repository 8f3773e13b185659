package template

import (
	"github.com/Masterminds/semver/v3"
	"github.com/zclconf/go-cty/cty"
)

// Context is the value bag templates resolve against. It is built fresh for
// every package run and never shared between packages.
type Context struct {
	Pkg     PkgInfo
	PkgFile PkgFile
	// Env is a read-only snapshot of the process environment taken when the
	// run starts.
	Env map[string]string
}

// PkgInfo is exposed to templates as `pkg`.
type PkgInfo struct {
	Name    string
	Path    string
	Manager string
}

// PkgFile is exposed to templates as `pkgFile`. The decomposed version
// fields are only available when Version is a valid semantic version.
type PkgFile struct {
	Name    string
	Version string
	semver  *semver.Version
}

// NewPkgFile builds the package metadata for a name and full version string.
func NewPkgFile(name, version string) PkgFile {
	pf := PkgFile{Name: name, Version: version}
	if v, err := semver.NewVersion(version); err == nil {
		pf.semver = v
	}
	return pf
}

// Semver returns the parsed version, or nil when Version is not semantic.
func (f PkgFile) Semver() *semver.Version {
	return f.semver
}

// Variables renders the context as the root variables of an evaluation.
func (c *Context) Variables() map[string]cty.Value {
	pkg := cty.ObjectVal(map[string]cty.Value{
		"name":    cty.StringVal(c.Pkg.Name),
		"path":    cty.StringVal(c.Pkg.Path),
		"manager": cty.StringVal(c.Pkg.Manager),
	})

	file := map[string]cty.Value{
		"name":    cty.StringVal(c.PkgFile.Name),
		"version": cty.StringVal(c.PkgFile.Version),
	}
	if v := c.PkgFile.semver; v != nil {
		file["versionMajor"] = cty.NumberUIntVal(v.Major())
		file["versionMinor"] = cty.NumberUIntVal(v.Minor())
		file["versionPatch"] = cty.NumberUIntVal(v.Patch())
		file["versionPrerelease"] = cty.StringVal(v.Prerelease())
	}

	env := make(map[string]cty.Value, len(c.Env))
	for k, v := range c.Env {
		env[k] = cty.StringVal(v)
	}

	return map[string]cty.Value{
		"pkg":     pkg,
		"pkgFile": cty.ObjectVal(file),
		"process": cty.ObjectVal(map[string]cty.Value{
			"env": cty.ObjectVal(env),
		}),
	}
}
