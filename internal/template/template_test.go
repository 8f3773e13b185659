package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *Context {
	return &Context{
		Pkg:     PkgInfo{Name: "tauri-hotkey", Path: "./crates/hotkey", Manager: "rust"},
		PkgFile: NewPkgFile("tauri-hotkey", "1.2.3-beta.1"),
		Env:     map[string]string{"CARGO_TOKEN": "secret", "EMPTY": ""},
	}
}

func TestExpand_Substitutions(t *testing.T) {
	t.Parallel()
	ctx := newTestContext()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"version", "${pkgFile.version}", "1.2.3-beta.1"},
		{"spaces inside braces", "cargo publish --version ${ pkgFile.version }", "cargo publish --version 1.2.3-beta.1"},
		{"several references", "${ pkg.path }/target/${ pkgFile.name }-${ pkgFile.version }.crate", "./crates/hotkey/target/tauri-hotkey-1.2.3-beta.1.crate"},
		{"decomposed version", "v${pkgFile.versionMajor}.${pkgFile.versionMinor}.${pkgFile.versionPatch}", "v1.2.3"},
		{"prerelease", "${pkgFile.versionPrerelease}", "beta.1"},
		{"manager", "${pkg.manager}", "rust"},
		{"environment", "token=${ process.env.CARGO_TOKEN }", "token=secret"},
		{"empty environment value", "[${process.env.EMPTY}]", "[]"},
		{"escaped placeholder", "echo $${HOME} ${pkg.name}", "echo ${HOME} tauri-hotkey"},
		{"shell braces untouched", "echo '%{x}' {a}", "echo '%{x}' {a}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Expand(tc.in, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExpand_BareVersion(t *testing.T) {
	t.Parallel()
	ctx := &Context{PkgFile: NewPkgFile("", "1.2.3")}

	got, err := Expand("${pkgFile.version}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", got)
}

func TestExpand_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := newTestContext()

	once, err := Expand("cargo package --manifest-path ${ pkg.path }/Cargo.toml", ctx)
	require.NoError(t, err)
	twice, err := Expand(once, ctx)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	plain := "cargo audit --deny warnings"
	got, err := Expand(plain, nil)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestExpand_Errors(t *testing.T) {
	t.Parallel()
	ctx := newTestContext()

	cases := []struct {
		name string
		in   string
		expr string
	}{
		{"unknown namespace", "${ nope.value }", "nope.value"},
		{"unknown attribute", "${ pkgFile.missing }", "pkgFile.missing"},
		{"unknown env var", "${ process.env.NOT_SET }", "process.env.NOT_SET"},
		{"object value", "${ pkg }", "pkg"},
		{"function call", "${ upper(pkg.name) }", "upper(pkg.name)"},
		{"operator", "${ pkg.name == pkg.path }", "pkg.name == pkg.path"},
		{"index access", `${ process.env["HOME"] }`, `process.env["HOME"]`},
		{"empty", "${ }", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Expand(tc.in, ctx)
			require.Error(t, err)
			var resErr *TemplateResolutionError
			require.True(t, errors.As(err, &resErr), "expected TemplateResolutionError, got %T", err)
			assert.Equal(t, tc.expr, resErr.Expression)
		})
	}
}

func TestExpand_Unterminated(t *testing.T) {
	t.Parallel()

	_, err := Expand("echo ${ pkg.name", newTestContext())
	var resErr *TemplateResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, "unterminated")
}

func TestExpand_NonSemverVersionHidesParts(t *testing.T) {
	t.Parallel()
	ctx := &Context{PkgFile: NewPkgFile("tool", "nightly")}

	got, err := Expand("${pkgFile.version}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got)

	_, err = Expand("${pkgFile.versionMajor}", ctx)
	require.Error(t, err)
}

func TestParse_Segments(t *testing.T) {
	t.Parallel()

	tmpl, err := Parse("a ${ pkg.path } b")
	require.NoError(t, err)
	require.Len(t, tmpl.Segments, 3)
	assert.Equal(t, SegmentLiteral, tmpl.Segments[0].Kind)
	assert.Equal(t, "a ", tmpl.Segments[0].Text)
	assert.Equal(t, SegmentReference, tmpl.Segments[1].Kind)
	assert.Equal(t, "pkg.path", tmpl.Segments[1].Text)
	assert.Equal(t, "pkg", tmpl.Segments[1].Path.RootName())
	assert.Equal(t, " b", tmpl.Segments[2].Text)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate("cargo publish"))
	assert.NoError(t, Validate("${ pkgFile.anything.goes }"))
	assert.Error(t, Validate("${ 1 + 2 }"))
}
