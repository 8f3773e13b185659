package hcl_adapter

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/pubgrid/internal/hclx"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// templateSource rebuilds the template source of a string attribute, with
// interpolations rendered as `${ path }` and literal `${` escaped. Anything
// beyond literals and property references is rejected.
func templateSource(expr hcl.Expression) (string, hcl.Diagnostics) {
	if expr == nil {
		return "", nil
	}

	switch e := expr.(type) {
	case *hclsyntax.TemplateExpr:
		var sb strings.Builder
		var diags hcl.Diagnostics
		for _, part := range e.Parts {
			src, partDiags := templatePart(part)
			diags = append(diags, partDiags...)
			sb.WriteString(src)
		}
		return sb.String(), diags
	case *hclsyntax.TemplateWrapExpr:
		return templatePart(e.Wrapped)
	default:
		return templatePart(expr)
	}
}

func templatePart(expr hcl.Expression) (string, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return literalSource(e.Val, e.Range())
	case *hclsyntax.ScopeTraversalExpr:
		return "${ " + hclx.TraversalKey(e.Traversal) + " }", nil
	case *hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr:
		return templateSource(e)
	}

	// Synthetic expressions for omitted attributes evaluate to null.
	if _, isSyntax := expr.(hclsyntax.Expression); !isSyntax {
		val, diags := expr.Value(nil)
		if diags.HasErrors() {
			return "", diags
		}
		return literalSource(val, expr.Range())
	}

	return "", hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unsupported template expression",
		Detail:   "Only literal text and property references such as ${ pkgFile.version } are allowed; functions, operators and template directives are not.",
		Subject:  expr.Range().Ptr(),
	}}
}

func literalSource(val cty.Value, rng hcl.Range) (string, hcl.Diagnostics) {
	if val.IsNull() {
		return "", nil
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Expected a string",
			Detail:   err.Error(),
			Subject:  rng.Ptr(),
		}}
	}
	return strings.ReplaceAll(str.AsString(), "${", "$${"), nil
}
