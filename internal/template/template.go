package template

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// SegmentKind tags a Segment as literal text or a property reference.
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentReference
)

// Segment is one piece of a parsed template.
type Segment struct {
	Kind SegmentKind
	// Text holds the literal text, or the trimmed source of a reference.
	Text string
	// Path is the attribute traversal of a reference, rooted at a namespace.
	Path hcl.Traversal
}

// Template is a parsed template string.
type Template struct {
	Source   string
	Segments []Segment
}

// Parse splits src into literal and reference segments. Parsing does not need
// a context, so it is also used to validate configuration at load time.
func Parse(src string) (*Template, error) {
	t := &Template{Source: src}
	if !strings.Contains(src, "${") {
		if src != "" {
			t.Segments = []Segment{{Kind: SegmentLiteral, Text: src}}
		}
		return t, nil
	}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.Segments = append(t.Segments, Segment{Kind: SegmentLiteral, Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		if strings.HasPrefix(src[i:], "$${") {
			lit.WriteString("${")
			i += 3
			continue
		}
		if !strings.HasPrefix(src[i:], "${") {
			lit.WriteByte(src[i])
			i++
			continue
		}

		end := strings.IndexByte(src[i+2:], '}')
		if end < 0 {
			return nil, &TemplateResolutionError{Expression: src[i:], Reason: "unterminated placeholder"}
		}
		inner := strings.TrimSpace(src[i+2 : i+2+end])
		path, err := parseReference(inner)
		if err != nil {
			return nil, err
		}
		flush()
		t.Segments = append(t.Segments, Segment{Kind: SegmentReference, Text: inner, Path: path})
		i += 2 + end + 1
	}
	flush()
	return t, nil
}

// parseReference accepts a bare property path such as `pkgFile.version`.
func parseReference(src string) (hcl.Traversal, error) {
	if src == "" {
		return nil, &TemplateResolutionError{Expression: src, Reason: "empty placeholder"}
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &TemplateResolutionError{Expression: src, Reason: diagReason(diags)}
	}
	scope, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok {
		return nil, &TemplateResolutionError{Expression: src, Reason: "only property references like pkg.path are allowed"}
	}
	for _, step := range scope.Traversal {
		switch step.(type) {
		case hcl.TraverseRoot, hcl.TraverseAttr:
		default:
			return nil, &TemplateResolutionError{Expression: src, Reason: "index and splat access is not allowed"}
		}
	}
	return scope.Traversal, nil
}

// Expand resolves every reference against ctx.
func (t *Template) Expand(ctx *Context) (string, error) {
	if len(t.Segments) == 1 && t.Segments[0].Kind == SegmentLiteral {
		return t.Segments[0].Text, nil
	}

	var evalCtx *hcl.EvalContext
	var out strings.Builder
	for _, seg := range t.Segments {
		if seg.Kind == SegmentLiteral {
			out.WriteString(seg.Text)
			continue
		}
		if ctx == nil {
			return "", &TemplateResolutionError{Expression: seg.Text, Reason: "no context available"}
		}
		if evalCtx == nil {
			evalCtx = &hcl.EvalContext{Variables: ctx.Variables()}
		}
		val, diags := seg.Path.TraverseAbs(evalCtx)
		if diags.HasErrors() {
			return "", &TemplateResolutionError{Expression: seg.Text, Reason: diagReason(diags)}
		}
		s, err := scalarString(val)
		if err != nil {
			return "", &TemplateResolutionError{Expression: seg.Text, Reason: err.Error()}
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// Expand parses and expands src in one go.
func Expand(src string, ctx *Context) (string, error) {
	if !strings.Contains(src, "${") {
		return src, nil
	}
	t, err := Parse(src)
	if err != nil {
		return "", err
	}
	return t.Expand(ctx)
}

// Validate reports whether src is a well-formed template.
func Validate(src string) error {
	_, err := Parse(src)
	return err
}

func scalarString(val cty.Value) (string, error) {
	if val.IsNull() {
		return "", fmt.Errorf("value is null")
	}
	if !val.IsKnown() {
		return "", fmt.Errorf("value is unknown")
	}
	if !val.Type().IsPrimitiveType() {
		return "", fmt.Errorf("value of type %s is not a string, number or bool", val.Type().FriendlyName())
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	return str.AsString(), nil
}

func diagReason(diags hcl.Diagnostics) string {
	parts := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if d.Detail != "" {
			parts = append(parts, d.Summary+": "+d.Detail)
		} else {
			parts = append(parts, d.Summary)
		}
	}
	return strings.Join(parts, "; ")
}
