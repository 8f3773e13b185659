package template

import "fmt"

// TemplateResolutionError reports a placeholder that could not be parsed or
// resolved against the context.
type TemplateResolutionError struct {
	Expression string
	Reason     string
}

func (e *TemplateResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve template expression %q: %s", e.Expression, e.Reason)
}

func (e *TemplateResolutionError) Kind() string { return "template_resolution" }
