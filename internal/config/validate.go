package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/pubgrid/internal/template"
)

// ValidationError collects every problem found in a model so users can fix
// their configuration in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems):\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) template(where, src string) {
	if err := template.Validate(src); err != nil {
		p.addf("%s: %v", where, err)
	}
}

// Validate checks templates, manager references and dependency references.
// Dependency cycles are left to the graph.
func Validate(m *Model) error {
	var errs problems

	names := make([]string, 0, len(m.Managers))
	for name := range m.Managers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mgr := m.Managers[name]
		where := fmt.Sprintf("package manager %q", name)
		if mgr.SupportsVersionCheck && mgr.PublishedVersionCommand == "" {
			errs.addf("%s: supports version check but has no published version command", where)
		}
		errs.template(where+" published version command", mgr.PublishedVersionCommand)
		for _, stage := range Stages {
			validateSteps(&errs, fmt.Sprintf("%s %s", where, stage), mgr.Stages[stage])
		}
		for i, a := range mgr.Assets {
			if a.Path == "" {
				errs.addf("%s asset %d: path is required", where, i+1)
			}
			errs.template(fmt.Sprintf("%s asset %d path", where, i+1), a.Path)
			errs.template(fmt.Sprintf("%s asset %d name", where, i+1), a.Name)
		}
	}

	seen := make(map[string]struct{}, len(m.Packages))
	for _, pkg := range m.Packages {
		if pkg.Name == "" {
			errs.addf("package with empty name")
			continue
		}
		if _, dup := seen[pkg.Name]; dup {
			errs.addf("package %q is declared more than once", pkg.Name)
		}
		seen[pkg.Name] = struct{}{}
	}

	for _, pkg := range m.Packages {
		where := fmt.Sprintf("package %q", pkg.Name)
		if pkg.Manager == "" {
			errs.addf("%s: manager is required", where)
		} else if _, ok := m.Managers[pkg.Manager]; !ok {
			errs.addf("%s: unknown package manager %q", where, pkg.Manager)
		}
		for _, dep := range pkg.Dependencies {
			if _, ok := seen[dep]; !ok {
				errs.addf("%s: depends on unknown package %q", where, dep)
			}
		}
		for _, stage := range Stages {
			if steps, ok := pkg.Overrides[stage]; ok {
				validateSteps(&errs, fmt.Sprintf("%s %s", where, stage), steps)
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

func validateSteps(errs *problems, where string, steps []Step) {
	for i, step := range steps {
		at := fmt.Sprintf("%s step %d", where, i+1)
		if strings.TrimSpace(step.Command) == "" {
			errs.addf("%s: command is required", at)
		}
		errs.template(at+" command", step.Command)
		if step.DryRun == DryRunOverride {
			errs.template(at+" dry-run command", step.DryRunCommand)
		}
		if step.Timeout < 0 {
			errs.addf("%s: timeout must not be negative", at)
		}
	}
}
