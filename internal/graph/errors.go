package graph

import (
	"fmt"
	"strings"
)

// CycleError reports packages that can never be scheduled because they sit on
// or between dependency cycles. Packages are listed in declaration order.
type CycleError struct {
	Packages []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle between packages: %s", strings.Join(e.Packages, ", "))
}

// UnknownDependencyError reports a dependency on a package that is not part of
// the graph.
type UnknownDependencyError struct {
	Package    string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("package %q depends on unknown package %q", e.Package, e.Dependency)
}
