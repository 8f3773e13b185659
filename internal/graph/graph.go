package graph

import (
	"fmt"

	"github.com/vk/pubgrid/internal/config"
)

// New builds the graph for pkgs. Duplicate package names and references to
// unknown packages are errors. Self-dependencies are kept so that Schedule
// reports them as a cycle.
func New(pkgs []*config.Package) (*Graph, error) {
	g := &Graph{byName: make(map[string]*node, len(pkgs))}

	for i, p := range pkgs {
		if _, ok := g.byName[p.Name]; ok {
			return nil, fmt.Errorf("package %q is declared more than once", p.Name)
		}
		n := &node{pkg: p, index: i}
		g.nodes = append(g.nodes, n)
		g.byName[p.Name] = n
	}

	for _, n := range g.nodes {
		for _, depName := range n.pkg.Dependencies {
			if err := g.addEdge(n, depName); err != nil {
				return nil, err
			}
		}
	}
	for _, n := range g.nodes {
		for _, d := range n.deps {
			d.dependents = append(d.dependents, n)
		}
	}

	return g, nil
}

// addEdge records that n depends on the node named depName. Repeated edges
// are ignored.
func (g *Graph) addEdge(n *node, depName string) error {
	dep, ok := g.byName[depName]
	if !ok {
		return &UnknownDependencyError{Package: n.name(), Dependency: depName}
	}
	for _, existing := range n.deps {
		if existing == dep {
			return nil
		}
	}
	n.deps = append(n.deps, dep)
	return nil
}

// Len returns the number of packages in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Package returns the package with the given name.
func (g *Graph) Package(name string) (*config.Package, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return n.pkg, true
}

// Dependencies returns the names of the packages that name depends on.
func (g *Graph) Dependencies(name string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("package not found: %s", name)
	}
	return names(n.deps), nil
}

// Dependents returns the names of the packages that depend on name.
func (g *Graph) Dependents(name string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("package not found: %s", name)
	}
	return names(n.dependents), nil
}

func names(nodes []*node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.name())
	}
	return out
}
