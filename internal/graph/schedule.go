package graph

import (
	"github.com/vk/pubgrid/internal/config"
)

// Schedule returns the packages in publish order: every package comes after
// all of its dependencies, and among packages that are ready at the same time
// the one declared first goes first. A cyclic graph yields a *CycleError.
func (g *Graph) Schedule() ([]*config.Package, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make([]int, len(g.nodes))
	var ready []*node
	for _, n := range g.nodes {
		pending[n.index] = len(n.deps)
		if pending[n.index] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*config.Package, 0, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for len(ready) > 0 {
		next := 0
		for i := range ready {
			if ready[i].index < ready[next].index {
				next = i
			}
		}
		n := ready[next]
		ready = append(ready[:next], ready[next+1:]...)

		done[n.index] = true
		order = append(order, n.pkg)
		for _, d := range n.dependents {
			pending[d.index]--
			if pending[d.index] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	return nil, g.cycleError(done)
}

// cycleError narrows the unscheduled nodes down to the ones on or between
// cycles by repeatedly dropping nodes that nothing unscheduled depends on.
func (g *Graph) cycleError(done []bool) *CycleError {
	remaining := make([]bool, len(g.nodes))
	for i := range done {
		remaining[i] = !done[i]
	}

	for changed := true; changed; {
		changed = false
		for _, n := range g.nodes {
			if !remaining[n.index] {
				continue
			}
			blocking := false
			for _, d := range n.dependents {
				if remaining[d.index] {
					blocking = true
					break
				}
			}
			if !blocking {
				remaining[n.index] = false
				changed = true
			}
		}
	}

	err := &CycleError{}
	for _, n := range g.nodes {
		if remaining[n.index] {
			err.Packages = append(err.Packages, n.name())
		}
	}
	return err
}
