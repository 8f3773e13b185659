package graph

import (
	"sync"

	"github.com/vk/pubgrid/internal/config"
)

// Graph is the dependency relation between the packages of one workspace.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mutex sync.RWMutex
	// nodes keeps declaration order; index on each node is its position here.
	nodes  []*node
	byName map[string]*node
}

type node struct {
	pkg   *config.Package
	index int
	// deps are the nodes this node depends on, in declared order.
	deps []*node
	// dependents are the nodes that depend on this node, in declaration order.
	dependents []*node
}

func (n *node) name() string { return n.pkg.Name }
