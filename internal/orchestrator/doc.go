// Package orchestrator drives every package of a workspace through its
// prepublish, publish and postpublish stages in dependency order.
//
// A run is planned up front: the package graph is scheduled before anything
// executes, so a cycle or an unknown dependency aborts the run with no side
// effects. A failing package is marked failed and the run moves on; the
// orchestrator never cancels dependents on its own.
//
// With more than one worker, packages whose dependencies have all finished
// run in parallel. Each package's live output is buffered and written out in
// one piece when the package finishes, steps that run from the workspace root
// are serialized across packages, and reports are kept in schedule order.
package orchestrator
