// Package graph models packages and their declared dependencies and produces
// the order in which they are published.
//
// Edges point from a package to the packages it depends on. A dependency is
// always scheduled before its dependents; packages with no ordering constraint
// between them keep their declaration order so that runs are reproducible.
package graph
