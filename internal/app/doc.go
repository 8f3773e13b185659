// Package app wires a release run together: it loads and validates the
// workspace configuration, plans the orchestrator, and owns the run's
// lifecycle, decoupled from any specific entrypoint like a CLI.
package app
