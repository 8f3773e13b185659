// Package pipeline executes the steps of one package's stages.
//
// A Runner is shared by every package of a run. It decides per step whether
// to run the real command, the dry-run override or nothing at all, expands
// the command template fresh against the package's template context, and
// hands the line to a shell.Executor. Piped stdout is appended to the
// package body in execution order, including the output of failed steps.
//
// Processes are never killed because the run was cancelled; only a step
// timeout stops a running process.
package pipeline
