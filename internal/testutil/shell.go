// Package testutil provides shared helpers for package tests: a thread-safe
// buffer and a scripted shell that records every command it is asked to run.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/vk/pubgrid/internal/shell"
)

// Response scripts what FakeShell does for a command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is returned instead of running, as if the process failed to start.
	Err error
	// Delay simulates a long-running process. It honours ctx, so a deadline
	// ends it early with ctx.Err().
	Delay time.Duration
}

// ExecutionRecord holds the start and end times of one fake process.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Call is one command FakeShell ran.
type Call struct {
	Line string
	Dir  string
	Env  []string
	ExecutionRecord
}

type prefixResponse struct {
	prefix string
	resp   Response
}

// FakeShell is a shell.Executor that never starts a process.
type FakeShell struct {
	mu       sync.Mutex
	exact    map[string]Response
	prefixes []prefixResponse
	calls    []Call
	// Default answers lines no rule matches.
	Default Response
}

var _ shell.Executor = (*FakeShell)(nil)

// NewFakeShell returns a FakeShell that succeeds silently by default.
func NewFakeShell() *FakeShell {
	return &FakeShell{exact: make(map[string]Response)}
}

// On scripts the response for an exact command line.
func (f *FakeShell) On(line string, resp Response) *FakeShell {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact[line] = resp
	return f
}

// OnPrefix scripts the response for every line starting with prefix. Exact
// rules win over prefix rules; earlier prefix rules win over later ones.
func (f *FakeShell) OnPrefix(prefix string, resp Response) *FakeShell {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefixResponse{prefix: prefix, resp: resp})
	return f
}

func (f *FakeShell) lookup(line string) Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.exact[line]; ok {
		return r
	}
	for _, p := range f.prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.resp
		}
	}
	return f.Default
}

// Run implements shell.Executor.
func (f *FakeShell) Run(ctx context.Context, cmd shell.Command) (shell.Result, error) {
	resp := f.lookup(cmd.Line)
	call := Call{Line: cmd.Line, Dir: cmd.Dir, Env: cmd.Env}
	call.Start = time.Now()

	defer func() {
		call.End = time.Now()
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()
	}()

	if resp.Err != nil {
		return shell.Result{ExitCode: -1}, resp.Err
	}

	write(cmd.Stdout, resp.Stdout)
	write(cmd.Stderr, resp.Stderr)

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return shell.Result{ExitCode: -1, Duration: time.Since(call.Start)}, ctx.Err()
		}
	}
	return shell.Result{ExitCode: resp.ExitCode, Duration: time.Since(call.Start)}, nil
}

func write(w io.Writer, s string) {
	if w != nil && s != "" {
		io.WriteString(w, s)
	}
}

// Calls returns every finished call in completion order.
func (f *FakeShell) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the command lines of every finished call.
func (f *FakeShell) Lines() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Line)
	}
	return out
}

// Overlapping reports whether any two calls accepted by keep ran at the same
// time.
func Overlapping(calls []Call, keep func(Call) bool) bool {
	var kept []Call
	for _, c := range calls {
		if keep(c) {
			kept = append(kept, c)
		}
	}
	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			if kept[i].Start.Before(kept[j].End) && kept[j].Start.Before(kept[i].End) {
				return true
			}
		}
	}
	return false
}
