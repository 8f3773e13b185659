// Package shell runs command lines through the platform shell.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sort"
	"time"
)

// Command is one command line to run.
type Command struct {
	Line string
	Dir  string
	// Env is the complete environment of the process in KEY=VALUE form.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished process.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Executor runs shell command lines. A non-zero exit is reported through
// Result.ExitCode with a nil error; the error is reserved for processes that
// could not be started or were stopped because ctx ended.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// waitDelay bounds how long Run waits for output pipes after the process was
// killed, since grandchildren may keep them open.
const waitDelay = 5 * time.Second

// OS runs commands with `sh -c` (`cmd /C` on Windows).
type OS struct{}

// NewOS returns the default executor.
func NewOS() *OS {
	return &OS{}
}

// Run starts cmd and waits for it. The process is killed when ctx ends.
func (OS) Run(ctx context.Context, cmd Command) (Result, error) {
	name, args := shellArgs(cmd.Line)
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	c.WaitDelay = waitDelay

	start := time.Now()
	err := c.Run()
	res := Result{Duration: time.Since(start)}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		res.ExitCode = -1
		return res, fmt.Errorf("failed to start %q: %w", cmd.Line, err)
	}
}

func shellArgs(line string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", line}
	}
	return "sh", []string{"-c", line}
}

// EnvList renders an environment map as a sorted KEY=VALUE list.
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
