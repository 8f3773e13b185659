package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/report"
	"github.com/vk/pubgrid/internal/shell"
	"github.com/vk/pubgrid/internal/template"
)

// DefaultStderrTail is how many bytes of stderr a step record keeps.
const DefaultStderrTail = 4 << 10

// Runner executes steps. It is safe to share between concurrently running
// packages.
type Runner struct {
	Shell  shell.Executor
	DryRun bool
	// Root is the workspace root used by runFromRoot steps.
	Root string
	// DefaultTimeout applies to steps without their own timeout. Zero means
	// no limit.
	DefaultTimeout time.Duration
	// RootLock serializes runFromRoot steps across packages. Nil disables
	// locking.
	RootLock sync.Locker
	// StderrTail bounds the stderr kept per step; zero uses DefaultStderrTail.
	StderrTail int
}

// PackageRun is the state one package carries through its stages.
type PackageRun struct {
	Template *template.Context
	// Dir is the package's working directory.
	Dir string
	Env []string
	// Body accumulates piped stdout.
	Body *bytes.Buffer
	// Stdout and Stderr receive the live output of non-piped steps.
	Stdout io.Writer
	Stderr io.Writer
}

// RunStep runs one step and returns its record. The error is nil for
// successful steps and for steps skipped in dry-run mode.
func (r *Runner) RunStep(ctx context.Context, step config.Step, run *PackageRun) (report.StepRecord, error) {
	logger := ctxlog.FromContext(ctx)

	rec := report.StepRecord{DryRun: r.DryRun, Piped: step.Pipe, Dir: run.Dir}
	if step.RunFromRoot {
		rec.Dir = r.Root
	}

	src := step.Command
	if r.DryRun && step.DryRun == config.DryRunOverride {
		src = step.DryRunCommand
	}
	line, err := template.Expand(src, run.Template)
	if err != nil {
		rec.Command = src
		rec.ExitCode = -1
		rec.Error = err.Error()
		return rec, err
	}
	rec.Command = line

	if r.DryRun && step.DryRun == config.DryRunSkip {
		rec.Skipped = true
		logger.Info("⏭️ Dry run, not executing step.", "command", line)
		if run.Stdout != nil {
			fmt.Fprintf(run.Stdout, "[dry-run] would run: %s\n", line)
		}
		return rec, nil
	}

	if step.RunFromRoot && r.RootLock != nil {
		r.RootLock.Lock()
		defer r.RootLock.Unlock()
	}

	timeout := step.Timeout
	if timeout == 0 {
		timeout = r.DefaultTimeout
	}
	execCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, timeout)
		defer cancel()
	}

	tailSize := r.StderrTail
	if tailSize <= 0 {
		tailSize = DefaultStderrTail
	}
	tail := newTailBuffer(tailSize)

	var captured bytes.Buffer
	cmd := shell.Command{
		Line:   line,
		Dir:    rec.Dir,
		Env:    run.Env,
		Stdout: run.Stdout,
		Stderr: tail,
	}
	if run.Stderr != nil {
		cmd.Stderr = io.MultiWriter(run.Stderr, tail)
	}
	if step.Pipe {
		cmd.Stdout = &captured
	}

	logger.Info("▶️ Running step.", "command", line, "dir", rec.Dir, "pipe", step.Pipe)
	res, runErr := r.Shell.Run(execCtx, cmd)
	rec.ExitCode = res.ExitCode
	rec.Duration = res.Duration
	rec.StderrTail = tail.String()

	if step.Pipe {
		rec.Output = captured.String()
		if run.Body != nil {
			run.Body.Write(captured.Bytes())
		}
	}

	if err := stepError(line, res, runErr, rec.StderrTail, timeout); err != nil {
		rec.Error = err.Error()
		logger.Error("Step failed.", "command", line, "exit_code", rec.ExitCode, "error", err)
		return rec, err
	}
	logger.Debug("✅ Step finished.", "command", line, "duration", rec.Duration)
	return rec, nil
}

func stepError(line string, res shell.Result, runErr error, stderr string, timeout time.Duration) error {
	if runErr != nil {
		execErr := &StepExecutionError{Command: line, ExitCode: res.ExitCode, Stderr: stderr, Err: runErr}
		if errors.Is(runErr, context.DeadlineExceeded) {
			return &TimeoutError{Timeout: timeout, Step: execErr}
		}
		return execErr
	}
	if res.ExitCode != 0 {
		return &StepExecutionError{Command: line, ExitCode: res.ExitCode, Stderr: stderr}
	}
	return nil
}
