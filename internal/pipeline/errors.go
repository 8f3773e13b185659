package pipeline

import (
	"fmt"
	"time"
)

// StepExecutionError reports a step that exited non-zero or could not be
// started.
type StepExecutionError struct {
	Command  string
	ExitCode int
	// Stderr is the tail of the process's stderr.
	Stderr string
	Err    error
}

func (e *StepExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

func (e *StepExecutionError) Kind() string { return "step_execution" }

// TimeoutError reports a step that ran longer than its timeout. It unwraps to
// the *StepExecutionError of the killed process.
type TimeoutError struct {
	Timeout time.Duration
	Step    *StepExecutionError
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Step.Command, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Step }

func (e *TimeoutError) Kind() string { return "timeout" }

type cancelledError struct{}

func (cancelledError) Error() string { return "run cancelled" }

func (cancelledError) Kind() string { return "cancelled" }

// ErrCancelled is returned when a stage stops early because the run was
// cancelled.
var ErrCancelled error = cancelledError{}
