package pipeline

import (
	"context"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/report"
)

// RunStage runs steps in order and stops at the first failure. A cancelled
// ctx stops the stage before the next step starts; a step that is already
// running is allowed to finish.
func (r *Runner) RunStage(ctx context.Context, stage config.Stage, steps []config.Step, run *PackageRun) *report.StageReport {
	ctx = ctxlog.With(ctx, "stage", stage)
	logger := ctxlog.FromContext(ctx)

	sr := &report.StageReport{Stage: stage, Status: report.StatusSucceeded}
	if len(steps) == 0 {
		logger.Debug("Stage has no steps.")
		return sr
	}

	logger.Debug("Stage started.", "steps", len(steps))
	for i, step := range steps {
		if ctx.Err() != nil {
			logger.Warn("Stage stopped, run was cancelled.", "completed_steps", i)
			sr.Status = report.StatusCancelled
			sr.Err = ErrCancelled
			return sr
		}

		rec, err := r.RunStep(ctx, step, run)
		sr.Steps = append(sr.Steps, rec)
		if err != nil {
			sr.Status = report.StatusFailed
			sr.Err = err
			return sr
		}
	}
	logger.Debug("Stage finished.")
	return sr
}
