package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/vk/pubgrid/internal/assets"
	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/pipeline"
	"github.com/vk/pubgrid/internal/report"
	"github.com/vk/pubgrid/internal/shell"
	"github.com/vk/pubgrid/internal/template"
	"github.com/vk/pubgrid/internal/versioncheck"
)

// newPackageRun builds the per-package state. The template context and the
// environment copy belong to this package run only.
func (o *Orchestrator) newPackageRun(pkg *config.Package, stdout, stderr io.Writer) *pipeline.PackageRun {
	env := make(map[string]string, len(o.opts.Env))
	for k, v := range o.opts.Env {
		env[k] = v
	}

	dir := pkg.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(o.model.Workspace.Root, dir)
	}

	return &pipeline.PackageRun{
		Template: &template.Context{
			Pkg:     template.PkgInfo{Name: pkg.Name, Path: pkg.Path, Manager: pkg.Manager},
			PkgFile: template.NewPkgFile(pkg.PublishedName(), pkg.Version),
			Env:     env,
		},
		Dir:    filepath.Clean(dir),
		Env:    shell.EnvList(env),
		Body:   &bytes.Buffer{},
		Stdout: stdout,
		Stderr: stderr,
	}
}

// runPackage executes the stages of pkg and fills rep.
func (o *Orchestrator) runPackage(ctx context.Context, pkg *config.Package, rep *report.PackageReport, stdout, stderr io.Writer) {
	logger := ctxlog.FromContext(ctx)
	mgr := o.model.Managers[pkg.Manager]
	run := o.newPackageRun(pkg, stdout, stderr)

	started := time.Now().UTC()
	rep.StartedAt = &started
	defer func() {
		rep.Body = run.Body.String()
		finished := time.Now().UTC()
		rep.FinishedAt = &finished
		if rep.Status == report.StatusPending {
			rep.Status = report.StatusSucceeded
		}
	}()

	for _, stage := range config.Stages {
		if stage != config.StagePrepublish && ctx.Err() != nil {
			rep.Cancel(pipeline.ErrCancelled)
			return
		}

		if stage == config.StagePublish {
			skip, err := o.guardPublish(ctx, pkg, mgr, run, rep)
			if err != nil {
				rep.Fail(err)
				return
			}
			if skip {
				logger.Info("⏭️ Version already published, skipping publish.", "version", pkg.Version)
				rep.Stages = append(rep.Stages, &report.StageReport{
					Stage:  config.StagePublish,
					Status: report.StatusSkipped,
					Reason: fmt.Sprintf("version %s already published", pkg.Version),
				})
				continue
			}
		}

		sr := o.runner.RunStage(ctx, stage, pkg.StepsFor(stage, mgr), run)
		rep.Stages = append(rep.Stages, sr)
		switch sr.Status {
		case report.StatusFailed:
			rep.Fail(fmt.Errorf("%s stage: %w", stage, sr.Err))
			return
		case report.StatusCancelled:
			rep.Cancel(sr.Err)
			return
		}

		if stage == config.StagePublish {
			o.resolveAssets(ctx, mgr, run, rep)
		}
	}
}

// guardPublish probes the published version. It reports whether publish can
// be skipped; probe failures are recorded and publishing proceeds.
func (o *Orchestrator) guardPublish(ctx context.Context, pkg *config.Package, mgr *config.PackageManager, run *pipeline.PackageRun, rep *report.PackageReport) (bool, error) {
	if o.opts.Versions == nil || !mgr.SupportsVersionCheck || mgr.PublishedVersionCommand == "" {
		return false, nil
	}

	line, err := template.Expand(mgr.PublishedVersionCommand, run.Template)
	if err != nil {
		return false, fmt.Errorf("published version command: %w", err)
	}
	rep.VersionCheck = &report.VersionCheck{Command: line}

	res, err := o.opts.Versions.Check(ctx, versioncheck.Request{
		Manager: mgr.Name,
		Command: line,
		Dir:     run.Dir,
		Env:     run.Env,
		Target:  pkg.Version,
	})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Published version check failed, publishing anyway.", "error", err)
		rep.VersionCheck.Error = err.Error()
		return false, nil
	}
	rep.VersionCheck.Published = res.Published
	rep.VersionCheck.AlreadyPublished = res.AlreadyPublished
	return res.AlreadyPublished, nil
}

func (o *Orchestrator) resolveAssets(ctx context.Context, mgr *config.PackageManager, run *pipeline.PackageRun, rep *report.PackageReport) {
	if len(mgr.Assets) == 0 {
		return
	}
	resolved, errs := assets.Resolve(mgr.Assets, run.Template, o.model.Workspace.Root, !o.opts.DryRun)
	rep.Assets = resolved
	for _, err := range errs {
		ctxlog.FromContext(ctx).Warn("Asset could not be resolved.", "error", err)
		rep.AssetErrors = append(rep.AssetErrors, err.Error())
	}
}
