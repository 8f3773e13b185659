package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/graph"
	"github.com/vk/pubgrid/internal/pipeline"
	"github.com/vk/pubgrid/internal/report"
	"github.com/vk/pubgrid/internal/shell"
	"github.com/vk/pubgrid/internal/versioncheck"
)

// VersionChecker answers whether a package version is already published.
type VersionChecker interface {
	Check(ctx context.Context, req versioncheck.Request) (versioncheck.Result, error)
}

// Options configures a run.
type Options struct {
	DryRun bool
	// Workers is the number of packages processed at once. Values below 1
	// mean 1.
	Workers int
	// Env is the environment snapshot exposed to templates and processes.
	Env   map[string]string
	Shell shell.Executor
	// Versions probes published versions. Nil disables the publish guard.
	Versions VersionChecker
	Notifier Notifier
	// Stdout and Stderr receive live step output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// StepTimeout overrides the workspace default step timeout when set.
	StepTimeout time.Duration
}

// Orchestrator runs one planned release.
type Orchestrator struct {
	model    *config.Model
	graph    *graph.Graph
	schedule []*config.Package
	opts     Options
	runner   *pipeline.Runner

	outMu    sync.Mutex
	statusMu sync.RWMutex
	status   map[string]report.Status
}

// New plans a run. Graph errors, including cycles, are returned here before
// any command runs.
func New(model *config.Model, opts Options) (*Orchestrator, error) {
	g, err := graph.New(model.Packages)
	if err != nil {
		return nil, fmt.Errorf("failed to build package graph: %w", err)
	}
	schedule, err := g.Schedule()
	if err != nil {
		return nil, err
	}
	for _, p := range schedule {
		if _, ok := model.Managers[p.Manager]; !ok {
			return nil, fmt.Errorf("package %q uses unknown package manager %q", p.Name, p.Manager)
		}
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Shell == nil {
		opts.Shell = shell.NewOS()
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Env == nil {
		opts.Env = map[string]string{}
	}

	timeout := model.Workspace.DefaultStepTimeout
	if opts.StepTimeout > 0 {
		timeout = opts.StepTimeout
	}

	o := &Orchestrator{
		model:    model,
		graph:    g,
		schedule: schedule,
		opts:     opts,
		runner: &pipeline.Runner{
			Shell:          opts.Shell,
			DryRun:         opts.DryRun,
			Root:           model.Workspace.Root,
			DefaultTimeout: timeout,
			RootLock:       &sync.Mutex{},
		},
		status: make(map[string]report.Status, len(schedule)),
	}
	for _, p := range schedule {
		o.status[p.Name] = report.StatusPending
	}
	return o, nil
}

// Run plans and executes a release in one call.
func Run(ctx context.Context, model *config.Model, opts Options) (*report.Overall, error) {
	o, err := New(model, opts)
	if err != nil {
		return nil, err
	}
	return o.Run(ctx), nil
}

// Schedule returns the planned package order.
func (o *Orchestrator) Schedule() []*config.Package {
	out := make([]*config.Package, len(o.schedule))
	copy(out, o.schedule)
	return out
}

// Progress returns the current status of every package.
func (o *Orchestrator) Progress() map[string]report.Status {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	out := make(map[string]report.Status, len(o.status))
	for k, v := range o.status {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) setStatus(name string, st report.Status) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	o.status[name] = st
}

// Run executes the planned release. Once ctx is cancelled no further package
// starts; packages already running finish their current step and are marked
// cancelled, the rest are marked skipped.
func (o *Orchestrator) Run(ctx context.Context) *report.Overall {
	overall := report.NewOverall(o.opts.DryRun)
	ctx = ctxlog.With(ctx, "run_id", overall.RunID)
	logger := ctxlog.FromContext(ctx)

	overall.Packages = make([]*report.PackageReport, len(o.schedule))
	for i, p := range o.schedule {
		overall.Packages[i] = report.NewPackageReport(p)
	}

	logger.Info("🚀 Release run started.", "packages", len(o.schedule), "dry_run", o.opts.DryRun, "workers", o.opts.Workers)
	if o.opts.Workers == 1 {
		o.runSequential(ctx, overall)
	} else {
		o.runConcurrent(ctx, overall)
	}
	overall.FinishedAt = time.Now().UTC()

	counts := overall.Counts()
	logger.Info("🏁 Release run finished.",
		"succeeded", counts[report.StatusSucceeded],
		"failed", counts[report.StatusFailed],
		"cancelled", counts[report.StatusCancelled],
		"skipped", counts[report.StatusSkipped],
	)
	o.opts.Notifier.RunFinished(ctx, overall)
	return overall
}

func (o *Orchestrator) runSequential(ctx context.Context, overall *report.Overall) {
	for i, p := range o.schedule {
		rep := overall.Packages[i]
		if ctx.Err() != nil {
			o.skip(ctx, overall.RunID, rep)
			continue
		}
		o.process(ctx, overall.RunID, p, rep, o.opts.Stdout, o.opts.Stderr)
	}
}

func (o *Orchestrator) skip(ctx context.Context, runID string, rep *report.PackageReport) {
	ctxlog.FromContext(ctx).Warn("Run cancelled, package not started.", "package", rep.Name)
	rep.Skip(pipeline.ErrCancelled)
	o.setStatus(rep.Name, rep.Status)
	o.opts.Notifier.PackageFinished(ctx, runID, rep)
}

// process runs one package and notifies observers around it.
func (o *Orchestrator) process(ctx context.Context, runID string, pkg *config.Package, rep *report.PackageReport, stdout, stderr io.Writer) {
	ctx = ctxlog.With(ctx, "package", pkg.Name)
	logger := ctxlog.FromContext(ctx)

	o.setStatus(pkg.Name, report.StatusRunning)
	o.opts.Notifier.PackageStarted(ctx, runID, pkg)
	logger.Info("▶️ Package started.", "manager", pkg.Manager, "version", pkg.Version)

	o.runPackage(ctx, pkg, rep, stdout, stderr)

	switch rep.Status {
	case report.StatusSucceeded:
		logger.Info("✅ Package succeeded.")
	case report.StatusCancelled:
		logger.Warn("Package cancelled.", "error", rep.Error)
	default:
		logger.Error("❌ Package failed.", "error_kind", rep.ErrorKind, "error", rep.Error)
	}
	o.setStatus(pkg.Name, rep.Status)
	o.opts.Notifier.PackageFinished(ctx, runID, rep)
}
