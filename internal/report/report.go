package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pubgrid/internal/config"
)

// Status is the outcome of a package or stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// StepRecord is what happened to one step.
type StepRecord struct {
	// Command is the expanded command line that ran, or would have run when
	// Skipped is set.
	Command  string `json:"command"`
	DryRun   bool   `json:"dry_run"`
	Skipped  bool   `json:"skipped"`
	Piped    bool   `json:"piped"`
	Dir      string `json:"dir"`
	ExitCode int    `json:"exit_code"`
	// Output holds the captured stdout of a piped step.
	Output     string        `json:"output,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// StageReport is the outcome of one stage of one package.
type StageReport struct {
	Stage  config.Stage `json:"stage"`
	Status Status       `json:"status"`
	// Reason explains a skipped stage.
	Reason string       `json:"reason,omitempty"`
	Steps  []StepRecord `json:"steps"`
	Err    error        `json:"-"`
}

// VersionCheck records the published-version probe that guards publish.
type VersionCheck struct {
	Command          string `json:"command"`
	Published        string `json:"published,omitempty"`
	AlreadyPublished bool   `json:"already_published"`
	Error            string `json:"error,omitempty"`
}

// PackageReport is the outcome of one package.
type PackageReport struct {
	Name    string         `json:"name"`
	Manager string         `json:"manager"`
	Version string         `json:"version,omitempty"`
	Status  Status         `json:"status"`
	Stages  []*StageReport `json:"stages"`
	// Body is the concatenated stdout of every piped step, in execution order.
	Body         string         `json:"body,omitempty"`
	Assets       []config.Asset `json:"assets,omitempty"`
	AssetErrors  []string       `json:"asset_errors,omitempty"`
	VersionCheck *VersionCheck  `json:"version_check,omitempty"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	Error        string         `json:"error,omitempty"`
	// StartedAt and FinishedAt stay nil for packages that never ran.
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Err        error      `json:"-"`
}

// NewPackageReport returns a pending report for pkg.
func NewPackageReport(pkg *config.Package) *PackageReport {
	return &PackageReport{
		Name:    pkg.Name,
		Manager: pkg.Manager,
		Version: pkg.Version,
		Status:  StatusPending,
	}
}

// Fail marks the package failed with err.
func (p *PackageReport) Fail(err error) {
	p.Status = StatusFailed
	p.setErr(err)
}

// Cancel marks the package cancelled with err.
func (p *PackageReport) Cancel(err error) {
	p.Status = StatusCancelled
	p.setErr(err)
}

// Skip marks a package that never started.
func (p *PackageReport) Skip(reason error) {
	p.Status = StatusSkipped
	p.setErr(reason)
}

func (p *PackageReport) setErr(err error) {
	if err == nil {
		return
	}
	p.Err = err
	p.ErrorKind = KindOf(err)
	p.Error = err.Error()
}

// Stage returns the report of stage, if it ran.
func (p *PackageReport) Stage(stage config.Stage) (*StageReport, bool) {
	for _, s := range p.Stages {
		if s.Stage == stage {
			return s, true
		}
	}
	return nil, false
}

// Overall is the report of a whole run.
type Overall struct {
	RunID      string           `json:"run_id"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Packages   []*PackageReport `json:"packages"`
}

// NewOverall starts a report with a fresh run ID.
func NewOverall(dryRun bool) *Overall {
	return &Overall{
		RunID:     uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// Failed reports whether any package failed or was cancelled.
func (o *Overall) Failed() bool {
	for _, p := range o.Packages {
		if p.Status == StatusFailed || p.Status == StatusCancelled {
			return true
		}
	}
	return false
}

// Counts tallies packages by status.
func (o *Overall) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, p := range o.Packages {
		counts[p.Status]++
	}
	return counts
}

// Package returns the report of the named package.
func (o *Overall) Package(name string) (*PackageReport, bool) {
	for _, p := range o.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Kinded is implemented by errors that carry a stable classification.
type Kinded interface {
	Kind() string
}

// KindOf classifies err by the first error in its chain that implements
// Kinded. Unclassified errors are "internal".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "internal"
}
