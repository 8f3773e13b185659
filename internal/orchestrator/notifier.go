package orchestrator

import (
	"context"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/report"
)

// Notifier observes a run. Implementations must be safe for concurrent use.
type Notifier interface {
	PackageStarted(ctx context.Context, runID string, pkg *config.Package)
	PackageFinished(ctx context.Context, runID string, rep *report.PackageReport)
	RunFinished(ctx context.Context, overall *report.Overall)
}

// NopNotifier ignores every event.
type NopNotifier struct{}

func (NopNotifier) PackageStarted(context.Context, string, *config.Package)        {}
func (NopNotifier) PackageFinished(context.Context, string, *report.PackageReport) {}
func (NopNotifier) RunFinished(context.Context, *report.Overall)                   {}
