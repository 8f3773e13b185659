package app

import (
	"context"
	"sync"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/orchestrator"
	"github.com/vk/pubgrid/internal/report"
)

// relay forwards run events to a notifier that may be attached after the
// orchestrator was planned.
type relay struct {
	mu     sync.RWMutex
	target orchestrator.Notifier
}

var _ orchestrator.Notifier = (*relay)(nil)

func (r *relay) set(n orchestrator.Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = n
}

func (r *relay) current() orchestrator.Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.target == nil {
		return orchestrator.NopNotifier{}
	}
	return r.target
}

func (r *relay) PackageStarted(ctx context.Context, runID string, pkg *config.Package) {
	r.current().PackageStarted(ctx, runID, pkg)
}

func (r *relay) PackageFinished(ctx context.Context, runID string, rep *report.PackageReport) {
	r.current().PackageFinished(ctx, runID, rep)
}

func (r *relay) RunFinished(ctx context.Context, overall *report.Overall) {
	r.current().RunFinished(ctx, overall)
}
