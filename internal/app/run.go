package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/notify"
	"github.com/vk/pubgrid/internal/report"
)

// Run executes the planned release and writes the report. The returned error
// covers only the run's own plumbing; package failures are in the report.
func (a *App) Run(ctx context.Context) (*report.Overall, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.startHealthCheckServer()
	defer a.closeHealthCheckServer()

	if closeNotifier := a.connectNotifier(ctx); closeNotifier != nil {
		defer closeNotifier()
	}

	overall := a.orch.Run(ctx)

	if err := a.writeReport(overall); err != nil {
		return overall, err
	}
	a.logger.Debug("App.Run method finished.", "failed", overall.Failed())
	return overall, nil
}

// connectNotifier attaches the socket.io stream when a URL is configured. A
// stream that cannot connect is logged and the run goes on without it.
func (a *App) connectNotifier(ctx context.Context) func() {
	if a.notifier != nil || a.config.NotifyURL == "" {
		return nil
	}
	sink, err := notify.Dial(ctx, notify.Options{
		URL:       a.config.NotifyURL,
		Namespace: a.config.NotifyNamespace,
	})
	if err != nil {
		a.logger.Warn("Release events will not be streamed.", "error", err)
		return nil
	}
	a.relay.set(sink)
	return func() {
		a.relay.set(nil)
		sink.Close()
	}
}

func (a *App) writeReport(overall *report.Overall) error {
	if a.config.ReportFile == "" {
		return report.Write(a.outW, overall, a.config.ReportFormat)
	}

	f, err := os.Create(a.config.ReportFile)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Write(f, overall, a.config.ReportFormat); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	a.logger.Info("Report written.", "path", a.config.ReportFile, "format", a.config.ReportFormat)
	return nil
}
