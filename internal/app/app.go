package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/orchestrator"
	"github.com/vk/pubgrid/internal/shell"
	"github.com/vk/pubgrid/internal/versioncheck"
)

// App wires one release run: configuration, orchestrator, version prober,
// notifier and the optional health check server.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	shell      shell.Executor
	env        map[string]string
	notifier   orchestrator.Notifier
	relay      *relay
	prober     *versioncheck.Prober
	orch       *orchestrator.Orchestrator
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithShell replaces the process executor.
func WithShell(sh shell.Executor) Option {
	return func(a *App) { a.shell = sh }
}

// WithEnv replaces the environment snapshot taken from the process.
func WithEnv(env map[string]string) Option {
	return func(a *App) { a.env = env }
}

// WithNotifier sets the run observer. It takes precedence over NotifyURL.
func WithNotifier(n orchestrator.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// NewApp loads the workspace and plans the run. Only the report goes to
// outW; logs and live step output go to logW. Configuration and graph errors are
// returned as *ConfigError.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.shell == nil {
		a.shell = shell.NewOS()
	}
	if a.env == nil {
		a.env = environ()
	}

	model, err := LoadModel(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.model = model
	a.relay = &relay{target: a.notifier}

	a.prober = versioncheck.NewProber(a.shell)
	orch, err := orchestrator.New(model, orchestrator.Options{
		DryRun:      cfg.DryRun,
		Workers:     cfg.Workers,
		Env:         a.env,
		Shell:       a.shell,
		Versions:    a.prober,
		Notifier:    a.relay,
		Stdout:      logW,
		Stderr:      logW,
		StepTimeout: cfg.StepTimeout,
	})
	if err != nil {
		return nil, &ConfigError{Path: cfg.ConfigPath, Err: err}
	}
	a.orch = orch

	names := make([]string, 0, len(orch.Schedule()))
	for _, p := range orch.Schedule() {
		names = append(names, p.Name)
	}
	logger.Debug("Release planned.", "order", strings.Join(names, " -> "))
	return a, nil
}

// Model returns the loaded workspace configuration.
func (a *App) Model() *config.Model {
	return a.model
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
