// Package notify streams release events to a socket.io server.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/pubgrid/internal/config"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/report"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by Sink.
const (
	EventPackageStarted  = "package:started"
	EventPackageFinished = "package:finished"
	EventRunFinished     = "run:finished"
)

// DefaultConnectTimeout bounds Dial when Options.ConnectTimeout is zero.
const DefaultConnectTimeout = 15 * time.Second

// Emitter sends one event with a JSON-encodable payload.
type Emitter interface {
	Emit(event string, payload any)
}

// Options configures Dial.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Sink turns run events into socket.io messages.
type Sink struct {
	mu     sync.Mutex
	out    Emitter
	closer func()
}

// NewSink wraps an existing emitter.
func NewSink(out Emitter) *Sink {
	return &Sink{out: out}
}

type socketEmitter struct {
	io *socket.Socket
}

func (s socketEmitter) Emit(event string, payload any) {
	s.io.Emit(event, payload)
}

// Dial connects to the socket.io server at opts.URL and waits for the
// connection to be acknowledged.
func Dial(ctx context.Context, opts Options) (*Sink, error) {
	logger := ctxlog.FromContext(ctx).With("notify_url", opts.URL)
	logger.Debug("Connecting release event stream.")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", opts.URL)
	}

	sopts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		sopts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Release event stream connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	logger.Info("Streaming release events.", "namespace", opts.Namespace)
	sink := NewSink(socketEmitter{io: io})
	sink.closer = func() { io.Disconnect() }
	return sink, nil
}

// Close disconnects the underlying socket, if any.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
	return nil
}

func (s *Sink) emit(ctx context.Context, event string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Emitting release event.", "event", event)
	s.out.Emit(event, payload)
}

func (s *Sink) PackageStarted(ctx context.Context, runID string, pkg *config.Package) {
	s.emit(ctx, EventPackageStarted, map[string]any{
		"run_id":  runID,
		"package": pkg.Name,
		"manager": pkg.Manager,
		"version": pkg.Version,
	})
}

func (s *Sink) PackageFinished(ctx context.Context, runID string, rep *report.PackageReport) {
	payload := map[string]any{
		"run_id":  runID,
		"package": rep.Name,
		"version": rep.Version,
		"status":  string(rep.Status),
	}
	if rep.Error != "" {
		payload["error_kind"] = rep.ErrorKind
		payload["error"] = rep.Error
	}
	if len(rep.Assets) > 0 {
		names := make([]string, 0, len(rep.Assets))
		for _, a := range rep.Assets {
			names = append(names, a.Name)
		}
		payload["assets"] = names
	}
	s.emit(ctx, EventPackageFinished, payload)
}

func (s *Sink) RunFinished(ctx context.Context, overall *report.Overall) {
	counts := make(map[string]int)
	for st, n := range overall.Counts() {
		counts[string(st)] = n
	}
	s.emit(ctx, EventRunFinished, map[string]any{
		"run_id":  overall.RunID,
		"dry_run": overall.DryRun,
		"failed":  overall.Failed(),
		"counts":  counts,
	})
}
