// Package versioncheck asks a package manager which version of a package is
// already published, so that publish can be skipped on a re-run.
//
// Probes are retried with exponential backoff and guarded by one circuit
// breaker per package manager: once a manager's probe keeps failing, further
// probes fail fast and publishing proceeds as if nothing were published.
package versioncheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/vk/pubgrid/internal/ctxlog"
	"github.com/vk/pubgrid/internal/shell"
)

// VersionCheckError reports a probe that could not produce an answer.
type VersionCheckError struct {
	Manager string
	Command string
	Err     error
}

func (e *VersionCheckError) Error() string {
	return fmt.Sprintf("published version check for %s failed: %v", e.Manager, e.Err)
}

func (e *VersionCheckError) Unwrap() error { return e.Err }

func (e *VersionCheckError) Kind() string { return "version_check" }

// Request describes one probe.
type Request struct {
	Manager string
	// Command is the expanded probe command line.
	Command string
	Dir     string
	Env     []string
	// Target is the version about to be published.
	Target string
}

// Result is the answer of a successful probe.
type Result struct {
	// Published is the last non-empty line of the probe's stdout.
	Published        string
	AlreadyPublished bool
}

// Prober runs published-version probes. It is safe for concurrent use.
type Prober struct {
	Shell shell.Executor
	// Retries is the number of extra attempts after a failed probe.
	Retries       uint64
	RetryInterval time.Duration
	// AttemptTimeout bounds a single probe process. Zero means no limit.
	AttemptTimeout time.Duration
	// TripAfter is the number of failures that opens a manager's breaker.
	TripAfter int64
	// Cooldown is the initial time an open breaker waits before letting a
	// probe through again.
	Cooldown time.Duration

	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

// NewProber returns a Prober with conservative defaults.
func NewProber(sh shell.Executor) *Prober {
	return &Prober{
		Shell:          sh,
		Retries:        2,
		RetryInterval:  500 * time.Millisecond,
		AttemptTimeout: 2 * time.Minute,
		TripAfter:      5,
		Cooldown:       30 * time.Second,
		breakers:       make(map[string]*circuit.Breaker),
	}
}

func (p *Prober) breaker(manager string) *circuit.Breaker {
	p.mu.RLock()
	b, ok := p.breakers[manager]
	p.mu.RUnlock()
	if ok {
		return b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.breakers == nil {
		p.breakers = make(map[string]*circuit.Breaker)
	}
	if b, ok := p.breakers[manager]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.Cooldown
	expBackoff.MaxInterval = 10 * p.Cooldown
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(p.TripAfter),
	})
	p.breakers[manager] = b
	return b
}

// Check runs the probe and compares its answer with req.Target. Every
// failure is a *VersionCheckError.
func (p *Prober) Check(ctx context.Context, req Request) (Result, error) {
	logger := ctxlog.FromContext(ctx).With("manager", req.Manager)
	fail := func(err error) (Result, error) {
		return Result{}, &VersionCheckError{Manager: req.Manager, Command: req.Command, Err: err}
	}

	b := p.breaker(req.Manager)
	if !b.Ready() {
		return fail(fmt.Errorf("too many failed probes, circuit open: %w", circuit.ErrBreakerOpen))
	}

	policy := backoff.WithContext(p.retryPolicy(), ctx)

	var out string
	attempt := 0
	breakerOpen := false
	err := backoff.Retry(func() error {
		attempt++
		callErr := b.Call(func() error {
			var probeErr error
			out, probeErr = p.probe(ctx, req)
			if probeErr != nil {
				logger.Debug("Published version probe failed.", "attempt", attempt, "error", probeErr)
			}
			return probeErr
		}, 0)
		if errors.Is(callErr, circuit.ErrBreakerOpen) {
			breakerOpen = true
			return nil
		}
		return callErr
	}, policy)
	if breakerOpen {
		return fail(fmt.Errorf("too many failed probes, circuit open: %w", circuit.ErrBreakerOpen))
	}
	if err != nil {
		return fail(err)
	}

	published := LastLine(out)
	res := Result{Published: published, AlreadyPublished: Matches(published, req.Target)}
	logger.Debug("Published version probe answered.", "published", published, "target", req.Target, "already_published", res.AlreadyPublished)
	return res, nil
}

// retryPolicy allows exactly Retries extra attempts; WithMaxRetries treats
// zero as unlimited.
func (p *Prober) retryPolicy() backoff.BackOff {
	if p.Retries == 0 {
		return &backoff.StopBackOff{}
	}
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = p.RetryInterval
	retry.Reset()
	return backoff.WithMaxRetries(retry, p.Retries)
}

func (p *Prober) probe(ctx context.Context, req Request) (string, error) {
	execCtx := context.WithoutCancel(ctx)
	if p.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, p.AttemptTimeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	res, err := p.Shell.Run(execCtx, shell.Command{
		Line:   req.Command,
		Dir:    req.Dir,
		Env:    req.Env,
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("probe exited with status %d: %s", res.ExitCode, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// BreakerStates reports "open" or "closed" for every manager probed so far.
func (p *Prober) BreakerStates() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	states := make(map[string]string, len(p.breakers))
	for manager, b := range p.breakers {
		if b.Tripped() {
			states[manager] = "open"
		} else {
			states[manager] = "closed"
		}
	}
	return states
}

// LastLine returns the last non-empty line of out, trimmed.
func LastLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Matches reports whether published names the same version as target.
// Semantic versions compare by value, anything else by exact text.
func Matches(published, target string) bool {
	if published == "" || target == "" {
		return false
	}
	pv, perr := semver.NewVersion(published)
	tv, terr := semver.NewVersion(target)
	if perr == nil && terr == nil {
		return pv.Equal(tv)
	}
	return published == target
}
