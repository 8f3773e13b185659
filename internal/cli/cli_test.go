package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/pubgrid/internal/app"
	"github.com/vk/pubgrid/internal/report"
)

func TestParse_Flags(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"-c", "ws/pubgrid.hcl",
		"-dry-run",
		"-workers", "4",
		"-log-format", "JSON",
		"-log-level", "debug",
		"-report-format", "json",
		"-report-file", "report.json",
		"-step-timeout", "90s",
		"-notify-url", "http://localhost:4000",
		"-notify-namespace", "/releases",
		"-healthcheck-port", "8080",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, &app.Config{
		ConfigPath:      "ws/pubgrid.hcl",
		DryRun:          true,
		Workers:         4,
		StepTimeout:     90 * time.Second,
		LogFormat:       "json",
		LogLevel:        "debug",
		ReportFormat:    report.FormatJSON,
		ReportFile:      "report.json",
		NotifyURL:       "http://localhost:4000",
		NotifyNamespace: "/releases",
		HealthcheckPort: 8080,
	}, cfg)
}

func TestParse_PathPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"positional", []string{"ws"}, "ws"},
		{"shorthand", []string{"-c", "short", "pos"}, "short"},
		{"long wins", []string{"-config", "long", "-c", "short"}, "long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, _, err := Parse(tc.args, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.ConfigPath)
			assert.Equal(t, 1, cfg.Workers)
			assert.Equal(t, report.FormatText, cfg.ReportFormat)
		})
	}
}

func TestParse_UsageExits(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{}, {"-h"}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"unknown flag":  {"-nope", "ws"},
		"log format":    {"-log-format", "xml", "ws"},
		"log level":     {"-log-level", "trace", "ws"},
		"report format": {"-report-format", "yaml", "ws"},
		"workers":       {"-workers", "0", "ws"},
		"step timeout":  {"-step-timeout", "-1s", "ws"},
		"extra args":    {"ws", "other"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args, &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, ExitUsage, exitErr.Code)
		})
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, 7, ExitCode(&ExitError{Code: 7}))
	assert.Equal(t, ExitUsage, ExitCode(fmt.Errorf("startup: %w", &app.ConfigError{Path: "x", Err: errors.New("bad")})))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
}
