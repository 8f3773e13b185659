package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/pubgrid/internal/app"
	"github.com/vk/pubgrid/internal/report"
)

// Exit codes returned by the binary.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var cfgErr *app.ConfigError
	if errors.As(err, &cfgErr) {
		return ExitUsage
	}
	return ExitFailure
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pubgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
pubgrid - Publish every package of a workspace in dependency order.

Usage:
  pubgrid [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    A pubgrid.hcl, .yaml, .yml, .json or .toml file, or a directory holding one.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the workspace configuration file or directory.")
	cFlag := flagSet.String("c", "", "Path to the workspace configuration (shorthand).")
	dryRunFlag := flagSet.Bool("dry-run", false, "Run dry-run variants of every step instead of publishing.")
	workersFlag := flagSet.Int("workers", 1, "Number of packages processed at once. 1 is strictly sequential.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	reportFormatFlag := flagSet.String("report-format", "text", "Report format. Options: 'text' or 'json'.")
	reportFileFlag := flagSet.String("report-file", "", "Write the report to this file instead of standard output.")
	stepTimeoutFlag := flagSet.Duration("step-timeout", 0, "Default timeout for steps without their own. 0 keeps the workspace default.")
	notifyURLFlag := flagSet.String("notify-url", "", "socket.io server that receives release events.")
	notifyNamespaceFlag := flagSet.String("notify-namespace", "/", "socket.io namespace for release events.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))}
	}
	slog.Debug("Config path determined.", "path", path)

	if path == "" {
		slog.Debug("No config path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	reportFormat, err := report.ParseFormat(*reportFormatFlag)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid report-format: " + err.Error()}
	}

	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid workers: must be at least 1"}
	}
	if *stepTimeoutFlag < 0 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid step-timeout: must not be negative"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPath:      path,
		DryRun:          *dryRunFlag,
		Workers:         *workersFlag,
		StepTimeout:     *stepTimeoutFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ReportFormat:    reportFormat,
		ReportFile:      *reportFileFlag,
		NotifyURL:       *notifyURLFlag,
		NotifyNamespace: *notifyNamespaceFlag,
		HealthcheckPort: *healthPortFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
