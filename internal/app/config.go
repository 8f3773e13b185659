package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/pubgrid/internal/report"
)

// Config holds everything an App needs for one release run.
type Config struct {
	// ConfigPath is a workspace configuration file or a directory holding one.
	ConfigPath string

	DryRun      bool
	Workers     int
	StepTimeout time.Duration

	LogFormat string
	LogLevel  string

	ReportFormat report.Format
	ReportFile   string // empty writes the report to the output writer

	NotifyURL       string
	NotifyNamespace string
	HealthcheckPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.StepTimeout < 0 {
		return nil, fmt.Errorf("step timeout must not be negative, got %s", cfg.StepTimeout)
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = report.FormatText
	}
	if _, err := report.ParseFormat(string(cfg.ReportFormat)); err != nil {
		return nil, err
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
