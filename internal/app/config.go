package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath string // hcl plan files, a file or a directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// MaxGroups overrides the plan's max_concurrent_groups when positive.
	MaxGroups int
	// SkipKeysPath points at a file of previously published cache keys.
	SkipKeysPath string
	// SummaryOut is the path the run summary JSON is written to. Empty means
	// the app's output writer.
	SummaryOut string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
