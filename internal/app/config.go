package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // .hcl/.yaml file or a directory of them

	LogFormat string
	LogLevel  string

	// SweepIter selects the sweep read back by Read. Zero reads every
	// persisted sweep.
	SweepIter int
	// Sequential forces sequential reads regardless of the herd mode.
	Sequential bool
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.SweepIter < 0 {
		return nil, errors.New("SweepIter must not be negative")
	}
	return &cfg, nil
}
