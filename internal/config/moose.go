package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MooseConfig locates a MOOSE build and the application used to run input
// files. Only the installation paths are persisted as JSON; the parallel
// options are run settings.
type MooseConfig struct {
	MainPath string `json:"main_path"`
	AppPath  string `json:"app_path"`
	AppName  string `json:"app_name"`

	Tasks          int  `json:"-"`
	Threads        int  `json:"-"`
	RedirectStdout bool `json:"-"`
}

// Validate reports a *ConfigError when a required key is empty or a path
// does not exist.
func (c *MooseConfig) Validate() error {
	if c == nil {
		return Errorf("moose", "config must be initialised, load a config file first")
	}
	if c.MainPath == "" || c.AppPath == "" || c.AppName == "" {
		return Errorf("moose", "config must contain main_path, app_path and app_name")
	}
	if !isDir(c.MainPath) {
		return Errorf("moose.main_path", "main path to MOOSE does not exist: %q", c.MainPath)
	}
	if !isDir(c.AppPath) {
		return Errorf("moose.app_path", "MOOSE app path does not exist: %q", c.AppPath)
	}
	return nil
}

// SaveJSON writes the installation paths to path. The parent directory must
// already exist.
func (c *MooseConfig) SaveJSON(path string) error {
	if !isDir(filepath.Dir(path)) {
		return Errorf("moose", "parent directory for config file %q does not exist", path)
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal moose config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write moose config: %w", err)
	}
	return nil
}

// ReadMooseConfigJSON loads and validates a config written by SaveJSON.
func ReadMooseConfigJSON(path string) (*MooseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Errorf("moose", "config file does not exist at %q", path)
		}
		return nil, fmt.Errorf("read moose config: %w", err)
	}
	var c MooseConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode moose config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
