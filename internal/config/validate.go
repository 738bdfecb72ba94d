package config

import (
	"fmt"
	"os"
)

// Validate checks the model for errors that must stop a herd before any
// simulation runs.
func (m *Model) Validate() error {
	info, err := os.Stat(m.Herd.BaseDir)
	if err != nil || !info.IsDir() {
		return Errorf("herd.base_dir", "%q is not an existing directory", m.Herd.BaseDir)
	}
	if m.Herd.NumDirs < 1 {
		return Errorf("herd.num_dirs", "must be at least 1, got %d", m.Herd.NumDirs)
	}
	switch m.Herd.Mode {
	case ModeSequential, ModeParallel:
	default:
		return Errorf("herd.mode", "must be %q or %q, got %q", ModeSequential, ModeParallel, m.Herd.Mode)
	}

	if len(m.Stages) == 0 {
		return Errorf("stage", "at least one stage is required")
	}
	seen := make(map[string]struct{}, len(m.Stages))
	for _, s := range m.Stages {
		field := fmt.Sprintf("stage.%s", s.Name)
		if s.Name == "" {
			return Errorf("stage", "stage name must not be empty")
		}
		if _, dup := seen[s.Name]; dup {
			return Errorf(field, "duplicate stage name")
		}
		seen[s.Name] = struct{}{}

		if _, err := os.Stat(s.Input); err != nil {
			return Errorf(field+".input", "input file %q does not exist", s.Input)
		}
		switch s.Runner {
		case RunnerMoose:
			if m.Moose == nil {
				return Errorf(field+".runner", "a moose block is required for moose stages")
			}
			if err := m.Moose.Validate(); err != nil {
				return err
			}
		case RunnerGmsh:
			if m.Gmsh == nil || m.Gmsh.AppPath == "" {
				return Errorf(field+".runner", "a gmsh block with app_path is required for gmsh stages")
			}
			if _, err := os.Stat(m.Gmsh.AppPath); err != nil {
				return Errorf("gmsh.app_path", "gmsh app not found at %q", m.Gmsh.AppPath)
			}
		default:
			return Errorf(field+".runner", "unknown runner %q", s.Runner)
		}
	}

	for stage, grid := range m.Sweeps {
		if _, ok := seen[stage]; !ok {
			return Errorf("sweep."+stage, "no stage with this name")
		}
		for name, values := range grid {
			if len(values) == 0 {
				return Errorf(fmt.Sprintf("sweep.%s.%s", stage, name), "no values given")
			}
		}
	}
	return nil
}
