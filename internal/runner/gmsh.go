package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
)

// GmshRunner runs gmsh .geo scripts. The mesh file is written wherever the
// script saves it, so the runner reports no output artifact.
type GmshRunner struct {
	app string
}

// NewGmsh creates a runner for the gmsh binary at app, which must exist.
func NewGmsh(app string) (*GmshRunner, error) {
	if _, err := os.Stat(app); err != nil {
		return nil, config.Errorf("gmsh.app_path", "gmsh app not found at %q", app)
	}
	return &GmshRunner{app: app}, nil
}

// Name implements herd.Runner.
func (r *GmshRunner) Name() string { return config.RunnerGmsh }

// Run executes the .geo script in its own directory.
func (r *GmshRunner) Run(ctx context.Context, inputPath string) error {
	if filepath.Ext(inputPath) != ".geo" {
		return fmt.Errorf("incorrect gmsh input %q: must be *.geo", inputPath)
	}
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("gmsh geo file %q does not exist", inputPath)
	}
	_, err := execute(ctx, command{
		name: r.app,
		args: []string{inputPath},
		dir:  filepath.Dir(inputPath),
		env:  os.Environ(),
	})
	return err
}

// OutputPath implements herd.Runner.
func (r *GmshRunner) OutputPath(string) (string, bool) {
	return "", false
}
