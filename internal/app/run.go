package app

import (
	"context"
	"fmt"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/dirmanager"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/herd"
)

// Run expands the configured sweep grids into simulation chains and runs
// them in the configured mode. Failed simulations are reported through a
// *herd.SweepError after the manifest has been written.
func (a *App) Run(ctx context.Context) (dirmanager.OutputPaths, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	sweep := a.model.Combinations()
	if len(sweep) == 0 {
		a.logger.Warn("Sweep is empty, nothing to run.")
		return nil, nil
	}

	a.logger.Info("🚀 Starting sweep...", "sims", len(sweep), "mode", a.model.Herd.Mode, "workers", a.herd.NumParaSims())
	paths, err := a.herd.Run(ctx, a.model.Herd.Mode, sweep)
	if se, ok := herd.IsSweepError(err); ok {
		a.logger.Error("Sweep finished with failed simulations.", "failed", len(se.Failures), "total", se.Total)
		return paths, err
	}
	if err != nil {
		return paths, fmt.Errorf("sweep failed: %w", err)
	}

	a.logger.Info("🏁 Sweep finished.",
		"sweep_iter", a.herd.SweepIter(),
		"sims", len(sweep),
		"duration", a.herd.SweepRunTime(),
		"output_key", a.dm.OutputKeyFile(a.herd.SweepIter()),
	)
	return paths, nil
}
