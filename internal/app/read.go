package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/ctxlog"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/simdata"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/sweepreader"
)

// Read loads the outputs of the sweep selected by Config.SweepIter, keeping
// manifest order. The configured read block restricts what is extracted.
func (a *App) Read(ctx context.Context) ([][]*simdata.SimData, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Read method started.", "sweep_iter", a.config.SweepIter)

	sel := sweepreader.FromSettings(a.model.Read)
	var (
		results [][]*simdata.SimData
		err     error
	)
	if a.config.Sequential || a.model.Herd.Mode == config.ModeSequential {
		results, err = a.reader.ReadResultsSequential(ctx, a.config.SweepIter, sel)
	} else {
		results, err = a.reader.ReadResultsPara(ctx, a.config.SweepIter, sel)
	}
	if err != nil {
		return results, fmt.Errorf("read failed: %w", err)
	}

	for i, chain := range results {
		for j, data := range chain {
			if data == nil {
				continue
			}
			a.logger.Info("Output read.", append([]any{"sim_index", i, "stage", a.stageName(j)}, summarize(data)...)...)
		}
	}
	a.logger.Info("🏁 Read finished.", "sims", len(results))
	return results, nil
}

// stageName names chain position j. Manifests of earlier sweeps may hold
// longer chains than the current configuration.
func (a *App) stageName(j int) string {
	if j < len(a.model.Stages) {
		return a.model.Stages[j].Name
	}
	return fmt.Sprintf("stage%d", j)
}

// summarize describes data as log attributes.
func summarize(data *simdata.SimData) []any {
	attrs := []any{"time_steps", len(data.Time), "spat_dims", data.NumSpatDims}
	if data.Coords != nil {
		nodes, _ := data.Coords.Dims()
		attrs = append(attrs, "nodes", nodes)
	}
	if len(data.NodeVars) > 0 {
		attrs = append(attrs, "node_vars", sortedKeys(data.NodeVars))
	}
	if len(data.ElemVars) > 0 {
		keys := make([]string, 0, len(data.ElemVars))
		for k := range data.ElemVars {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		attrs = append(attrs, "elem_vars", keys)
	}
	if len(data.GlobVars) > 0 {
		attrs = append(attrs, "glob_vars", sortedKeys(data.GlobVars))
	}
	return attrs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
