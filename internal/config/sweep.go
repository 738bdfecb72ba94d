package config

import "sort"

// Combinations expands the per-stage sweep grids into the ordered list of
// simulation chains to run. Each entry holds one Vars per stage; stages
// without a grid receive nil. The first stage varies slowest and, within a
// grid, variables vary in sorted name order with the first name slowest.
func (m *Model) Combinations() [][]Vars {
	combos := [][]Vars{{}}
	for _, stage := range m.Stages {
		stageVars := expandGrid(m.Sweeps[stage.Name])

		next := make([][]Vars, 0, len(combos)*len(stageVars))
		for _, prefix := range combos {
			for _, v := range stageVars {
				row := make([]Vars, len(prefix), len(prefix)+1)
				copy(row, prefix)
				next = append(next, append(row, v))
			}
		}
		combos = next
	}
	return combos
}

// expandGrid returns the Cartesian product of a single grid. An empty grid
// yields a single nil entry.
func expandGrid(grid SweepGrid) []Vars {
	if len(grid) == 0 {
		return []Vars{nil}
	}
	names := make([]string, 0, len(grid))
	for name := range grid {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []Vars{{}}
	for _, name := range names {
		next := make([]Vars, 0, len(out)*len(grid[name]))
		for _, partial := range out {
			for _, value := range grid[name] {
				v := make(Vars, len(partial)+1)
				for k, pv := range partial {
					v[k] = pv
				}
				v[name] = value
				next = append(next, v)
			}
		}
		out = next
	}
	return out
}
