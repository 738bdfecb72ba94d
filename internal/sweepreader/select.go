package sweepreader

import (
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/config"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus"
	"github.com/Digital-Validation-Laboratory/mooseherder/internal/simdata"
)

// Selector chooses what to read from one opened output. A nil Selector, or
// one returning nil, reads everything.
type Selector func(r *exodus.Reader) *simdata.ReadConfig

// Fixed reads the same parts of every output.
func Fixed(cfg *simdata.ReadConfig) Selector {
	return func(*exodus.Reader) *simdata.ReadConfig { return cfg }
}

// FromSettings builds a selector from the read block of a configuration.
// A nil name list selects every name the output defines; an empty list
// selects none. A nil s reads everything.
func FromSettings(s *config.ReadSettings) Selector {
	if s == nil {
		return nil
	}
	return func(r *exodus.Reader) *simdata.ReadConfig {
		cfg := &simdata.ReadConfig{
			Time:     !s.SkipTime,
			Coords:   !s.SkipCoords,
			Connect:  !s.SkipConnect,
			SideSets: orAll(s.SideSets, r.SideSetNames),
			NodeVars: orAll(s.NodeVars, r.NodeVarNames),
			GlobVars: orAll(s.GlobVars, r.GlobVarNames),
			TimeInds: s.TimeInds,
		}
		if s.ElemVars == nil {
			cfg.ElemVars = exodus.ElemVarKeys(r.ElemVarNames(), r.ElemBlocks())
		} else {
			cfg.ElemVars = make([]simdata.ElemVarKey, len(s.ElemVars))
			for i, ev := range s.ElemVars {
				cfg.ElemVars[i] = simdata.ElemVarKey{Name: ev.Name, Block: ev.Block}
			}
		}
		return cfg
	}
}

func orAll(names []string, all func() []string) []string {
	if names == nil {
		return all()
	}
	return names
}
