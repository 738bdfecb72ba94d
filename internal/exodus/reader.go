// Package exodus reads finite element outputs stored in the exodus layout
// (a netCDF container with name tables and positional data keys) into
// simdata.SimData.
//
// Missing data is never an error: absent keys, names and side set halves
// come back as nil slices, nil maps or absent map entries. The only fatal
// structural error is an output with no coordinate axes.
package exodus

import (
	"errors"
	"fmt"
	"os"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/simdata"
	"gonum.org/v1/gonum/mat"
)

// Structural keys of the exodus layout.
const (
	KeyTime         = "time_whole"
	KeyCoordX       = "coordx"
	KeyCoordY       = "coordy"
	KeyCoordZ       = "coordz"
	KeySideSetNames = "ss_names"
	KeyNodeVarNames = "name_nod_var"
	KeyElemVarNames = "name_elem_var"
	KeyGlobVarNames = "name_glo_var"
	KeyGlobVars     = "vals_glo_var"

	TagConnect  = "connect"
	TagNodeVar  = "vals_nod_var"
	TagSideNode = "node_ns"
	TagSideElem = "elem_ss"
)

// ErrNoSpatialDims is returned when an output defines none of the coordinate
// axes.
var ErrNoSpatialDims = errors.New("no spatial coordinate dimensions detected, output must be at least 1D")

// Reader is a read-only view over one output. All accessors are pure
// functions of the dataset content.
type Reader struct {
	path string
	ds   Dataset
}

// Open opens the exodus file at path.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("exodus output: %w", err)
	}
	ds, err := openNetCDF(path)
	if err != nil {
		return nil, err
	}
	return NewReader(path, ds), nil
}

// NewReader wraps an already open dataset. path is informational.
func NewReader(path string, ds Dataset) *Reader {
	return &Reader{path: path, ds: ds}
}

// Path returns the path the reader was opened from.
func (r *Reader) Path() string { return r.path }

// Close releases the underlying dataset.
func (r *Reader) Close() error { return r.ds.Close() }

// AllVarNames lists every key in the dataset.
func (r *Reader) AllVarNames() []string { return r.ds.Keys() }

// Names decodes the name table stored under key, or returns nil if the key
// is absent.
func (r *Reader) Names(key string) []string {
	v, ok := r.ds.Lookup(key)
	if !ok {
		return nil
	}
	return toNames(v)
}

// Var returns the numeric array stored under key, or an empty array if the
// key is absent or not numeric.
func (r *Reader) Var(key string) Array {
	v, ok := r.ds.Lookup(key)
	if !ok {
		return Array{}
	}
	a, err := toArray(v)
	if err != nil {
		return Array{}
	}
	return a
}

// Key derives the positional data key for name: tag followed by the 1-based
// position of name in allNames.
func Key(name string, allNames []string, tag string) (string, bool) {
	for i, n := range allNames {
		if n == name {
			return fmt.Sprintf("%s%d", tag, i+1), true
		}
	}
	return "", false
}

// Time returns the time step values, or nil if the output has none.
func (r *Reader) Time(timeInds []int) []float64 {
	a := r.Var(KeyTime)
	if a.Len() == 0 {
		return nil
	}
	return simdata.SelectInds(a.Data, timeInds)
}

// Coords returns the N x 3 nodal coordinates and the number of axes present.
// Absent axes are zero filled.
func (r *Reader) Coords() (*mat.Dense, int, error) {
	axes := [3]Array{r.Var(KeyCoordX), r.Var(KeyCoordY), r.Var(KeyCoordZ)}

	numNodes, numDims := 0, 0
	for _, a := range axes {
		if a.Len() > 0 {
			numDims++
			numNodes = max(numNodes, a.Len())
		}
	}
	if numDims == 0 {
		return nil, 0, ErrNoSpatialDims
	}

	coords := mat.NewDense(numNodes, 3, nil)
	for j, a := range axes {
		if a.Len() == 0 {
			continue
		}
		if a.Len() != numNodes {
			return nil, 0, fmt.Errorf("coordinate axis %d has %d nodes, expected %d", j, a.Len(), numNodes)
		}
		coords.SetCol(j, a.Data)
	}
	return coords, numDims, nil
}

// ConnectivityNames probes connect1, connect2, ... until a key is missing.
func (r *Reader) ConnectivityNames() []string {
	var names []string
	for b := 1; ; b++ {
		key := fmt.Sprintf("%s%d", TagConnect, b)
		if _, ok := r.ds.Lookup(key); !ok {
			return names
		}
		names = append(names, key)
	}
}

// ElemBlocks returns the 1-based block numbers backed by a connectivity
// table.
func (r *Reader) ElemBlocks() []int {
	names := r.ConnectivityNames()
	if names == nil {
		return nil
	}
	blocks := make([]int, len(names))
	for i := range names {
		blocks[i] = i + 1
	}
	return blocks
}

// Connectivity maps each block tag to its [node of element][element] table.
// Node numbers keep the 1-based exodus convention.
func (r *Reader) Connectivity() map[string][][]int {
	names := r.ConnectivityNames()
	if names == nil {
		return nil
	}
	connect := make(map[string][][]int, len(names))
	for _, key := range names {
		a := r.Var(key)
		numElems, perElem := a.Rows(), a.RowLen()
		table := make([][]int, perElem)
		for n := range table {
			table[n] = make([]int, numElems)
			for e := 0; e < numElems; e++ {
				table[n][e] = int(a.Data[e*perElem+n])
			}
		}
		connect[key] = table
	}
	return connect
}

// SideSetNames returns the side set name table.
func (r *Reader) SideSetNames() []string { return r.Names(KeySideSetNames) }

// SideSets reads the node and element lists of the named side sets. Both
// kinds get an entry for every name; a list the output does not have is nil.
func (r *Reader) SideSets(names []string) map[simdata.SideSetKey][]int {
	if names == nil {
		return nil
	}
	all := r.SideSetNames()
	sets := make(map[simdata.SideSetKey][]int, 2*len(names))
	for _, name := range names {
		nodeKey := simdata.SideSetKey{Name: name, Kind: simdata.SideSetNode}
		elemKey := simdata.SideSetKey{Name: name, Kind: simdata.SideSetElem}
		sets[nodeKey] = r.sideSetList(name, all, TagSideNode)
		sets[elemKey] = r.sideSetList(name, all, TagSideElem)
	}
	return sets
}

// AllSideSets reads every side set listed in the name table.
func (r *Reader) AllSideSets() map[simdata.SideSetKey][]int {
	return r.SideSets(r.SideSetNames())
}

func (r *Reader) sideSetList(name string, all []string, tag string) []int {
	key, ok := Key(name, all, tag)
	if !ok {
		return nil
	}
	a := r.Var(key)
	if a.Len() == 0 {
		return nil
	}
	out := make([]int, a.Len())
	for i, v := range a.Data {
		out[i] = int(v)
	}
	return out
}

// NodeVarNames returns the nodal variable name table.
func (r *Reader) NodeVarNames() []string { return r.Names(KeyNodeVarNames) }

// NodeVars reads the named nodal variables as N x T matrices. Names missing
// from the output are skipped.
func (r *Reader) NodeVars(names []string, timeInds []int) map[string]*mat.Dense {
	all := r.NodeVarNames()
	if names == nil || all == nil {
		return nil
	}
	vars := make(map[string]*mat.Dense, len(names))
	for _, name := range names {
		key, ok := Key(name, all, TagNodeVar)
		if !ok {
			continue
		}
		if m := r.timeSeries(key, timeInds); m != nil {
			vars[name] = m
		}
	}
	return vars
}

// AllNodeVars reads every nodal variable.
func (r *Reader) AllNodeVars(timeInds []int) map[string]*mat.Dense {
	return r.NodeVars(r.NodeVarNames(), timeInds)
}

// ElemVarNames returns the element variable name table.
func (r *Reader) ElemVarNames() []string { return r.Names(KeyElemVarNames) }

// ElemVars reads element variables for the given (name, block) pairs as
// E x T matrices. Pairs without data in the output get no entry.
func (r *Reader) ElemVars(keys []simdata.ElemVarKey, timeInds []int) map[simdata.ElemVarKey]*mat.Dense {
	all := r.ElemVarNames()
	if keys == nil || all == nil {
		return nil
	}
	vars := make(map[simdata.ElemVarKey]*mat.Dense, len(keys))
	for _, k := range keys {
		key, ok := elemVarKey(k, all)
		if !ok {
			continue
		}
		if m := r.timeSeries(key, timeInds); m != nil {
			vars[k] = m
		}
	}
	return vars
}

// ElemVarsProduct reads every combination of names and blocks that exists.
func (r *Reader) ElemVarsProduct(names []string, blocks []int, timeInds []int) map[simdata.ElemVarKey]*mat.Dense {
	return r.ElemVars(ElemVarKeys(names, blocks), timeInds)
}

// AllElemVars reads every element variable in every block.
func (r *Reader) AllElemVars(timeInds []int) map[simdata.ElemVarKey]*mat.Dense {
	return r.ElemVarsProduct(r.ElemVarNames(), r.ElemBlocks(), timeInds)
}

// ElemVarKeys returns the Cartesian product of names and blocks, names
// varying fastest.
func ElemVarKeys(names []string, blocks []int) []simdata.ElemVarKey {
	if names == nil || blocks == nil {
		return nil
	}
	keys := make([]simdata.ElemVarKey, 0, len(names)*len(blocks))
	for _, b := range blocks {
		for _, n := range names {
			keys = append(keys, simdata.ElemVarKey{Name: n, Block: b})
		}
	}
	return keys
}

func elemVarKey(k simdata.ElemVarKey, all []string) (string, bool) {
	for i, n := range all {
		if n == k.Name {
			return fmt.Sprintf("vals_elem_var%deb%d", i+1, k.Block), true
		}
	}
	return "", false
}

// GlobVarNames returns the global variable name table.
func (r *Reader) GlobVarNames() []string { return r.Names(KeyGlobVarNames) }

// GlobVars reads the named global variables. Global values are stored
// together as a T x G array.
func (r *Reader) GlobVars(names []string, timeInds []int) map[string][]float64 {
	all := r.GlobVarNames()
	if names == nil || all == nil {
		return nil
	}
	a := r.Var(KeyGlobVars)
	if a.Len() == 0 {
		return nil
	}
	numTime, numGlob := a.Rows(), a.RowLen()
	if len(a.Shape) == 1 && len(all) > 1 {
		numTime, numGlob = 1, a.Len()
	}

	vars := make(map[string][]float64, len(names))
	for _, name := range names {
		g := -1
		for i, n := range all {
			if n == name {
				g = i
				break
			}
		}
		if g < 0 || g >= numGlob {
			continue
		}
		series := make([]float64, numTime)
		for t := 0; t < numTime; t++ {
			series[t] = a.Data[t*numGlob+g]
		}
		vars[name] = simdata.SelectInds(series, timeInds)
	}
	return vars
}

// AllGlobVars reads every global variable.
func (r *Reader) AllGlobVars(timeInds []int) map[string][]float64 {
	return r.GlobVars(r.GlobVarNames(), timeInds)
}

// timeSeries reads a T x K array and returns it as K x T, restricted to
// timeInds.
func (r *Reader) timeSeries(key string, timeInds []int) *mat.Dense {
	a := r.Var(key)
	if a.Len() == 0 {
		return nil
	}
	numTime, width := a.Rows(), a.RowLen()
	if len(a.Shape) == 1 {
		numTime, width = 1, a.Len()
	}
	raw := mat.NewDense(numTime, width, a.Data)
	return simdata.SelectCols(mat.DenseCopyOf(raw.T()), timeInds)
}

// MaxReadConfig returns a config requesting everything the output holds.
func (r *Reader) MaxReadConfig() *simdata.ReadConfig {
	return &simdata.ReadConfig{
		Time:     true,
		Coords:   true,
		Connect:  true,
		SideSets: r.SideSetNames(),
		NodeVars: r.NodeVarNames(),
		ElemVars: ElemVarKeys(r.ElemVarNames(), r.ElemBlocks()),
		GlobVars: r.GlobVarNames(),
	}
}

// ReadSimData reads the parts of the output selected by cfg. A nil cfg
// reads everything.
func (r *Reader) ReadSimData(cfg *simdata.ReadConfig) (*simdata.SimData, error) {
	if cfg == nil {
		return r.ReadAllSimData()
	}
	data := &simdata.SimData{NumSpatDims: 3}
	if cfg.Time {
		data.Time = r.Time(cfg.TimeInds)
	}
	if cfg.Coords {
		coords, dims, err := r.Coords()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.path, err)
		}
		data.Coords, data.NumSpatDims = coords, dims
	}
	if cfg.Connect {
		data.Connect = r.Connectivity()
	}
	data.SideSets = r.SideSets(cfg.SideSets)
	data.NodeVars = r.NodeVars(cfg.NodeVars, cfg.TimeInds)
	data.ElemVars = r.ElemVars(cfg.ElemVars, cfg.TimeInds)
	data.GlobVars = r.GlobVars(cfg.GlobVars, cfg.TimeInds)
	return data, nil
}

// ReadAllSimData reads every part of the output.
func (r *Reader) ReadAllSimData() (*simdata.SimData, error) {
	coords, dims, err := r.Coords()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	return &simdata.SimData{
		NumSpatDims: dims,
		Time:        r.Time(nil),
		Coords:      coords,
		Connect:     r.Connectivity(),
		SideSets:    r.AllSideSets(),
		NodeVars:    r.AllNodeVars(nil),
		ElemVars:    r.AllElemVars(nil),
		GlobVars:    r.AllGlobVars(nil),
	}, nil
}
