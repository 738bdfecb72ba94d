// Package exodustest builds synthetic exodus-shaped datasets for tests and
// writes them as netCDF files that stand in for solver output.
package exodustest

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Digital-Validation-Laboratory/mooseherder/internal/exodus"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
)

// nameLen is the exodus name table width, including the terminator.
const nameLen = 33

// SideSet lists the nodes and elements of one side set. A nil list is left
// out of the dataset.
type SideSet struct {
	Name  string
	Nodes []int32
	Elems []int32
}

// NodeVar holds one nodal variable, indexed [time][node].
type NodeVar struct {
	Name   string
	Values [][]float64
}

// ElemVar holds one element variable in one block, indexed [time][element].
type ElemVar struct {
	Name   string
	Block  int
	Values [][]float64
}

// GlobVar holds one global variable, indexed [time].
type GlobVar struct {
	Name   string
	Values []float64
}

// Fixture describes a synthetic output. Nil fields are left out of the
// generated dataset.
type Fixture struct {
	Time    []float64
	X, Y, Z []float64
	// Blocks holds one connectivity table per element block, indexed
	// [element][node of element].
	Blocks       [][][]int32
	SideSets     []SideSet
	NodeVars     []NodeVar
	ElemVarNames []string
	ElemVars     []ElemVar
	GlobVars     []GlobVar
}

// Dataset lays the fixture out under exodus keys.
func (f Fixture) Dataset() *Dataset {
	d := NewDataset()
	if f.Time != nil {
		d.Set(exodus.KeyTime, f.Time)
	}
	for key, axis := range map[string][]float64{exodus.KeyCoordX: f.X, exodus.KeyCoordY: f.Y, exodus.KeyCoordZ: f.Z} {
		if axis != nil {
			d.Set(key, axis)
		}
	}
	for b, table := range f.Blocks {
		d.Set(fmt.Sprintf("%s%d", exodus.TagConnect, b+1), table)
	}

	if len(f.SideSets) > 0 {
		names := make([]string, len(f.SideSets))
		for i, ss := range f.SideSets {
			names[i] = ss.Name
			if ss.Nodes != nil {
				d.Set(fmt.Sprintf("%s%d", exodus.TagSideNode, i+1), ss.Nodes)
			}
			if ss.Elems != nil {
				d.Set(fmt.Sprintf("%s%d", exodus.TagSideElem, i+1), ss.Elems)
			}
		}
		d.Set(exodus.KeySideSetNames, nameTable(names))
	}

	if len(f.NodeVars) > 0 {
		names := make([]string, len(f.NodeVars))
		for i, nv := range f.NodeVars {
			names[i] = nv.Name
			d.Set(fmt.Sprintf("%s%d", exodus.TagNodeVar, i+1), nv.Values)
		}
		d.Set(exodus.KeyNodeVarNames, nameTable(names))
	}

	if len(f.ElemVarNames) > 0 {
		d.Set(exodus.KeyElemVarNames, nameTable(f.ElemVarNames))
		for _, ev := range f.ElemVars {
			key, ok := exodus.Key(ev.Name, f.ElemVarNames, "vals_elem_var")
			if !ok {
				continue
			}
			d.Set(fmt.Sprintf("%seb%d", key, ev.Block), ev.Values)
		}
	}

	if len(f.GlobVars) > 0 {
		names := make([]string, len(f.GlobVars))
		numTime := len(f.GlobVars[0].Values)
		vals := make([][]float64, numTime)
		for t := range vals {
			vals[t] = make([]float64, len(f.GlobVars))
		}
		for g, gv := range f.GlobVars {
			names[g] = gv.Name
			for t := 0; t < numTime && t < len(gv.Values); t++ {
				vals[t][g] = gv.Values[t]
			}
		}
		d.Set(exodus.KeyGlobVarNames, nameTable(names))
		d.Set(exodus.KeyGlobVars, vals)
	}
	return d
}

// nameTable pads names with NULs to the exodus name width.
func nameTable(names []string) []string {
	rows := make([]string, len(names))
	for i, n := range names {
		rows[i] = n + strings.Repeat("\x00", max(nameLen-len(n), 0))
	}
	return rows
}

// Dataset is an in-memory exodus.Dataset.
type Dataset struct {
	vars   map[string]any
	closed bool
}

var _ exodus.Dataset = (*Dataset)(nil)

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{vars: make(map[string]any)}
}

// Set stores v under key.
func (d *Dataset) Set(key string, v any) *Dataset {
	d.vars[key] = v
	return d
}

// Delete removes key.
func (d *Dataset) Delete(key string) *Dataset {
	delete(d.vars, key)
	return d
}

func (d *Dataset) Lookup(key string) (any, bool) {
	v, ok := d.vars[key]
	return v, ok
}

func (d *Dataset) Keys() []string {
	keys := make([]string, 0, len(d.vars))
	for k := range d.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *Dataset) Close() error {
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Dataset) Closed() bool { return d.closed }

// WriteFile writes the fixture to path as a classic netCDF file. Empty
// arrays are left out.
func WriteFile(path string, f Fixture) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create fixture %s: %w", path, err)
	}
	defer func() {
		if cerr := cw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("write fixture %s: %w", path, cerr)
		}
	}()

	d := f.Dataset()
	for _, key := range d.Keys() {
		v := d.vars[key]
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Len() == 0 {
			continue
		}
		if err := cw.AddVar(key, api.Variable{Values: v}); err != nil {
			return fmt.Errorf("add %s to fixture: %w", key, err)
		}
	}
	return nil
}
