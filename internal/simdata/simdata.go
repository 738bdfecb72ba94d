// Package simdata holds the in-memory representation of one finite element
// simulation output and the configuration selecting which parts of an
// output to read.
package simdata

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Entity kinds a side set lists.
const (
	SideSetNode = "node"
	SideSetElem = "elem"
)

// SideSetKey identifies the node or element list of a named side set.
type SideSetKey struct {
	Name string
	Kind string
}

func (k SideSetKey) String() string { return fmt.Sprintf("(%s,%s)", k.Name, k.Kind) }

// ElemVarKey identifies an element variable within one element block.
type ElemVarKey struct {
	Name  string
	Block int
}

func (k ElemVarKey) String() string { return fmt.Sprintf("(%s,%d)", k.Name, k.Block) }

// SimData is one parsed simulation output. A nil field or an absent map key
// means the data was either not requested or not present in the output.
type SimData struct {
	// NumSpatDims counts the coordinate axes present in the output. Coords
	// are always padded to x, y and z.
	NumSpatDims int

	// Time holds the T time step values.
	Time []float64

	// Coords is N x 3, one row per node.
	Coords *mat.Dense

	// Connect maps a block tag ("connect1", ...) to its connectivity table,
	// indexed [node of element][element].
	Connect map[string][][]int

	// SideSets holds node and element numbers per side set. Both kinds are
	// present for every side set read; a nil slice means the output has no
	// list of that kind.
	SideSets map[SideSetKey][]int

	// NodeVars maps a nodal variable name to an N x T matrix.
	NodeVars map[string]*mat.Dense

	// ElemVars maps (name, block) to an E x T matrix, E being the number of
	// elements in the block.
	ElemVars map[ElemVarKey]*mat.Dense

	// GlobVars maps a global (postprocessor) variable to its T values.
	GlobVars map[string][]float64
}

// ReadConfig selects the parts of an output to read. Nil name lists and
// false flags leave the corresponding SimData field nil.
type ReadConfig struct {
	Time     bool
	Coords   bool
	Connect  bool
	SideSets []string
	NodeVars []string
	ElemVars []ElemVarKey
	GlobVars []string
	// TimeInds restricts time dependent data to these time step indices.
	// Nil reads every time step.
	TimeInds []int
}

// NewReadConfig returns a config reading time, coordinates and
// connectivity but no variables.
func NewReadConfig() *ReadConfig {
	return &ReadConfig{Time: true, Coords: true, Connect: true}
}
