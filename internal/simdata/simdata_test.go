package simdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestSelectCols(t *testing.T) {
	m := mat.NewDense(2, 4, []float64{
		0, 1, 2, 3,
		10, 11, 12, 13,
	})

	got := SelectCols(m, []int{3, 1, 9})
	assert.True(t, mat.Equal(mat.NewDense(2, 2, []float64{3, 1, 13, 11}), got))

	assert.Same(t, m, SelectCols(m, nil))
	assert.Nil(t, SelectCols(m, []int{7}))
	assert.Nil(t, SelectCols(nil, []int{0}))
}

func TestSelectInds(t *testing.T) {
	v := []float64{0.0, 0.5, 1.0}
	assert.Equal(t, []float64{1.0, 0.0}, SelectInds(v, []int{2, 0, -1}))
	assert.Equal(t, v, SelectInds(v, nil))
	assert.Nil(t, SelectInds(nil, []int{0}))
}

func TestKeyStrings(t *testing.T) {
	assert.Equal(t, "(bottom,node)", SideSetKey{"bottom", SideSetNode}.String())
	assert.Equal(t, "(stress_yy,2)", ElemVarKey{"stress_yy", 2}.String())
}

func TestNewReadConfig(t *testing.T) {
	c := NewReadConfig()
	assert.True(t, c.Time)
	assert.True(t, c.Coords)
	assert.True(t, c.Connect)
	assert.Nil(t, c.NodeVars)
}
